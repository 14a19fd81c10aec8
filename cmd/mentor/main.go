// Command mentor is a terminal chat widget for a running relay proxy.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"mentor-chat/internal/config"
	"mentor-chat/internal/conversation"
	"mentor-chat/internal/logging"
	"mentor-chat/internal/relayclient"
)

func main() {
	cfg := config.Load()

	relayURL := flag.String("relay", envOr("MENTOR_RELAY_URL", "http://localhost:"+cfg.Port+"/api/v1/gemini"), "relay proxy endpoint")
	flag.Parse()

	_, logCloser, err := logging.InitFile(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable: %v\n", err)
	}
	defer logCloser.Close()

	client := relayclient.New(*relayURL, cfg.RelayTimeout)
	session := conversation.NewController(uuid.New(), client, conversation.Options{
		SystemPrompt: cfg.SystemPrompt,
		Budget:       cfg.HistoryTokenBudget,
		Estimator:    conversation.NewEstimator(cfg.TokenEstimator),
	})
	slog.Info("Mentor session started", "session_id", session.ID().String(), "relay", *relayURL)

	if err := run(context.Background(), session, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mentor: %v\n", err)
		os.Exit(1)
	}
}

// run reads one line per turn. A bare number picks a chip of the latest reply;
// "/quit" or EOF ends the session.
func run(ctx context.Context, session *conversation.Controller, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, titleStyle.Render("Finance Mentor"))
	fmt.Fprintln(out, hintStyle.Render("Ask a question, or type a chip number. /quit to exit."))

	var (
		labels  []string
		printed int
	)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}

		var (
			snap conversation.Snapshot
			err  error
		)
		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(labels) {
			snap, err = session.SelectOption(ctx, labels[n-1])
		} else {
			snap, err = session.Submit(ctx, line)
		}
		if errors.Is(err, conversation.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(out, screen(snap, printed))
		printed = len(snap.Messages)
		labels = latestChips(snap)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
