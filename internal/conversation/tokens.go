package conversation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"mentor-chat/internal/config"
)

// TokenEstimator approximates how much of the context budget a text costs.
// Implementations must be monotonic in text length.
type TokenEstimator interface {
	Count(text string) int
}

// WordCounter counts whitespace-delimited words. It is a coarse proxy for
// model tokens.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts BPE tokens with the cl100k_base encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

var offlineBpe sync.Once

// NewTiktokenCounter loads the encoding from ranks embedded in the binary, so
// it needs no network access.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	offlineBpe.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewEstimator returns the estimator named in configuration. An unavailable
// tokenizer degrades to word counting rather than failing startup.
func NewEstimator(name string) TokenEstimator {
	if name != config.EstimatorTiktoken {
		return WordCounter{}
	}
	counter, err := NewTiktokenCounter()
	if err != nil {
		slog.Warn("Falling back to word counting", "error", err)
		return WordCounter{}
	}
	return counter
}
