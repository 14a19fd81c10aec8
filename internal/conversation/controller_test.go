package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"mentor-chat/internal/models"
)

type fakeRelay struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]models.Message
	// gate, if non-nil, blocks Generate until it is closed.
	gate chan struct{}
	// entered receives once per call, before gate is awaited.
	entered chan struct{}
}

func (f *fakeRelay) Generate(ctx context.Context, messages []models.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.reply, f.err
}

func (f *fakeRelay) lastCall(t *testing.T) []models.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("relay was never called")
	}
	return f.calls[len(f.calls)-1]
}

func newTestController(relay Relay, budget int) *Controller {
	return NewController(uuid.New(), relay, Options{
		SystemPrompt: "Finance mentor. Use **bold** concepts.",
		Budget:       budget,
	})
}

func TestSubmit_SuccessAppendsBothTurns(t *testing.T) {
	relay := &fakeRelay{reply: "Compound Interest\n**Compounding**\nWhy it matters?"}
	c := newTestController(relay, 1000)

	snap, err := c.Submit(context.Background(), "  What is compound interest?  ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if snap.State != StateIdle || snap.Loading {
		t.Fatalf("expected idle after success, got %+v", snap)
	}
	if snap.Error != "" {
		t.Fatalf("expected no error, got %q", snap.Error)
	}
	want := []models.Message{
		{Role: models.RoleUser, Content: "What is compound interest?"},
		{Role: models.RoleAssistant, Content: "Compound Interest\n**Compounding**\nWhy it matters?"},
	}
	if len(snap.Messages) != 2 || snap.Messages[0] != want[0] || snap.Messages[1] != want[1] {
		t.Fatalf("unexpected conversation: %+v", snap.Messages)
	}

	sent := relay.lastCall(t)
	if len(sent) != 2 {
		t.Fatalf("expected system prompt + user turn, got %d messages", len(sent))
	}
	if sent[0].Role != models.RoleSystem {
		t.Fatalf("expected leading system message, got %s", sent[0].Role)
	}
	if sent[1] != want[0] {
		t.Fatalf("expected history to end with the new user turn, got %+v", sent[1])
	}
}

func TestSubmit_FailureKeepsUserTurnOnly(t *testing.T) {
	relay := &fakeRelay{err: errors.New("upstream down")}
	c := newTestController(relay, 1000)

	snap, err := c.Submit(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("relay failures must not be returned, got %v", err)
	}

	if len(snap.Messages) != 1 || snap.Messages[0].Role != models.RoleUser {
		t.Fatalf("expected only the user turn, got %+v", snap.Messages)
	}
	if snap.Error != FailureMessage {
		t.Fatalf("expected %q, got %q", FailureMessage, snap.Error)
	}
	if snap.State != StateIdle {
		t.Fatalf("expected idle after failure, got %s", snap.State)
	}
}

func TestSubmit_ClearsPreviousError(t *testing.T) {
	relay := &fakeRelay{err: errors.New("upstream down")}
	c := newTestController(relay, 1000)
	c.Submit(context.Background(), "first")

	relay.err = nil
	relay.reply = "ok"
	snap, _ := c.Submit(context.Background(), "second")

	if snap.Error != "" {
		t.Fatalf("expected error cleared, got %q", snap.Error)
	}
	if len(snap.Messages) != 3 {
		t.Fatalf("expected 3 turns after retry, got %d", len(snap.Messages))
	}
}

func TestSubmit_EmptyInputIsIgnored(t *testing.T) {
	relay := &fakeRelay{reply: "unused"}
	c := newTestController(relay, 1000)

	for _, text := range []string{"", "   ", "\n\t"} {
		snap, err := c.Submit(context.Background(), text)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Submit(%q): expected ErrEmptyInput, got %v", text, err)
		}
		if len(snap.Messages) != 0 || snap.Error != "" {
			t.Fatalf("Submit(%q): state changed: %+v", text, snap)
		}
	}
	if len(relay.calls) != 0 {
		t.Fatalf("relay called for empty input")
	}
}

func TestSubmit_WhileSendingIsNoop(t *testing.T) {
	relay := &fakeRelay{
		reply:   "done",
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := newTestController(relay, 1000)

	done := make(chan Snapshot)
	go func() {
		snap, _ := c.Submit(context.Background(), "first")
		done <- snap
	}()

	select {
	case <-relay.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay call")
	}

	during := c.Snapshot()
	if during.State != StateSending || !during.Loading {
		t.Fatalf("expected sending state, got %+v", during)
	}

	snap, err := c.Submit(context.Background(), "second")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(snap.Messages) != len(during.Messages) {
		t.Fatalf("conversation changed while sending: %d -> %d", len(during.Messages), len(snap.Messages))
	}

	close(relay.gate)
	final := <-done
	if len(final.Messages) != 2 {
		t.Fatalf("expected 2 turns, got %+v", final.Messages)
	}
	if len(relay.calls) != 1 {
		t.Fatalf("expected a single relay call, got %d", len(relay.calls))
	}
}

func TestSubmit_SystemPromptNotChargedAgainstBudget(t *testing.T) {
	relay := &fakeRelay{reply: "a b"}
	c := NewController(uuid.New(), relay, Options{
		SystemPrompt: words(500),
		Budget:       6,
	})

	c.Submit(context.Background(), "one two")   // 2 words, reply 2 words
	c.Submit(context.Background(), "three four") // history: 2 + 2 + 2 = 6

	sent := relay.lastCall(t)
	if len(sent) != 4 {
		t.Fatalf("expected system + 3 turns, got %d: %+v", len(sent), sent)
	}
	if sent[0].Role != models.RoleSystem {
		t.Fatalf("expected system message first, got %s", sent[0].Role)
	}
}

func TestSubmit_HistoryDropsOldTurns(t *testing.T) {
	relay := &fakeRelay{reply: words(5)}
	c := newTestController(relay, 8)

	c.Submit(context.Background(), words(3))
	c.Submit(context.Background(), words(2))

	sent := relay.lastCall(t)
	// system, assistant(5), user(2); the first user turn (3) no longer fits.
	if len(sent) != 3 {
		t.Fatalf("expected 3 outbound messages, got %d: %+v", len(sent), sent)
	}
	if sent[1].Role != models.RoleAssistant || sent[2].Content != words(2) {
		t.Fatalf("unexpected bounded history: %+v", sent)
	}
}

func TestDraft_SubmitClearsBuffer(t *testing.T) {
	relay := &fakeRelay{reply: "ok"}
	c := newTestController(relay, 1000)

	if snap := c.SetDraft("How do I save?"); snap.Draft != "How do I save?" {
		t.Fatalf("draft not stored: %+v", snap)
	}

	snap, err := c.SubmitDraft(context.Background())
	if err != nil {
		t.Fatalf("SubmitDraft failed: %v", err)
	}
	if snap.Draft != "" {
		t.Fatalf("expected draft cleared, got %q", snap.Draft)
	}
	if snap.Messages[0].Content != "How do I save?" {
		t.Fatalf("unexpected user turn: %+v", snap.Messages[0])
	}
}

func TestSelectOption_UsesSubmitPath(t *testing.T) {
	relay := &fakeRelay{reply: "Saving\nPay yourself first"}
	c := newTestController(relay, 1000)

	snap, err := c.SelectOption(context.Background(), "Saving")
	if err != nil {
		t.Fatalf("SelectOption failed: %v", err)
	}
	if len(snap.Messages) != 2 || snap.Messages[0].Content != "Saving" {
		t.Fatalf("unexpected conversation: %+v", snap.Messages)
	}
}

func TestOnChange_ObservesTransitions(t *testing.T) {
	relay := &fakeRelay{reply: "ok"}
	var states []State
	c := NewController(uuid.New(), relay, Options{
		Budget:   1000,
		OnChange: func(s Snapshot) { states = append(states, s.State) },
	})

	c.Submit(context.Background(), "hi")

	if len(states) != 2 || states[0] != StateSending || states[1] != StateIdle {
		t.Fatalf("expected [sending idle], got %v", states)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	relay := &fakeRelay{reply: "ok"}
	c := newTestController(relay, 1000)
	c.Submit(context.Background(), "hi")

	snap := c.Snapshot()
	snap.Messages[0].Content = "tampered"

	if c.Snapshot().Messages[0].Content != "hi" {
		t.Fatal("snapshot shares storage with the controller")
	}
}

type panicRelay struct{}

func (panicRelay) Generate(ctx context.Context, messages []models.Message) (string, error) {
	panic("upstream client bug")
}

func TestSubmit_RelayPanicReturnsToIdle(t *testing.T) {
	c := newTestController(panicRelay{}, 1000)

	snap, err := c.Submit(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("expected relay panic reported as state, got %v", err)
	}
	if snap.State != StateIdle || snap.Loading || snap.Error != FailureMessage {
		t.Fatalf("expected idle with failure message, got %+v", snap)
	}

	// The session must accept the next turn.
	if _, err := c.Submit(context.Background(), "Again"); errors.Is(err, ErrBusy) {
		t.Fatal("session stuck in sending after a relay panic")
	}
}

func TestOnChange_DeliveredInSeqOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	c := NewController(uuid.New(), &fakeRelay{reply: "ok"}, Options{
		Budget: 1000,
		OnChange: func(s Snapshot) {
			mu.Lock()
			seqs = append(seqs, s.Seq)
			mu.Unlock()
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.SetDraft("typing")
		}()
		go func() {
			defer wg.Done()
			c.Submit(context.Background(), "question")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("snapshot %d delivered after %d: %v", seqs[i], seqs[i-1], seqs)
		}
	}
	if final := c.Snapshot().Seq; len(seqs) == 0 || seqs[len(seqs)-1] != final {
		t.Fatalf("last delivered seq %v does not match final %d", seqs, final)
	}
}
