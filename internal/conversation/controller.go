package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mentor-chat/internal/models"
)

// FailureMessage is shown to the user whenever a relay call fails. The
// controller never looks at why.
const FailureMessage = "Error: Failed to get response"

var (
	// ErrEmptyInput is returned for blank submissions. Nothing changes.
	ErrEmptyInput = errors.New("message is empty")
	// ErrBusy is returned while a relay call is in flight. Nothing changes.
	ErrBusy = errors.New("a message is already being sent")
)

type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// Relay is the one collaborator the controller calls out to.
type Relay interface {
	Generate(ctx context.Context, messages []models.Message) (string, error)
}

// Snapshot is the observable session state used to drive a UI.
type Snapshot struct {
	ID       uuid.UUID        `json:"id"`
	Seq      uint64           `json:"seq"` // increases with every transition
	State    State            `json:"state"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
	Draft    string           `json:"draft"`
	Messages []models.Message `json:"messages"`
}

type Options struct {
	SystemPrompt string
	Budget       int
	Estimator    TokenEstimator
	// OnChange, if set, receives a snapshot after every transition.
	OnChange func(Snapshot)
}

// Controller owns the in-memory conversation of one chat session.
type Controller struct {
	id           uuid.UUID
	relay        Relay
	systemPrompt string
	budget       int
	estimator    TokenEstimator
	onChange     func(Snapshot)

	// notifyMu is taken before mu is released so observers see
	// transitions in Seq order.
	notifyMu sync.Mutex

	mu       sync.Mutex
	seq      uint64
	messages []models.Message
	sending  bool
	errMsg   string
	draft    string
}

func NewController(id uuid.UUID, relay Relay, opts Options) *Controller {
	est := opts.Estimator
	if est == nil {
		est = WordCounter{}
	}
	return &Controller{
		id:           id,
		relay:        relay,
		systemPrompt: opts.SystemPrompt,
		budget:       opts.Budget,
		estimator:    est,
		onChange:     opts.OnChange,
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

// SetDraft replaces the input buffer.
func (c *Controller) SetDraft(text string) Snapshot {
	c.mu.Lock()
	c.draft = text
	c.seq++
	snap := c.snapshotLocked()
	c.publishUnlock(snap)
	return snap
}

// SubmitDraft submits whatever is in the input buffer.
func (c *Controller) SubmitDraft(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()
	return c.Submit(ctx, draft)
}

// SelectOption submits a topic chip's label as a user turn.
func (c *Controller) SelectOption(ctx context.Context, label string) (Snapshot, error) {
	return c.Submit(ctx, label)
}

// Submit appends a user turn, relays the bounded history and records the
// outcome. It blocks until the relay call resolves. A relay failure is not
// returned; it shows up as Snapshot.Error.
func (c *Controller) Submit(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrEmptyInput
	}
	if c.sending {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrBusy
	}

	userMsg := models.Message{Role: models.RoleUser, Content: text}
	history := BoundHistory(c.messages, userMsg, c.budget, c.estimator)

	c.messages = append(c.messages, userMsg)
	c.draft = ""
	c.errMsg = ""
	c.sending = true
	c.seq++
	snap := c.snapshotLocked()
	c.publishUnlock(snap)

	outbound := make([]models.Message, 0, len(history)+1)
	if c.systemPrompt != "" {
		outbound = append(outbound, models.Message{Role: models.RoleSystem, Content: c.systemPrompt})
	}
	outbound = append(outbound, history...)

	reply, err := c.generate(ctx, outbound)

	c.mu.Lock()
	if err != nil {
		slog.Error("Chat relay failed", "session_id", c.id.String(), "error", err)
		c.errMsg = FailureMessage
	} else {
		c.messages = append(c.messages, models.Message{Role: models.RoleAssistant, Content: reply})
	}
	c.sending = false
	c.seq++
	snap = c.snapshotLocked()
	c.publishUnlock(snap)
	return snap, nil
}

// generate calls the relay. A panic is reported as an error so the session
// always leaves the sending state.
func (c *Controller) generate(ctx context.Context, outbound []models.Message) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay panicked: %v", r)
		}
	}()
	return c.relay.Generate(ctx, outbound)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	state := StateIdle
	if c.sending {
		state = StateSending
	}
	msgs := make([]models.Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{
		ID:       c.id,
		Seq:      c.seq,
		State:    state,
		Loading:  c.sending,
		Error:    c.errMsg,
		Draft:    c.draft,
		Messages: msgs,
	}
}

// publishUnlock releases mu and hands snap to the observer. It must be called
// with mu held.
func (c *Controller) publishUnlock(snap Snapshot) {
	if c.onChange == nil {
		c.mu.Unlock()
		return
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.onChange(snap)
}
