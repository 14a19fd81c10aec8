package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps live sessions in memory. Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Controller
	relay    Relay
	opts     Options
	observer func(Snapshot)
}

// NewStore creates sessions that share relay and opts. observer, if non-nil,
// is attached to every session as its OnChange hook.
func NewStore(relay Relay, opts Options, observer func(Snapshot)) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Controller),
		relay:    relay,
		opts:     opts,
		observer: observer,
	}
}

func (s *Store) Create() *Controller {
	opts := s.opts
	if s.observer != nil {
		opts.OnChange = s.observer
	}
	c := NewController(uuid.New(), s.relay, opts)

	s.mu.Lock()
	s.sessions[c.ID()] = c
	s.mu.Unlock()
	return c
}

func (s *Store) Get(id uuid.UUID) (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
