package httpapi

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/ports/adapters/headless"
	"github.com/forPelevin/clipmark/internal/session"
)

// entry guards one session. cancel stops the generation in flight, if any.
type entry struct {
	mu     sync.Mutex
	sess   *session.Session
	cancel context.CancelFunc
}

func (e *entry) stopGeneration() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

type store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

func newStore() *store {
	return &store{sessions: make(map[uuid.UUID]*entry)}
}

func newPlayer(duration float64) ports.Player { return headless.New(duration) }

func (s *store) create(duration float64) (uuid.UUID, *entry) {
	id := uuid.New()
	e := &entry{sess: session.New(duration, newPlayer)}
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()
	return id, e
}

func (s *store) get(id uuid.UUID) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *store) remove(id uuid.UUID) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return e, ok
}

// closeAll cancels every generation in flight.
func (s *store) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.sessions {
		e.mu.Lock()
		e.stopGeneration()
		e.mu.Unlock()
	}
}
