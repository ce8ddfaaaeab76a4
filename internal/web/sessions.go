package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alphabot-ai/snooze/internal/page"
)

// session is one browser's page state.
type session struct {
	id         string
	controller *page.Controller

	mu      sync.Mutex
	started bool
}

// start loads the stories the first time it succeeds. Failures leave the
// error on the view and are retried on the next request.
func (s *session) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	if err := s.controller.Start(ctx); err == nil {
		s.started = true
	}
}

type sessionEntry struct {
	session  *session
	lastSeen time.Time
}

// registry is the in-memory session registry.
type registry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[string]*sessionEntry),
		now:     time.Now,
	}
}

// get returns the session for id and marks it as seen, or nil.
func (s *registry) get(id string) *session {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	e.lastSeen = s.now()
	return e.session
}

// create registers a new session with a fresh id.
func (s *registry) create(controller *page.Controller) *session {
	sess := &session{
		id:         uuid.NewString(),
		controller: controller,
	}

	s.mu.Lock()
	s.entries[sess.id] = &sessionEntry{session: sess, lastSeen: s.now()}
	s.mu.Unlock()

	return sess
}

// sweep drops sessions idle for longer than idleTTL and returns their ids.
func (s *registry) sweep(idleTTL time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idleTTL)
	var removed []string
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (s *registry) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
