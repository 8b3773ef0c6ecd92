package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/typeid"
)

// EngineFactory builds the engine for a new session.
type EngineFactory func() *engine.Engine

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session // sessionID -> session
	factory  EngineFactory
	ttl      time.Duration
	metrics  *metrics
	now      func() time.Time
}

// NewHub creates a hub. Sessions idle for longer than ttl are reaped by Run;
// a zero ttl keeps them until removed.
func NewHub(factory EngineFactory, ttl time.Duration) (*Hub, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Hub{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Create starts a session with a fresh engine.
func (h *Hub) Create() *Session {
	s := newSession(typeid.NewSessionID(), h.factory(), h.metrics)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	h.metrics.sessions.Add(context.Background(), 1)
	h.metrics.active.Add(context.Background(), 1)
	slog.Info("session created", "session", s.ID)
	return s
}

func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove closes and forgets a session.
func (h *Hub) Remove(id string) error {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.Close()
	h.metrics.active.Add(context.Background(), -1)
	slog.Info("session closed", "session", id)
	return nil
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Run reaps idle sessions until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.ttl <= 0 {
		return
	}

	interval := h.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := h.Reap(); n > 0 {
				slog.Info("reaped idle sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Reap removes sessions whose last activity is older than the ttl and
// reports how many were removed.
func (h *Hub) Reap() int {
	if h.ttl <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.ttl)

	h.mu.RLock()
	var idle []string
	for id, s := range h.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	h.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if h.Remove(id) == nil {
			removed++
		}
	}
	return removed
}

// Stop closes every session.
func (h *Hub) Stop() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		h.metrics.active.Add(context.Background(), -1)
	}
	slog.Info("hub stopped", "sessions", len(sessions))
}
