package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"xplore/internal/core/ports"
)

// Manager owns the live sessions of a server. Sessions are created on
// first use and restored from the history store when one is configured.
type Manager struct {
	ws       *Workspace
	store    ports.HistoryStore
	capacity int
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager. store may be nil to keep history in memory
// only; ttl <= 0 disables expiry.
func NewManager(ws *Workspace, store ports.HistoryStore, historyCapacity int, ttl time.Duration) *Manager {
	return &Manager{
		ws:       ws,
		store:    store,
		capacity: historyCapacity,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Workspace returns the shared workspace.
func (m *Manager) Workspace() *Workspace { return m.ws }

// Get returns the session for id, creating it (and restoring persisted
// history) when it does not exist. An empty or malformed id yields a new
// session with a fresh id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, false
	}
	s := New(id, m.ws, nil, m.capacity)
	m.sessions[id] = s
	m.mu.Unlock()

	if m.store != nil {
		state, ok, err := m.store.LoadHistory(ctx, id)
		if err != nil {
			slog.Warn("failed to restore session history", "session", id, "error", err)
		} else if ok {
			s.Restore(state)
		}
	}
	return s, true
}

// Persist saves the session's history when a store is configured.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	if m.store == nil {
		return nil
	}
	return m.store.SaveHistory(ctx, s.ID(), s.Snapshot())
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL, persisting each one
// first. It returns the number removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleFor(now) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := m.Persist(ctx, s); err != nil {
			slog.Warn("failed to persist expired session", "session", s.ID(), "error", err)
		}
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(ctx, now); n > 0 {
				slog.Debug("expired idle sessions", "count", n)
			}
		}
	}
}
