// Package session keeps the server-side state of browser tutoring sessions:
// one tool dispatcher per conversation over the shared read-only catalog.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"video-tutor/internal/platform/metrics"
	"video-tutor/internal/toolcall"
	"video-tutor/internal/tutor"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

// Manager is a concurrency-safe registry of sessions. All sessions share one
// tutor.Service.
type Manager struct {
	svc     *tutor.Service
	log     *slog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	store Store
}

// NewManager returns a Manager backed by an in-memory store. Metrics may be nil.
func NewManager(svc *tutor.Service, log *slog.Logger, m *metrics.Metrics) *Manager {
	return NewManagerWithStore(svc, log, m, NewInMemoryStore())
}

// NewManagerWithStore returns a Manager that uses the given Store.
func NewManagerWithStore(svc *tutor.Service, log *slog.Logger, m *metrics.Metrics, store Store) *Manager {
	return &Manager{svc: svc, log: log, metrics: m, store: store}
}

// Create starts a new session with no video loaded.
func (m *Manager) Create() *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:         ID(uuid.NewString()),
		CreatedAt:  now,
		lastActive: now,
	}
	s.dispatcher = toolcall.NewDispatcher(m.svc, m.log.With(slog.String("session_id", string(s.ID))),
		toolcall.WithPlayer(s),
		toolcall.WithMetrics(m.metrics),
	)

	m.mu.Lock()
	m.store.Set(s)
	n := len(m.store.List())
	m.mu.Unlock()

	m.setGauge(n)
	m.log.Info("session created", slog.String("session_id", string(s.ID)))
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id ID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete ends the session with id.
func (m *Manager) Delete(id ID) error {
	m.mu.Lock()
	ok := m.store.Delete(id)
	n := len(m.store.List())
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.setGauge(n)
	m.log.Info("session ended", slog.String("session_id", string(id)))
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store.List())
}

// Prune removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	m.mu.Lock()
	removed := 0
	for _, s := range m.store.List() {
		if s.LastActive().Before(cutoff) {
			m.store.Delete(s.ID)
			removed++
		}
	}
	n := len(m.store.List())
	m.mu.Unlock()

	if removed > 0 {
		m.setGauge(n)
		m.log.Info("idle sessions pruned", slog.Int("removed", removed), slog.Int("remaining", n))
	}
	return removed
}

func (m *Manager) setGauge(n int) {
	if m.metrics != nil {
		m.metrics.SetActiveSessions(n)
	}
}
