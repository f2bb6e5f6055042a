// internal/store/memory.go
//
// In-memory store for live game sessions.
// Active sessions carry the secret word, so they live in process memory
// and never round-trip through the database; only game rows and guesses
// are persisted. State here is lost on restart, which forfeits any games
// that were mid-flight (their quota slots stay consumed).
//
// Characteristics:
//   - Stores *game.Session keyed by session ID.
//   - Concurrency-safe via RWMutex; per-guess mutation is serialized by
//     the session itself.
//   - Reap drops idle sessions so abandoned games do not accumulate.

package store

import (
	"context"
	"sync"
	"time"

	"guessword/internal/game"
)

// SessionStore is the persistence interface for live sessions. The memory
// implementation is the only one today; the interface keeps handlers
// decoupled from it.
type SessionStore interface {
	// Save persists or updates a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete removes a session. Deleting a missing ID is a no-op.
	Delete(ctx context.Context, id string) error

	// Reap removes sessions whose last activity is before cutoff,
	// returning how many were dropped. Finished sessions stop updating
	// their activity time, so they age out on the same schedule.
	Reap(cutoff time.Time) int
}

type memorySessions struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// NewSessionStore constructs an empty in-memory SessionStore.
func NewSessionStore() SessionStore {
	return &memorySessions{sessions: make(map[string]*game.Session)}
}

func (m *memorySessions) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

func (m *memorySessions) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) Reap(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
