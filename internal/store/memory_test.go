package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"guessword/internal/game"
)

func newTestGame(t *testing.T) *game.Session {
	t.Helper()
	s, err := game.NewSession("player-1", "CRANE", time.Now())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	return s
}

func TestSessionStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	ss := NewSessionStore()
	s := newTestGame(t)

	if err := ss.Save(ctx, s); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := ss.Get(ctx, s.ID())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID() != s.ID() {
		t.Errorf("Get returned session %q, want %q", got.ID(), s.ID())
	}
}

func TestSessionStoreGetMissing(t *testing.T) {
	ss := NewSessionStore()
	if _, err := ss.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	ss := NewSessionStore()
	s := newTestGame(t)

	if err := ss.Save(ctx, s); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := ss.Delete(ctx, s.ID()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := ss.Get(ctx, s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	// Deleting again is a no-op.
	if err := ss.Delete(ctx, s.ID()); err != nil {
		t.Errorf("second Delete returned error: %v", err)
	}
}

func TestSessionStoreReap(t *testing.T) {
	ctx := context.Background()
	ss := NewSessionStore()

	old, err := game.NewSession("player-1", "CRANE", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	fresh := newTestGame(t)

	if err := ss.Save(ctx, old); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := ss.Save(ctx, fresh); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if n := ss.Reap(time.Now().Add(-time.Hour)); n != 1 {
		t.Errorf("Reap dropped %d sessions, want 1", n)
	}
	if _, err := ss.Get(ctx, old.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session survived reap: %v", err)
	}
	if _, err := ss.Get(ctx, fresh.ID()); err != nil {
		t.Errorf("active session reaped: %v", err)
	}
}
