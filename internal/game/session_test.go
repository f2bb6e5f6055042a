package game

import (
	"errors"
	"sync"
	"testing"
	"time"
)

const (
	testPlayerID = "player-1"
	testSecret   = "CRANE"
	wrongGuess   = "STORM"
)

var testStart = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testPlayerID, testSecret, testStart)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t)

	if s.ID() == "" {
		t.Error("session has empty id")
	}
	if s.PlayerID() != testPlayerID {
		t.Errorf("PlayerID() = %q, want %q", s.PlayerID(), testPlayerID)
	}
	if s.State() != StateInProgress {
		t.Errorf("State() = %q, want %q", s.State(), StateInProgress)
	}
	if s.RemainingGuesses() != MaxGuesses {
		t.Errorf("RemainingGuesses() = %d, want %d", s.RemainingGuesses(), MaxGuesses)
	}
	if s.Date() != "2026-03-14" {
		t.Errorf("Date() = %q, want %q", s.Date(), "2026-03-14")
	}
}

func TestNewSessionRejectsBadInput(t *testing.T) {
	if _, err := NewSession("", testSecret, testStart); err == nil {
		t.Error("NewSession with empty player id did not fail")
	}
	if _, err := NewSession(testPlayerID, "ABC", testStart); !errors.Is(err, ErrInvalidGuess) {
		t.Errorf("NewSession with short secret = %v, want ErrInvalidGuess", err)
	}
	if _, err := NewSession(testPlayerID, "CR4NE", testStart); !errors.Is(err, ErrInvalidGuess) {
		t.Errorf("NewSession with digit in secret = %v, want ErrInvalidGuess", err)
	}
}

func TestNewSessionNormalizesSecret(t *testing.T) {
	s, err := NewSession(testPlayerID, "  crane ", testStart)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	out, err := s.SubmitGuess("CRANE", testStart)
	if err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	if out.State != StateWon {
		t.Errorf("state after matching guess = %q, want %q", out.State, StateWon)
	}
}

func TestSubmitGuessWinOnFirst(t *testing.T) {
	s := newTestSession(t)

	out, err := s.SubmitGuess(testSecret, testStart.Add(time.Minute))
	if err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	if out.State != StateWon {
		t.Errorf("state = %q, want %q", out.State, StateWon)
	}
	if out.GuessesUsed != 1 || out.Remaining != MaxGuesses-1 {
		t.Errorf("used/remaining = %d/%d, want 1/%d", out.GuessesUsed, out.Remaining, MaxGuesses-1)
	}
	if out.Record == nil {
		t.Fatal("winning guess did not produce a record")
	}
	if out.Record.SecretWord != testSecret {
		t.Errorf("record secret = %q, want %q", out.Record.SecretWord, testSecret)
	}
	if out.Record.State != StateWon {
		t.Errorf("record state = %q, want %q", out.Record.State, StateWon)
	}
	if out.Record.GuessesUsed != 1 {
		t.Errorf("record guesses = %d, want 1", out.Record.GuessesUsed)
	}
}

func TestSubmitGuessWinOnFinalGuess(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < MaxGuesses-1; i++ {
		out, err := s.SubmitGuess(wrongGuess, testStart)
		if err != nil {
			t.Fatalf("guess %d returned error: %v", i+1, err)
		}
		if out.State != StateInProgress {
			t.Fatalf("guess %d moved state to %q", i+1, out.State)
		}
		if out.Record != nil {
			t.Fatalf("guess %d produced a record while in progress", i+1)
		}
	}

	// A correct final guess wins even though the attempt budget is spent.
	out, err := s.SubmitGuess(testSecret, testStart)
	if err != nil {
		t.Fatalf("final guess returned error: %v", err)
	}
	if out.State != StateWon {
		t.Errorf("state after correct final guess = %q, want %q", out.State, StateWon)
	}
	if out.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", out.Remaining)
	}
}

func TestSubmitGuessLossAfterMaxGuesses(t *testing.T) {
	s := newTestSession(t)

	var last *GuessOutcome
	for i := 0; i < MaxGuesses; i++ {
		out, err := s.SubmitGuess(wrongGuess, testStart)
		if err != nil {
			t.Fatalf("guess %d returned error: %v", i+1, err)
		}
		last = out
	}

	if last.State != StateLost {
		t.Errorf("state after %d wrong guesses = %q, want %q", MaxGuesses, last.State, StateLost)
	}
	if last.Record == nil {
		t.Fatal("losing final guess did not produce a record")
	}
	if last.Record.SecretWord != testSecret {
		t.Errorf("record secret = %q, want %q", last.Record.SecretWord, testSecret)
	}
	if !s.IsComplete() {
		t.Error("IsComplete() = false after loss")
	}
}

func TestSubmitGuessAfterCompletion(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.SubmitGuess(testSecret, testStart); err != nil {
		t.Fatalf("winning guess returned error: %v", err)
	}
	if _, err := s.SubmitGuess(wrongGuess, testStart); !errors.Is(err, ErrGameCompleted) {
		t.Errorf("guess after win = %v, want ErrGameCompleted", err)
	}
	if s.GuessesUsed() != 1 {
		t.Errorf("rejected guess changed history: used = %d, want 1", s.GuessesUsed())
	}
}

func TestSubmitGuessInvalidDoesNotConsumeAttempt(t *testing.T) {
	tests := []struct {
		name  string
		guess string
	}{
		{"too short", "CAT"},
		{"too long", "CRANES"},
		{"digit", "CR4NE"},
		{"empty", ""},
		{"whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			if _, err := s.SubmitGuess(tt.guess, testStart); !errors.Is(err, ErrInvalidGuess) {
				t.Errorf("SubmitGuess(%q) = %v, want ErrInvalidGuess", tt.guess, err)
			}
			if s.GuessesUsed() != 0 {
				t.Errorf("invalid guess consumed an attempt: used = %d", s.GuessesUsed())
			}
			if s.State() != StateInProgress {
				t.Errorf("invalid guess changed state to %q", s.State())
			}
		})
	}
}

func TestSubmitGuessWordValidator(t *testing.T) {
	s := newTestSession(t)
	s.SetWordValidator(func(w string) bool { return w == testSecret })

	if _, err := s.SubmitGuess(wrongGuess, testStart); !errors.Is(err, ErrWordNotAllowed) {
		t.Errorf("disallowed word = %v, want ErrWordNotAllowed", err)
	}
	if s.GuessesUsed() != 0 {
		t.Errorf("disallowed word consumed an attempt: used = %d", s.GuessesUsed())
	}

	out, err := s.SubmitGuess(testSecret, testStart)
	if err != nil {
		t.Fatalf("allowed word returned error: %v", err)
	}
	if out.State != StateWon {
		t.Errorf("state = %q, want %q", out.State, StateWon)
	}
}

func TestSubmitGuessNormalizesInput(t *testing.T) {
	s := newTestSession(t)

	out, err := s.SubmitGuess("  crane ", testStart)
	if err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	if out.State != StateWon {
		t.Errorf("state = %q, want %q", out.State, StateWon)
	}
	if out.Result.Word != testSecret {
		t.Errorf("recorded word = %q, want normalized %q", out.Result.Word, testSecret)
	}
}

func TestSnapshotHidesSecretUntilTerminal(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.SubmitGuess(wrongGuess, testStart); err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	snap := s.Snapshot()
	if snap.SecretWord != "" {
		t.Errorf("in-progress snapshot leaked secret %q", snap.SecretWord)
	}
	if snap.GuessesUsed != 1 || snap.Remaining != MaxGuesses-1 {
		t.Errorf("snapshot used/remaining = %d/%d, want 1/%d", snap.GuessesUsed, snap.Remaining, MaxGuesses-1)
	}
	if len(snap.Guesses) != 1 || snap.Guesses[0].Word != wrongGuess {
		t.Errorf("snapshot history = %+v, want one entry for %q", snap.Guesses, wrongGuess)
	}

	if _, err := s.SubmitGuess(testSecret, testStart); err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	snap = s.Snapshot()
	if snap.SecretWord != testSecret {
		t.Errorf("terminal snapshot secret = %q, want %q", snap.SecretWord, testSecret)
	}
	if snap.State != StateWon {
		t.Errorf("terminal snapshot state = %q, want %q", snap.State, StateWon)
	}
}

func TestSnapshotCopiesHistory(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.SubmitGuess(wrongGuess, testStart); err != nil {
		t.Fatalf("SubmitGuess returned error: %v", err)
	}
	snap := s.Snapshot()
	snap.Guesses[0].Word = "XXXXX"

	if got := s.Snapshot().Guesses[0].Word; got != wrongGuess {
		t.Errorf("mutating snapshot changed session history: %q", got)
	}
}

func TestSubmitGuessConcurrent(t *testing.T) {
	s := newTestSession(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SubmitGuess(wrongGuess, testStart)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrGameCompleted):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if accepted != MaxGuesses {
		t.Errorf("accepted = %d, want %d", accepted, MaxGuesses)
	}
	if rejected != workers-MaxGuesses {
		t.Errorf("rejected = %d, want %d", rejected, workers-MaxGuesses)
	}
	if s.State() != StateLost {
		t.Errorf("state = %q, want %q", s.State(), StateLost)
	}
	if s.GuessesUsed() != MaxGuesses {
		t.Errorf("history length = %d, want %d", s.GuessesUsed(), MaxGuesses)
	}
}
