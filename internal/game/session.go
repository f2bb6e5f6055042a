// internal/game/session.go
//
// Session state machine for a single guess-the-word round.
// Responsibilities:
//   - Create sessions bound to a player, a secret word, and a local date.
//   - Validate and apply guesses, recording evaluated history in order.
//   - Track state transitions: in_progress → won/lost.
//   - Expose snapshots for API responses and a Record on completion.
//
// Notes:
//   - A session serializes its own mutations with an internal mutex, so
//     concurrent submissions against the same session apply one at a time.
//   - The secret never leaves the session while it is in progress; it is
//     only exposed through the terminal Record and terminal snapshots.
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the state of a single round for one player.
type Session struct {
	id        string
	playerID  string
	secret    string // uppercase, validated at construction
	date      string // YYYY-MM-DD, local day of StartedAt
	startedAt time.Time

	mu           sync.Mutex
	guesses      []GuessResult
	state        State
	finishedAt   time.Time
	lastActivity time.Time

	// allowed reports whether a normalized word may be played. Nil means
	// any well-formed word is accepted.
	allowed func(string) bool
}

// GuessOutcome is the result of one SubmitGuess call.
type GuessOutcome struct {
	Result      GuessResult
	State       State
	GuessesUsed int
	Remaining   int

	// Record is non-nil exactly when this guess moved the session to a
	// terminal state. It carries the secret for persistence and display.
	Record *Record
}

// Snapshot is a read-only view of a session for state queries. SecretWord
// is populated only once the session is terminal.
type Snapshot struct {
	ID          string        `json:"id"`
	PlayerID    string        `json:"playerId"`
	State       State         `json:"state"`
	Guesses     []GuessResult `json:"guesses"`
	GuessesUsed int           `json:"guessesUsed"`
	Remaining   int           `json:"guessesLeft"`
	SecretWord  string        `json:"secretWord,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
}

// NewSession constructs an in-progress session for playerID with the given
// secret. The secret must be a valid word per ValidateWord; startedAt fixes
// both the session timestamp and the local date it counts against.
func NewSession(playerID, secret string, startedAt time.Time) (*Session, error) {
	if playerID == "" {
		return nil, errors.New("empty player id")
	}
	secret = Normalize(secret)
	if err := ValidateWord(secret); err != nil {
		return nil, err
	}
	return &Session{
		id:           uuid.NewString(),
		playerID:     playerID,
		secret:       secret,
		date:         startedAt.Format("2006-01-02"),
		startedAt:    startedAt,
		state:        StateInProgress,
		guesses:      []GuessResult{},
		lastActivity: startedAt,
	}, nil
}

// SetWordValidator installs the allowed-word check applied to every guess.
// Passing nil removes the check.
func (s *Session) SetWordValidator(fn func(string) bool) {
	s.mu.Lock()
	s.allowed = fn
	s.mu.Unlock()
}

// SubmitGuess validates, scores, and records one guess. The history append
// and any state transition happen together under the session lock, so a
// rejected guess leaves the session untouched and observers never see the
// guess without its outcome.
//
// Errors: ErrGameCompleted if the session is terminal, ErrInvalidGuess for
// malformed input, ErrWordNotAllowed when the validator rejects the word.
//
// Transitions, checked in order on each accepted guess:
//   - all letters correct → won (wins on the last guess are still wins)
//   - guesses used reaches MaxGuesses → lost
func (s *Session) SubmitGuess(raw string, now time.Time) (*GuessOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return nil, ErrGameCompleted
	}
	word := Normalize(raw)
	if err := ValidateWord(word); err != nil {
		return nil, err
	}
	if s.allowed != nil && !s.allowed(word) {
		return nil, ErrWordNotAllowed
	}

	marks, err := Evaluate(s.secret, word)
	if err != nil {
		return nil, err
	}

	result := GuessResult{Word: word, Marks: marks}
	s.guesses = append(s.guesses, result)
	s.lastActivity = now

	if allCorrect(marks) {
		s.state = StateWon
	} else if len(s.guesses) >= MaxGuesses {
		s.state = StateLost
	}

	out := &GuessOutcome{
		Result:      result,
		State:       s.state,
		GuessesUsed: len(s.guesses),
		Remaining:   MaxGuesses - len(s.guesses),
	}
	if s.state != StateInProgress {
		s.finishedAt = now
		out.Record = s.recordLocked()
	}
	return out, nil
}

// Snapshot returns a copy-safe view of the session. The guess history slice
// is copied so callers cannot mutate internal state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	guesses := make([]GuessResult, len(s.guesses))
	copy(guesses, s.guesses)

	snap := Snapshot{
		ID:          s.id,
		PlayerID:    s.playerID,
		State:       s.state,
		Guesses:     guesses,
		GuessesUsed: len(s.guesses),
		Remaining:   MaxGuesses - len(s.guesses),
		StartedAt:   s.startedAt,
	}
	if s.state != StateInProgress {
		snap.SecretWord = s.secret
	}
	return snap
}

// recordLocked builds the completion Record. Caller must hold s.mu and the
// session must be terminal.
func (s *Session) recordLocked() *Record {
	return &Record{
		SessionID:   s.id,
		PlayerID:    s.playerID,
		Date:        s.date,
		GuessesUsed: len(s.guesses),
		State:       s.state,
		SecretWord:  s.secret,
		StartedAt:   s.startedAt,
		FinishedAt:  s.finishedAt,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// PlayerID returns the owning player's identifier.
func (s *Session) PlayerID() string { return s.playerID }

// Date returns the local YYYY-MM-DD day the session counts against.
func (s *Session) Date() string { return s.date }

// StartedAt returns the session creation time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsComplete reports whether the session reached a terminal state.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateInProgress
}

// GuessesUsed returns how many guesses have been accepted so far.
func (s *Session) GuessesUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guesses)
}

// RemainingGuesses returns how many attempts are left.
func (s *Session) RemainingGuesses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MaxGuesses - len(s.guesses)
}

// LastActivity returns the time of the most recent accepted guess, or the
// start time if none. The session cleaner uses this to expire idle games.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
