// internal/game/types.go
//
// Core type definitions for the guess-the-word engine.
// Defines:
//   - LetterStatus: per-letter result of a guess (correct/wrong_position/absent).
//   - LetterMark: one evaluated letter of a guess.
//   - GuessResult: one fully evaluated guess row.
//   - State: lifecycle of a session (in_progress/won/lost).
//   - Record: the completion snapshot handed to the persistence layer.

package game

import (
	"errors"
	"time"
)

const (
	// MaxGuesses is the number of attempts a player gets per session.
	MaxGuesses = 5

	// WordLength is the fixed length of secrets and guesses.
	WordLength = 5
)

// LetterStatus represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "correct":        letter is in the correct position.
//   - "wrong_position": letter exists in the secret but in a different position.
//   - "absent":         letter does not exist in the secret (after accounting
//     for duplicates consumed by the other two statuses).
type LetterStatus string

const (
	StatusCorrect       LetterStatus = "correct"
	StatusWrongPosition LetterStatus = "wrong_position"
	StatusAbsent        LetterStatus = "absent"
)

// LetterMark pairs a guessed letter with its evaluation status.
type LetterMark struct {
	Letter string       `json:"letter"`
	Status LetterStatus `json:"status"`
}

// GuessResult is one evaluated guess: the normalized word and its per-letter
// marks in guess order. Immutable once produced.
type GuessResult struct {
	Word  string       `json:"word"`
	Marks []LetterMark `json:"marks"`
}

// State holds the lifecycle of a single session.
type State string

const (
	StateInProgress State = "in_progress"
	StateWon        State = "won"
	StateLost       State = "lost"
)

// Record is the completion snapshot a terminal session exposes for
// persistence and reporting: who played, when, how many guesses, the
// outcome, and the secret word.
type Record struct {
	SessionID   string    `json:"sessionId"`
	PlayerID    string    `json:"playerId"`
	Date        string    `json:"date"` // YYYY-MM-DD, local day the session started
	GuessesUsed int       `json:"guessesUsed"`
	State       State     `json:"state"`
	SecretWord  string    `json:"secretWord"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// Sentinel errors returned by the engine. Handlers match on these with
// errors.Is and translate them to HTTP responses.
var (
	// ErrLengthMismatch reports an Evaluate call with secret and guess of
	// different lengths. This is a caller contract violation; no partial
	// evaluation is attempted.
	ErrLengthMismatch = errors.New("secret and guess length mismatch")

	// ErrInvalidGuess rejects guesses that are not exactly WordLength
	// uppercase A-Z letters.
	ErrInvalidGuess = errors.New("guess must be exactly 5 letters")

	// ErrWordNotAllowed rejects guesses outside the configured word list
	// when a validator is installed.
	ErrWordNotAllowed = errors.New("word not in word list")

	// ErrGameCompleted rejects guesses submitted after the session reached
	// a terminal state.
	ErrGameCompleted = errors.New("game already completed")
)
