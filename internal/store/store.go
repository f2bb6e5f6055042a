// internal/store/store.go
//
// Shared persistence types for the guessword server.
// Row types mirror the SQLite schema in migrations/; sentinel errors let
// handlers translate storage failures without knowing the backend.

package store

import (
	"errors"
	"time"
)

// Roles assignable to users. Admins can read reports and the live feed.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

var (
	// ErrNotFound reports a lookup that matched no row.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken reports a registration against an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)

// User is one account row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GameRow is one persisted game. A row is inserted when the game starts,
// which is what the daily quota counts, and updated once when it ends.
type GameRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Word        string    `json:"word"`
	Date        string    `json:"date"` // YYYY-MM-DD local day the game started
	State       string    `json:"state"`
	GuessesUsed int       `json:"guessesUsed"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt"` // zero while in progress
}

// GuessRow is one persisted guess with its evaluated marks as JSON.
type GuessRow struct {
	ID        int64     `json:"id"`
	GameID    string    `json:"gameId"`
	Word      string    `json:"word"`
	Marks     string    `json:"marks"`
	CreatedAt time.Time `json:"createdAt"`
}
