// internal/store/sqlite.go
//
// SQLite persistence for the guessword server.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout,
//     foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Seeding the word list and the default admin account.
//   - Row-level reads and writes for users, games, and guesses.
//
// Aggregate reporting queries live in internal/report and run against the
// exported SQL handle.

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle. SQL is exported so reporting code can run
// its own queries against the same pool.
type DB struct {
	SQL *sql.DB
}

// Open opens (and creates if missing) the SQLite database at path.
//
//   - Ensures the parent directory exists for relative paths like
//     ./data/app.db.
//   - Configures busy timeout and WAL journaling.
//   - Enforces foreign keys.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return &DB{SQL: db}, nil
}

// Close closes the underlying pool.
func (d *DB) Close() error { return d.SQL.Close() }

// Migrate applies the embedded migrations in lexical order. Each file runs
// in its own transaction and is recorded in _migrations, so reruns skip
// anything already applied.
func (d *DB) Migrate() error {
	if _, err := d.SQL.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done int
		err := d.SQL.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlText, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := d.SQL.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlText)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

/* ------------------------------- seeding -------------------------------- */

// SeedWords inserts the given words into the words table, ignoring any
// that already exist.
func (d *DB) SeedWords(ctx context.Context, words []string) error {
	tx, err := d.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO words(word) VALUES (?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, w); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed word %s: %w", w, err)
		}
	}
	return tx.Commit()
}

// SeedAdmin creates the admin account if no user with that username
// exists. An existing account, whatever its role or password, is left
// untouched.
func (d *DB) SeedAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := d.SQL.ExecContext(ctx,
		`INSERT OR IGNORE INTO users(id, username, password_hash, role) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), username, passwordHash, RoleAdmin,
	)
	return err
}

/* -------------------------------- users --------------------------------- */

// CreateUser inserts a new account. Returns ErrUsernameTaken when the
// username is already registered.
func (d *DB) CreateUser(ctx context.Context, u *User) error {
	_, err := d.SQL.ExecContext(ctx,
		`INSERT INTO users(id, username, password_hash, role) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Role,
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrUsernameTaken
	}
	return err
}

// UserByUsername looks an account up by its unique username.
func (d *DB) UserByUsername(ctx context.Context, username string) (*User, error) {
	return d.scanUser(d.SQL.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username=?`,
		username,
	))
}

// UserByID looks an account up by id.
func (d *DB) UserByID(ctx context.Context, id string) (*User, error) {
	return d.scanUser(d.SQL.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE id=?`,
		id,
	))
}

// ListUsers returns all accounts ordered by creation time.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.SQL.QueryContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users ORDER BY created_at ASC, username ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

/* -------------------------------- words --------------------------------- */

// RandomWord returns a uniformly random word from the words table.
func (d *DB) RandomWord(ctx context.Context) (string, error) {
	var w string
	err := d.SQL.QueryRowContext(ctx,
		`SELECT word FROM words ORDER BY RANDOM() LIMIT 1`,
	).Scan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return w, err
}

// WordCount returns the number of words available for play.
func (d *DB) WordCount(ctx context.Context) (int, error) {
	var n int
	err := d.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&n)
	return n, err
}

/* -------------------------------- games --------------------------------- */

// CreateGame inserts the row for a game that just started. The insert is
// what the daily quota counts, so it happens before the first guess.
func (d *DB) CreateGame(ctx context.Context, g *GameRow) error {
	_, err := d.SQL.ExecContext(ctx,
		`INSERT INTO games(id, user_id, word, date, state, guesses_used) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Word, g.Date, g.State, g.GuessesUsed,
	)
	return err
}

// CompleteGame records a game's terminal outcome. A single UPDATE keeps
// the transition atomic; the row never reads as half-finished.
func (d *DB) CompleteGame(ctx context.Context, id, state string, guessesUsed int, finishedAt time.Time) error {
	res, err := d.SQL.ExecContext(ctx,
		`UPDATE games SET state=?, guesses_used=?, finished_at=? WHERE id=?`,
		state, guessesUsed, finishedAt, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GameByID fetches one game row.
func (d *DB) GameByID(ctx context.Context, id string) (*GameRow, error) {
	row := d.SQL.QueryRowContext(ctx,
		`SELECT id, user_id, word, date, state, guesses_used, created_at, finished_at FROM games WHERE id=?`,
		id,
	)
	var g GameRow
	var finished sql.NullTime
	err := row.Scan(&g.ID, &g.UserID, &g.Word, &g.Date, &g.State, &g.GuessesUsed, &g.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		g.FinishedAt = finished.Time
	}
	return &g, nil
}

// DailyGameCount reports how many games a user started on the given
// YYYY-MM-DD date. The daily limiter seeds its counters from this.
func (d *DB) DailyGameCount(ctx context.Context, userID, date string) (int, error) {
	var n int
	err := d.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM games WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&n)
	return n, err
}

// GamesForUserOnDate returns a user's games for one day, oldest first.
func (d *DB) GamesForUserOnDate(ctx context.Context, userID, date string) ([]GameRow, error) {
	rows, err := d.SQL.QueryContext(ctx,
		`SELECT id, user_id, word, date, state, guesses_used, created_at, finished_at
		 FROM games WHERE user_id=? AND date=? ORDER BY created_at ASC, rowid ASC`,
		userID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGames(rows)
}

func scanGames(rows *sql.Rows) ([]GameRow, error) {
	var out []GameRow
	for rows.Next() {
		var g GameRow
		var finished sql.NullTime
		if err := rows.Scan(&g.ID, &g.UserID, &g.Word, &g.Date, &g.State, &g.GuessesUsed, &g.CreatedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			g.FinishedAt = finished.Time
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

/* ------------------------------- guesses -------------------------------- */

// InsertGuess appends one evaluated guess for a game. marks is the JSON
// encoding of the per-letter statuses.
func (d *DB) InsertGuess(ctx context.Context, gameID, word, marks string) error {
	_, err := d.SQL.ExecContext(ctx,
		`INSERT INTO guesses(game_id, word, marks) VALUES (?, ?, ?)`,
		gameID, word, marks,
	)
	return err
}

// GuessesForGame returns a game's guesses in submission order.
func (d *DB) GuessesForGame(ctx context.Context, gameID string) ([]GuessRow, error) {
	rows, err := d.SQL.QueryContext(ctx,
		`SELECT id, game_id, word, marks, created_at FROM guesses WHERE game_id=? ORDER BY id ASC`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GuessRow
	for rows.Next() {
		var g GuessRow
		if err := rows.Scan(&g.ID, &g.GameID, &g.Word, &g.Marks, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
