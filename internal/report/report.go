// internal/report/report.go
//
// Aggregate reporting over persisted games, for the admin endpoints.
// Runs read-only queries against the same SQLite pool as the row store;
// nothing here writes.

package report

import (
	"context"
	"database/sql"
	"sort"

	"github.com/samber/lo"
)

// Store runs reporting queries. It only needs a live *sql.DB handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DailySummary aggregates one day of play across all players.
type DailySummary struct {
	Date    string `json:"date"`
	Players int    `json:"players"`
	Games   int    `json:"games"`
	Wins    int    `json:"wins"`
}

// Daily summarizes the given YYYY-MM-DD date: how many distinct players
// started games, how many games were started, and how many were won.
// A day with no games reports zeros rather than an error.
func (s *Store) Daily(ctx context.Context, date string) (*DailySummary, error) {
	out := &DailySummary{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN state='won' THEN 1 ELSE 0 END), 0)
		FROM games
		WHERE date=?`, date,
	).Scan(&out.Players, &out.Games, &out.Wins)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserDay is one day of one player's history: the secrets they played
// against and how the games went.
type UserDay struct {
	Date  string   `json:"date"`
	Words []string `json:"words"`
	Games int      `json:"games"`
	Wins  int      `json:"wins"`
}

type gameLine struct {
	date  string
	word  string
	state string
}

// User returns a player's full history grouped by day, most recent day
// first. Within a day, words appear in the order the games were started.
func (s *Store) User(ctx context.Context, userID string) ([]UserDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, word, state
		FROM games
		WHERE user_id=?
		ORDER BY date DESC, created_at ASC, rowid ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []gameLine
	for rows.Next() {
		var l gameLine
		if err := rows.Scan(&l.date, &l.word, &l.state); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byDate := lo.GroupBy(lines, func(l gameLine) string { return l.date })
	dates := lo.Keys(byDate)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	days := make([]UserDay, 0, len(dates))
	for _, d := range dates {
		group := byDate[d]
		days = append(days, UserDay{
			Date:  d,
			Words: lo.Map(group, func(l gameLine, _ int) string { return l.word }),
			Games: len(group),
			Wins: lo.CountBy(group, func(l gameLine) bool {
				return l.state == "won"
			}),
		})
	}
	return days, nil
}
