// internal/httpserver/admin.go
//
// Admin-only endpoints: daily and per-user reports, the player roster,
// and full game detail (secrets included). All routes here sit behind
// requireAuth + requireRole(admin).

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"guessword/internal/limit"
	"guessword/internal/store"
)

// handleDailyReport summarizes one day of play. ?date=YYYY-MM-DD selects
// the day; the default is today.
func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = limit.DateKey(s.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, `{"error":"bad_date"}`, http.StatusBadRequest)
		return
	}

	summary, err := s.reports.Daily(r.Context(), date)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(summary)
}

// handleUserReport returns one player's full history grouped by day.
func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	u, err := s.db.UserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	days, err := s.reports.User(r.Context(), u.ID)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"username": u.Username,
		"days":     days,
	})
}

// playerInfo is the roster entry shape; no password hashes leave the
// server.
type playerInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// handlePlayers lists all registered accounts.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers(r.Context())
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lo.Map(users, func(u store.User, _ int) playerInfo {
		return playerInfo{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
	}))
}

// gameDetail is the admin view of one game, secret included.
type gameDetail struct {
	Game    *store.GameRow `json:"game"`
	Guesses []guessDetail  `json:"guesses"`
}
type guessDetail struct {
	Word  string          `json:"word"`
	Marks json.RawMessage `json:"marks"`
	At    time.Time       `json:"at"`
}

// handleGameDetail returns a game row with its guess history.
func (s *Server) handleGameDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	row, err := s.db.GameByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	guesses, err := s.db.GuessesForGame(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(gameDetail{
		Game: row,
		Guesses: lo.Map(guesses, func(g store.GuessRow, _ int) guessDetail {
			return guessDetail{Word: g.Word, Marks: json.RawMessage(g.Marks), At: g.CreatedAt}
		}),
	})
}
