// internal/httpserver/game.go
//
// Game endpoints: starting games, submitting guesses, reading game state,
// and the player's daily quota view.
//
// Flow per game: Authorize reserves a daily slot, the session is created
// in memory and a row is inserted in the database (the insert is what the
// quota counts across restarts). Guesses mutate the in-memory session;
// the row is updated once, when the game reaches a terminal state.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"guessword/internal/game"
	"guessword/internal/limit"
	"guessword/internal/store"
	"guessword/internal/words"
)

// newGameRes is returned by POST /game/new.
type newGameRes struct {
	GameID         string `json:"gameId"`
	GuessesLeft    int    `json:"guessesLeft"`
	GamesUsedToday int    `json:"gamesUsedToday"`
	GamesLeftToday int    `json:"gamesLeftToday"`
}

// handleNewGame reserves a quota slot, picks a secret, and creates the
// game in memory and in the database. Any failure after the reservation
// releases the slot so the player is not charged for a game that never
// started. Admin accounts are for reporting, not playing.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	if me.Role == store.RoleAdmin {
		http.Error(w, `{"error":"admins_cannot_play"}`, http.StatusForbidden)
		return
	}
	now := s.now()

	used, err := s.limiter.Authorize(r.Context(), me.ID, now)
	if errors.Is(err, limit.ErrLimitReached) {
		http.Error(w, `{"error":"limit_reached"}`, http.StatusForbidden)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("authorize game")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	word, err := s.db.RandomWord(r.Context())
	if err != nil {
		// The words table is seeded at startup, but an empty or unreachable
		// table should not take the game down while the embedded list works.
		log.Warn().Err(err).Msg("pick word from db, falling back to embedded list")
		word, err = words.Random()
	}
	if err != nil {
		s.limiter.Release(me.ID, now)
		log.Error().Err(err).Msg("pick word")
		http.Error(w, `{"error":"no_words"}`, http.StatusInternalServerError)
		return
	}

	sess, err := game.NewSession(me.ID, word, now)
	if err != nil {
		s.limiter.Release(me.ID, now)
		log.Error().Err(err).Msg("create session")
		http.Error(w, `{"error":"create_failed"}`, http.StatusInternalServerError)
		return
	}
	if s.cfg.StrictWords {
		sess.SetWordValidator(words.IsWord)
	}

	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.limiter.Release(me.ID, now)
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	row := &store.GameRow{
		ID:     sess.ID(),
		UserID: me.ID,
		Word:   word,
		Date:   sess.Date(),
		State:  string(game.StateInProgress),
	}
	if err := s.db.CreateGame(r.Context(), row); err != nil {
		// The quota counts database rows, so a game without a row must not
		// exist anywhere.
		s.limiter.Release(me.ID, now)
		_ = s.sessions.Delete(r.Context(), sess.ID())
		log.Error().Err(err).Str("gameId", sess.ID()).Msg("insert game row")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	s.hub.broadcast(liveEvent{
		Type:     eventGameStarted,
		GameID:   sess.ID(),
		Username: me.Username,
		At:       now,
	})
	log.Info().Str("gameId", sess.ID()).Str("username", me.Username).Int("usedToday", used).Msg("game started")

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:         sess.ID(),
		GuessesLeft:    game.MaxGuesses,
		GamesUsedToday: used,
		GamesLeftToday: s.limiter.Max() - used,
	})
}

// guessReq/guessRes are the payloads for POST /game/guess.
type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}
type guessRes struct {
	Result      game.GuessResult `json:"result"`
	State       game.State       `json:"state"`
	GuessesUsed int              `json:"guessesUsed"`
	GuessesLeft int              `json:"guessesLeft"`
	TargetWord  string           `json:"targetWord,omitempty"` // set once the game ends
}

// handleGuess applies a guess to a live session. Guess history is
// persisted per guess; the game row is updated once when the session
// reaches a terminal state.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	me := currentUser(r)

	sess, err := s.sessions.Get(r.Context(), req.GameID)
	if err != nil {
		// Finished games are evicted from memory; answer guesses against
		// them from the persisted row so completion stays final.
		if row, dbErr := s.db.GameByID(r.Context(), req.GameID); dbErr == nil {
			if row.UserID != me.ID {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			if row.State != string(game.StateInProgress) {
				http.Error(w, `{"error":"game_completed"}`, http.StatusConflict)
				return
			}
		}
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if sess.PlayerID() != me.ID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	out, err := sess.SubmitGuess(req.Guess, s.now())
	switch {
	case errors.Is(err, game.ErrGameCompleted):
		http.Error(w, `{"error":"game_completed"}`, http.StatusConflict)
		return
	case errors.Is(err, game.ErrWordNotAllowed):
		http.Error(w, `{"error":"word_not_allowed"}`, http.StatusBadRequest)
		return
	case errors.Is(err, game.ErrInvalidGuess):
		http.Error(w, `{"error":"invalid_guess"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	// Persist the guess (best effort, non-fatal if it fails).
	marks, _ := json.Marshal(out.Result.Marks)
	if err := s.db.InsertGuess(r.Context(), sess.ID(), out.Result.Word, string(marks)); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID()).Msg("insert guess")
	}

	res := guessRes{
		Result:      out.Result,
		State:       out.State,
		GuessesUsed: out.GuessesUsed,
		GuessesLeft: out.Remaining,
	}
	if rec := out.Record; rec != nil {
		if err := s.db.CompleteGame(r.Context(), rec.SessionID, string(rec.State), rec.GuessesUsed, rec.FinishedAt); err != nil {
			log.Warn().Err(err).Str("gameId", rec.SessionID).Msg("complete game")
		}
		// The row now carries the full outcome; drop the live session.
		_ = s.sessions.Delete(r.Context(), sess.ID())
		s.hub.broadcast(liveEvent{
			Type:        eventGameFinished,
			GameID:      rec.SessionID,
			Username:    me.Username,
			State:       string(rec.State),
			GuessesUsed: rec.GuessesUsed,
			Word:        rec.SecretWord,
			At:          rec.FinishedAt,
		})
		log.Info().Str("gameId", rec.SessionID).Str("state", string(rec.State)).Int("guesses", rec.GuessesUsed).Msg("game finished")
		res.TargetWord = rec.SecretWord
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleGameState returns a snapshot of one game. Live games come from
// the session store; finished games that have been reaped from memory are
// rebuilt from the database. The secret stays hidden until the game ends.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	me := currentUser(r)

	if sess, err := s.sessions.Get(r.Context(), id); err == nil {
		if sess.PlayerID() != me.ID && me.Role != store.RoleAdmin {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(sess.Snapshot())
		return
	}

	row, err := s.db.GameByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if row.UserID != me.ID && me.Role != store.RoleAdmin {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	guesses, err := s.db.GuessesForGame(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	snap := game.Snapshot{
		ID:          row.ID,
		PlayerID:    row.UserID,
		State:       game.State(row.State),
		Guesses:     make([]game.GuessResult, 0, len(guesses)),
		GuessesUsed: row.GuessesUsed,
		Remaining:   game.MaxGuesses - row.GuessesUsed,
		StartedAt:   row.CreatedAt,
	}
	for _, q := range guesses {
		var marks []game.LetterMark
		_ = json.Unmarshal([]byte(q.Marks), &marks)
		snap.Guesses = append(snap.Guesses, game.GuessResult{Word: q.Word, Marks: marks})
	}
	if snap.State != game.StateInProgress {
		snap.SecretWord = row.Word
	}
	_ = json.NewEncoder(w).Encode(snap)
}

// todayRes is returned by GET /me/today.
type todayRes struct {
	Date      string      `json:"date"`
	MaxGames  int         `json:"maxGames"`
	GamesUsed int         `json:"gamesUsed"`
	GamesLeft int         `json:"gamesLeft"`
	CanPlay   bool        `json:"canPlay"`
	Games     []todayGame `json:"games"`
}
type todayGame struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	GuessesUsed int    `json:"guessesUsed"`
	Word        string `json:"word,omitempty"` // hidden while in progress
}

// handleMeToday reports the caller's quota and games for the current day.
func (s *Server) handleMeToday(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	now := s.now()
	date := limit.DateKey(now)

	used, err := s.limiter.Used(r.Context(), me.ID, now)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	rows, err := s.db.GamesForUserOnDate(r.Context(), me.ID, date)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	left := s.limiter.Max() - used
	if left < 0 {
		left = 0
	}
	_ = json.NewEncoder(w).Encode(todayRes{
		Date:      date,
		MaxGames:  s.limiter.Max(),
		GamesUsed: used,
		GamesLeft: left,
		CanPlay:   left > 0 && me.Role != store.RoleAdmin,
		Games: lo.Map(rows, func(g store.GameRow, _ int) todayGame {
			tg := todayGame{ID: g.ID, State: g.State, GuessesUsed: g.GuessesUsed}
			if g.State != string(game.StateInProgress) {
				tg.Word = g.Word
			}
			return tg
		}),
	})
}
