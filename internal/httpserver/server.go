// internal/httpserver/server.go
//
// HTTP server wiring for the guessword backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request
//     IDs, per-IP rate limiting).
//   - Public endpoints: "/", "/health".
//   - Auth endpoints: /auth/register, /auth/login, /auth/logout, /auth/me.
//   - Game endpoints (require auth): POST /game/new, POST /game/guess,
//     GET /game/{id}, GET /me/today.
//   - Admin endpoints (require admin role): reports, player list, game
//     detail, and the live event feed.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The live feed is a WebSocket, so it is registered outside the
//     request-timeout group.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"guessword/internal/limit"
	"guessword/internal/report"
	"guessword/internal/store"
)

// Config carries the handler-visible settings. The binary's flag/env layer
// populates it; tests fill in only what they need.
type Config struct {
	JWTSecret    string
	JWTExpiry    time.Duration
	CookieName   string
	CookieSecure bool
	ClientOrigin string
	RateRPS      float64 // per-IP request rate; <= 0 disables limiting
	RateBurst    int
	StrictWords  bool // reject guesses outside the word list
}

// Server bundles the router, persistence, quota limiter, and live feed.
type Server struct {
	r        *chi.Mux
	db       *store.DB
	sessions store.SessionStore
	limiter  *limit.Limiter
	reports  *report.Store
	hub      *hub
	cfg      Config
	started  time.Time

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(db *store.DB, sessions store.SessionStore, limiter *limit.Limiter, cfg Config) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "guessword_token"
	}
	if cfg.JWTExpiry <= 0 {
		cfg.JWTExpiry = 14 * 24 * time.Hour
	}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "http://localhost:5173"
	}

	s := &Server{
		r:        chi.NewRouter(),
		db:       db,
		sessions: sessions,
		limiter:  limiter,
		reports:  report.NewStore(db.SQL),
		hub:      newHub(),
		cfg:      cfg,
		started:  time.Now(),
		now:      time.Now,
	}
	go s.hub.run()

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	if cfg.RateRPS > 0 {
		s.r.Use(newIPRateLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst).middleware)
	}
	s.r.Use(s.cors)

	// JSON API routes run under a request timeout. The WebSocket feed is
	// registered outside this group because the timeout would cancel its
	// context mid-stream.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"guessword","endpoints":["/health","/auth/*","POST /game/new","POST /game/guess","GET /game/{id}","GET /me/today","/admin/*"]}`))
		})
		r.Get("/health", s.handleHealth)

		// --- auth ---
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/auth/me", s.handleMe)

		// --- game ---
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/game/new", s.handleNewGame)
			r.Post("/game/guess", s.handleGuess)
			r.Get("/game/{id}", s.handleGameState)
			r.Get("/me/today", s.handleMeToday)
		})

		// --- admin ---
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth, s.requireRole(store.RoleAdmin))
			r.Get("/admin/reports/daily", s.handleDailyReport)
			r.Get("/admin/reports/user/{username}", s.handleUserReport)
			r.Get("/admin/players", s.handlePlayers)
			r.Get("/admin/games/{id}", s.handleGameDetail)
		})

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	// --- live feed (WebSocket, admin only) ---
	s.r.With(s.requireAuth, s.requireRole(store.RoleAdmin)).Get("/admin/live", s.handleLive)

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler { return s.r }

// handleHealth reports liveness plus a few cheap diagnostics: uptime and
// how many words are available for play.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	wordCount, err := s.db.WordCount(r.Context())
	if err != nil {
		wordCount = -1
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"wordsLoaded": wordCount,
		"timestamp":   s.now().UTC().Format(time.RFC3339),
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------- rate limiting ---------------------------------

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for a
// few minutes are dropped by a background sweep.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps rate.Limit, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &ipRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rps,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

func (rl *ipRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *ipRateLimiter) cleanup() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(r.RemoteAddr).Allow() {
			http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
