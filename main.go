package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"guessword/internal/httpserver"
	"guessword/internal/limit"
	"guessword/internal/store"
	"guessword/internal/words"
)

const (
	releaseVersion = "0.1.0"
)

func main() {
	_ = godotenv.Load()
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func run(ctx context.Context, cfg *Config) error {
	if lvl, err := zerolog.ParseLevel(cfg.logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(cfg.wordsFile); err != nil {
		return fmt.Errorf("load word list: %w", err)
	}
	log.Info().Int("words", words.Count()).Msg("word list loaded")

	db, err := store.Open(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := db.SeedWords(ctx, words.All()); err != nil {
		return fmt.Errorf("seed words: %w", err)
	}
	adminHash, err := httpserver.HashPassword(cfg.adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.SeedAdmin(ctx, cfg.adminUser, adminHash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	sessions := store.NewSessionStore()
	limiter := limit.New(cfg.maxDailyGames, db.DailyGameCount)

	srv := httpserver.New(db, sessions, limiter, httpserver.Config{
		JWTSecret:    cfg.jwtSecret,
		JWTExpiry:    cfg.jwtExpiry,
		CookieName:   cfg.cookieName,
		CookieSecure: cfg.cookieSecure,
		ClientOrigin: cfg.clientOrigin,
		RateRPS:      cfg.rateRPS,
		RateBurst:    cfg.rateBurst,
		StrictWords:  cfg.strictWords,
	})

	reaperDone := make(chan struct{})
	go reaperLoop(sessions, cfg.sessionTimeout, reaperDone)
	defer close(reaperDone)

	addr := net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigint:
			log.Info().Msg("shutdown signal received")
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", addr).Msg("starting guessword server")
	if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	<-idleConnsClosed
	log.Info().Msg("server shutdown complete")
	return nil
}

// reaperLoop periodically drops in-memory game sessions that have been idle
// longer than idleTimeout. Completed games are already persisted, so a reaped
// session costs the player nothing beyond an abandoned attempt.
func reaperLoop(sessions store.SessionStore, idleTimeout time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := sessions.Reap(time.Now().Add(-idleTimeout)); n > 0 {
				log.Info().Int("sessions", n).Msg("reaped idle game sessions")
			}
		}
	}
}
