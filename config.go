package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config carries every runtime setting. Flags populate it; matching
// GUESSWORD_* environment variables override unset flags.
type Config struct {
	bind           string
	port           int
	dbPath         string
	wordsFile      string
	jwtSecret      string
	jwtExpiry      time.Duration
	cookieName     string
	cookieSecure   bool
	clientOrigin   string
	logLevel       string
	maxDailyGames  int
	sessionTimeout time.Duration
	rateRPS        float64
	rateBurst      int
	adminUser      string
	adminPassword  string
	strictWords    bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxDailyGames < 1 {
		return fmt.Errorf("invalid max-daily-games (must be at least 1): %d", c.maxDailyGames)
	}
	if c.sessionTimeout < time.Minute {
		return fmt.Errorf("invalid session-timeout (must be at least 1m): %s", c.sessionTimeout)
	}
	if c.jwtSecret == "" {
		return errors.New("jwt-secret must not be empty")
	}
	if c.adminPassword == "" {
		return errors.New("admin-password must not be empty")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guessword",
		Short:         "A guess-the-word game server with daily play limits and admin reporting.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSWORD_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: GUESSWORD_PORT)")
	fs.StringVar(&cfg.dbPath, "db", "./data/guessword.db", "path to the sqlite database file (env: GUESSWORD_DB)")
	fs.StringVar(&cfg.wordsFile, "words-file", "", "path to a word list file, one 5-letter word per line; the embedded list is used if empty (env: GUESSWORD_WORDS_FILE)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "dev_secret_change_me", "HMAC key for signing auth tokens (env: GUESSWORD_JWT_SECRET)")
	fs.DurationVar(&cfg.jwtExpiry, "jwt-expiry", 14*24*time.Hour, "lifetime of issued auth tokens (env: GUESSWORD_JWT_EXPIRY)")
	fs.StringVar(&cfg.cookieName, "cookie-name", "guessword_token", "name of the auth cookie (env: GUESSWORD_COOKIE_NAME)")
	fs.BoolVar(&cfg.cookieSecure, "cookie-secure", false, "set Secure + SameSite=None on auth cookies, for cross-site HTTPS deployments (env: GUESSWORD_COOKIE_SECURE)")
	fs.StringVar(&cfg.clientOrigin, "client-origin", "http://localhost:5173", "origin allowed by CORS, with credentials (env: GUESSWORD_CLIENT_ORIGIN)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "zerolog level: trace, debug, info, warn, error (env: GUESSWORD_LOG_LEVEL)")
	fs.IntVar(&cfg.maxDailyGames, "max-daily-games", 3, "games each player may start per local day (env: GUESSWORD_MAX_DAILY_GAMES)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 2*time.Hour, "time before idle game sessions are dropped from memory (env: GUESSWORD_SESSION_TIMEOUT)")
	fs.Float64Var(&cfg.rateRPS, "rate-rps", 5, "per-IP sustained requests per second; 0 disables rate limiting (env: GUESSWORD_RATE_RPS)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 10, "per-IP request burst size (env: GUESSWORD_RATE_BURST)")
	fs.StringVar(&cfg.adminUser, "admin-user", "Admin", "username of the seeded admin account (env: GUESSWORD_ADMIN_USER)")
	fs.StringVar(&cfg.adminPassword, "admin-password", "Admin@123", "initial password for the seeded admin account (env: GUESSWORD_ADMIN_PASSWORD)")
	fs.BoolVar(&cfg.strictWords, "strict-words", false, "reject guesses that are not in the word list (env: GUESSWORD_STRICT_WORDS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guessword v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
