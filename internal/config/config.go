package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

const (
	StageProd = "prod"
	StageDev  = "dev"
)

type Config struct {
	Stage       string
	Port        int
	DatabaseURL string
	LogLevel    string

	Rules mb.Rules

	// Hash key for the signed identity cookie.
	SessionSecret  string
	AllowedOrigins []string

	// Inbound messages per second per connection, and burst.
	MsgRate  float64
	MsgBurst int

	// Bound on a single push to one player. A push that misses it drops the
	// player's connection.
	WriteTimeout time.Duration

	// Zero disables treating a long disconnect as leaving.
	DisconnectGrace time.Duration

	// Zero disables sweeping idle in-memory sessions.
	SessionTTL time.Duration

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerConsecutiveFails uint32
}

// Load reads .env outside of prod and then the environment.
func Load() (Config, error) {
	if os.Getenv("STAGE") != StageProd {
		// .env is optional in dev
		_ = godotenv.Load(".env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a getenv-like lookup.
func FromEnv(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}

	cfg := Config{
		Stage:       env.str("STAGE", StageDev),
		Port:        env.integer("PORT", 8000),
		DatabaseURL: env.str("DATABASE_URL", ""),
		LogLevel:    env.str("LOG_LEVEL", "INFO"),
		Rules: mb.Rules{
			GridSize: env.integer("GRID_SIZE", mb.GridSizeDefault),
		},
		SessionSecret:           env.str("SESSION_SECRET", ""),
		AllowedOrigins:          env.list("ALLOWED_ORIGINS"),
		MsgRate:                 env.decimal("MSG_RATE", 5),
		MsgBurst:                env.integer("MSG_BURST", 10),
		WriteTimeout:            env.duration("WRITE_TIMEOUT", time.Second*10),
		DisconnectGrace:         env.duration("DISCONNECT_GRACE", 0),
		SessionTTL:              env.duration("SESSION_TTL", time.Hour*2),
		BreakerMaxRequests:      uint32(env.integer("BREAKER_MAX_REQUESTS", 1)),
		BreakerInterval:         env.duration("BREAKER_INTERVAL", time.Minute),
		BreakerTimeout:          env.duration("BREAKER_TIMEOUT", time.Second*30),
		BreakerConsecutiveFails: uint32(env.integer("BREAKER_CONSECUTIVE_FAILS", 5)),
	}

	manifest, err := mb.ParseManifest(env.str("FLEET", mb.DefaultManifest().String()))
	if err != nil {
		env.errs = append(env.errs, fmt.Errorf("FLEET: %w", err))
	}
	cfg.Rules.Manifest = manifest

	rule, ok := mb.ParseTurnRule(env.str("TURN_RULE", string(mb.TurnRuleSinkPassesTurn)))
	if !ok {
		env.errs = append(env.errs, fmt.Errorf("TURN_RULE: unknown rule %q", getenv("TURN_RULE")))
	}
	cfg.Rules.TurnRule = rule

	if len(env.errs) > 0 {
		return Config{}, env.errs[0]
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Stage != StageDev && c.Stage != StageProd {
		return fmt.Errorf("stage must be either dev or prod, got %q", c.Stage)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if err := c.Rules.Check(); err != nil {
		return fmt.Errorf("game rules: %w", err)
	}
	if c.Stage == StageProd && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in prod")
	}
	if c.MsgRate <= 0 || c.MsgBurst <= 0 {
		return fmt.Errorf("MSG_RATE and MSG_BURST must be positive")
	}
	if c.DisconnectGrace < 0 || c.SessionTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive")
	}
	return nil
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) integer(key string, fallback int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *envReader) decimal(key string, fallback float64) float64 {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (e *envReader) list(key string) []string {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
