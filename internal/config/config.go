package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	LogDir       string
	Debug        bool
	Security     SecurityConfig
}

// Limit is a fixed-window quota for one operation.
type Limit struct {
	Max    int
	Window time.Duration
}

// SecurityConfig tunes the input-security pipeline.
type SecurityConfig struct {
	StrictMode     bool
	MemoryCap      int
	StoreCap       int
	BlockThreshold int
	BlockWindow    time.Duration
	BlockCooldown  time.Duration
	MetricsWindow  time.Duration
	Retention      time.Duration
	AlertTimeout   time.Duration

	CreateLimit Limit
	UpdateLimit Limit
	DeleteLimit Limit

	// Per-IP token bucket in front of the API. FloodRPS <= 0 disables it.
	FloodRPS   float64
	FloodBurst int

	AlertURLs     []string
	PatternFile   string
	SweepSchedule string
	CORSOrigins   []string
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
// A .env file in the working directory is applied first; real env vars win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var p parser
	cfg := Config{
		Environment:  getEnv("FLEETDESK_ENV", "development"),
		HTTPPort:     getEnv("FLEETDESK_HTTP_PORT", "8080"),
		DatabasePath: getEnv("FLEETDESK_DB_PATH", filepath.Join("data", "fleetdesk.db")),
		LogDir:       getEnv("FLEETDESK_LOG_DIR", filepath.Join("data", "logs")),
		Debug:        p.bool("FLEETDESK_DEBUG", false),
		Security: SecurityConfig{
			StrictMode:     p.bool("FLEETDESK_STRICT_MODE", false),
			MemoryCap:      p.int("FLEETDESK_LEDGER_MEMORY_CAP", 1000),
			StoreCap:       p.int("FLEETDESK_LEDGER_STORE_CAP", 100),
			BlockThreshold: p.int("FLEETDESK_BLOCK_THRESHOLD", 5),
			BlockWindow:    p.duration("FLEETDESK_BLOCK_WINDOW", 15*time.Minute),
			BlockCooldown:  p.duration("FLEETDESK_BLOCK_COOLDOWN", 15*time.Minute),
			MetricsWindow:  p.duration("FLEETDESK_METRICS_WINDOW", 24*time.Hour),
			Retention:      p.duration("FLEETDESK_RETENTION", 24*time.Hour),
			AlertTimeout:   p.duration("FLEETDESK_ALERT_TIMEOUT", 5*time.Second),
			CreateLimit:    Limit{Max: p.int("FLEETDESK_CREATE_LIMIT", 20), Window: time.Minute},
			UpdateLimit:    Limit{Max: p.int("FLEETDESK_UPDATE_LIMIT", 30), Window: time.Minute},
			DeleteLimit:    Limit{Max: p.int("FLEETDESK_DELETE_LIMIT", 10), Window: time.Minute},
			FloodRPS:       p.float("FLEETDESK_FLOOD_RPS", 20),
			FloodBurst:     p.int("FLEETDESK_FLOOD_BURST", 40),
			AlertURLs:      splitList(os.Getenv("FLEETDESK_ALERT_URLS")),
			PatternFile:    os.Getenv("FLEETDESK_PATTERN_FILE"),
			SweepSchedule:  getEnv("FLEETDESK_SWEEP_SCHEDULE", "@every 5m"),
			CORSOrigins:    splitList(getEnv("FLEETDESK_CORS_ORIGINS", "http://localhost:5173")),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
}

func (p *parser) bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return b
}

func (p *parser) int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
