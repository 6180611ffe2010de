package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/cryptox"
)

// SetupPasswordEnv names the environment variable holding the initial
// admin password for non-interactive setup.
const SetupPasswordEnv = "NIDKEEPER_SETUP_PASSWORD"

// Config holds runtime settings.
type Config struct {
	DatabaseDriver      string
	DatabaseDSN         string
	DatabaseBusyTimeout time.Duration

	KDF           string
	KDFIterations int

	LockoutThreshold int
	AuditPageSize    int

	LogLevel  string
	LogFormat string

	MetricsFile string
	SetupUser   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "data/nidkeeper.db"
	c.DatabaseBusyTimeout = 5 * time.Second
	c.KDF = "pbkdf2"
	c.KDFIterations = cryptox.DefaultPBKDF2Iterations
	c.LockoutThreshold = 3
	c.AuditPageSize = 100
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config from defaults, the optional config file and flags
// found in args (usually os.Args[1:]), then validates it.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.DatabaseBusyTimeout < 0 {
		return fmt.Errorf("busy timeout must not be negative")
	}
	if _, err := cryptox.FromConfig(c.KDF, c.KDFIterations); err != nil {
		return err
	}
	if c.KDFIterations <= 0 {
		return fmt.Errorf("kdf iterations must be positive, got %d", c.KDFIterations)
	}
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("lockout threshold must be at least 1, got %d", c.LockoutThreshold)
	}
	if c.AuditPageSize < 1 {
		return fmt.Errorf("audit page size must be at least 1, got %d", c.AuditPageSize)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

// SetupPassword returns the non-interactive setup password, if exported.
func SetupPassword() ([]byte, bool) {
	v, ok := os.LookupEnv(SetupPasswordEnv)
	if !ok || v == "" {
		return nil, false
	}
	return []byte(v), true
}
