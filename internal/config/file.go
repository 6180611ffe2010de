package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/nidkeeper/internal/flagx"
	"github.com/dmitrijs2005/nidkeeper/internal/timex"
)

// fileConfig is the DTO shared by the JSON and TOML decoders. Pointer
// fields distinguish absent keys from zero values.
type fileConfig struct {
	DatabaseDriver      *string         `json:"database_driver" toml:"database_driver"`
	DatabaseDSN         *string         `json:"database_dsn" toml:"database_dsn"`
	DatabaseBusyTimeout *timex.Duration `json:"database_busy_timeout" toml:"database_busy_timeout"`
	KDF                 *string         `json:"kdf" toml:"kdf"`
	KDFIterations       *int            `json:"kdf_iterations" toml:"kdf_iterations"`
	LockoutThreshold    *int            `json:"lockout_threshold" toml:"lockout_threshold"`
	AuditPageSize       *int            `json:"audit_page_size" toml:"audit_page_size"`
	LogLevel            *string         `json:"log_level" toml:"log_level"`
	LogFormat           *string         `json:"log_format" toml:"log_format"`
	MetricsFile         *string         `json:"metrics_file" toml:"metrics_file"`
	SetupUser           *string         `json:"setup_user" toml:"setup_user"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.DatabaseDriver, fc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	if fc.DatabaseBusyTimeout != nil {
		cfg.DatabaseBusyTimeout = fc.DatabaseBusyTimeout.Duration
	}
	setString(&cfg.KDF, fc.KDF)
	setInt(&cfg.KDFIterations, fc.KDFIterations)
	setInt(&cfg.LockoutThreshold, fc.LockoutThreshold)
	setInt(&cfg.AuditPageSize, fc.AuditPageSize)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.MetricsFile, fc.MetricsFile)
	setString(&cfg.SetupUser, fc.SetupUser)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
