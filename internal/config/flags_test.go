package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-driver", "postgres", "-dsn", "postgres://x", "-busy-timeout", "1s",
				"-kdf", "argon2id", "-kdf-iterations", "20000", "-lockout-threshold", "4",
				"-audit-page-size", "10", "-log-level", "debug", "-log-format", "json",
				"-metrics-file", "m.prom", "-setup-user", "root",
			},
			expected: &Config{
				DatabaseDriver: "postgres", DatabaseDSN: "postgres://x", DatabaseBusyTimeout: time.Second,
				KDF: "argon2id", KDFIterations: 20000, LockoutThreshold: 4, AuditPageSize: 10,
				LogLevel: "debug", LogFormat: "json", MetricsFile: "m.prom", SetupUser: "root",
			},
		},
		{
			name:     "config flag is ignored here",
			args:     []string{"-c", "conf.json", "-dsn=db.sqlite"},
			expected: &Config{DatabaseDSN: "db.sqlite"},
		},
		{
			name:    "bad integer",
			args:    []string{"-lockout-threshold", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeTempJSON(t, t.TempDir(), "cfg.json", map[string]any{
		"database_dsn":      "from-file.db",
		"lockout_threshold": 7,
	})

	cfg, err := Load([]string{"-c", path, "-dsn", filepath.Join("x", "from-flag.db")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("x", "from-flag.db"), cfg.DatabaseDSN)
	assert.Equal(t, 7, cfg.LockoutThreshold)
}

func TestLoad_InvalidAfterMerge(t *testing.T) {
	_, err := Load([]string{"-driver", "oracle"})
	assert.ErrorContains(t, err, "invalid database driver")
}
