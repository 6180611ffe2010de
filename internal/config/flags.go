package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/nidkeeper/internal/flagx"
)

var flagNames = []string{
	"driver", "dsn", "busy-timeout", "kdf", "kdf-iterations", "lockout-threshold",
	"audit-page-size", "log-level", "log-format", "metrics-file", "setup-user",
}

// parseFlags populates cfg from the flags in args. Arguments meant for
// other parsers, such as -c, are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("nidkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database file or connection URL")
	fs.DurationVar(&cfg.DatabaseBusyTimeout, "busy-timeout", cfg.DatabaseBusyTimeout, "sqlite busy timeout")
	fs.StringVar(&cfg.KDF, "kdf", cfg.KDF, "key derivation for new verifiers (pbkdf2 or argon2id)")
	fs.IntVar(&cfg.KDFIterations, "kdf-iterations", cfg.KDFIterations, "pbkdf2 iteration count")
	fs.IntVar(&cfg.LockoutThreshold, "lockout-threshold", cfg.LockoutThreshold, "failed logins before lockout")
	fs.IntVar(&cfg.AuditPageSize, "audit-page-size", cfg.AuditPageSize, "audit rows per page")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "prometheus textfile written on exit")
	fs.StringVar(&cfg.SetupUser, "setup-user", cfg.SetupUser, "admin username for non-interactive setup")

	return fs.Parse(flagx.FilterArgs(args, flagNames))
}
