// Package config loads runtime configuration for nidkeeper.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .toml are decoded as TOML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-driver string            sqlite or postgres
//	-dsn string               database file path (sqlite) or connection URL (postgres)
//	-busy-timeout duration    how long SQLite waits on a locked database
//	-kdf string               pbkdf2 or argon2id, used for new verifiers
//	-kdf-iterations int       PBKDF2 iteration count
//	-lockout-threshold int    consecutive failures that lock an account
//	-audit-page-size int      rows fetched per audit page
//	-log-level string         debug, info, warn or error
//	-log-format string        text or json
//	-metrics-file string      Prometheus textfile written on exit
//	-setup-user string        admin username for non-interactive first-run setup
//
// # File schema
//
// Keys are the same in both formats. Durations are strings such as "5s";
// JSON also accepts integer nanoseconds.
//
//	{
//	  "database_driver": "sqlite",
//	  "database_dsn": "data/nidkeeper.db",
//	  "database_busy_timeout": "5s",
//	  "kdf": "pbkdf2",
//	  "kdf_iterations": 10000,
//	  "lockout_threshold": 3
//	}
//
// Keys absent from the file keep their default. The setup password is never
// read from the file or flags; see SetupPasswordEnv.
package config
