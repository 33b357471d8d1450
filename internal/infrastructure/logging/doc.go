// Package logging provides structured logging for microdb.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the module.
//
// # Features
//
//   - JSON output for machine consumption, text for terminals
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Per-component child loggers
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr, none
//
// What is logged where:
//   - executed migration statements: info
//   - unresolved schema drift: warn
//   - hook chains skipped by the re-entrancy guard: debug
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	sync.SetLogger(logger.Component("migrate"))
//
// Never log connection strings: they may carry passwords.
package logging
