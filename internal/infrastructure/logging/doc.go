// Package logging provides structured logging for addrslips.
//
// This package wraps Go's standard log/slog package so the CLI, the
// archive store and the repositories all emit records with the same
// default fields.
//
// # Features
//
//   - Text output by default, JSON when configured
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("project opened", "path", path)
//	logger.Error("snapshot failed", "error", err)
package logging
