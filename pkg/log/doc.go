// Package log provides structured protocol logging for eSCL scan attempts.
//
// This package defines the Logger interface and Event types for capturing
// the HTTP exchanges of one invocation (capability fetch, job submission,
// document retrieval) together with the scan job state transitions.
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable trace for debugging scanner quirks.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For bug reports: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("scan.alog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events carry one payload:
//   - Exchange: an HTTP request or response (ExchangeEvent)
//   - StateChange: a scan job state transition (StateChangeEvent)
//   - Error: a failed step (ErrorEventData)
//
// Request and response bodies are only captured in verbose mode.
//
// # File Format
//
// Log files use CBOR encoding with .alog extension. The airscan-log CLI tool
// provides viewing and statistics.
package log
