// Package logging builds slog loggers for splitledger.
//
// Two output formats are supported: a compact console format for operators
// running batch jobs interactively, and JSON for offline audit of job
// summaries. Both can fan out to stdout and the shared log file.
package logging
