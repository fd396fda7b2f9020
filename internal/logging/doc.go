// Package logging assembles structured slog loggers and formatting helpers used
// across recsort.
//
// It owns the console and JSON handlers, mirrors console output into a JSON log
// file, stamps every record with the run ID, and exposes context-aware helpers
// so phase code can tag log lines with the phase and source file. Log files
// from earlier runs are rotated and pruned by retention.
package logging
