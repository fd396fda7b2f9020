// Package services defines error markers and context helpers shared by the
// sorting phases.
//
// Key responsibilities:
//   - Context helpers that stamp phase names and the current source file
//     for logging.
//   - Structured error markers plus the Wrap helper, so the orchestrator can
//     tell run-fatal failures (bad roots, held lock) from per-file ones.
package services
