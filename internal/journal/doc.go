// Package journal keeps an optional SQLite history of sort runs.
//
// Each run gets a row in runs plus one row per source file in run_files. The
// journal is an audit trail for the operator: nothing in recsort reads it to
// decide what to copy, so deleting the database never changes the next run.
package journal
