package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recsort/internal/services"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = fmt.Errorf("run %w", services.ErrNotFound)

const runColumns = "id, source, destination, dry_run, status, started_at, finished_at, total, copied, skipped, failed, bytes_copied, events, undated, error_message"

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, source, destination, dry_run, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		run.Destination,
		boolToInt(run.DryRun),
		RunRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, total = ?, copied = ?, skipped = ?,
            failed = ?, bytes_copied = ?, events = ?, undated = ?, error_message = ?
        WHERE id = ?`,
		run.Status,
		formatTime(run.FinishedAt),
		run.Total,
		run.Copied,
		run.Skipped,
		run.Failed,
		run.BytesCopied,
		run.Events,
		run.Undated,
		nullableString(run.Error),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// RecordFiles appends file outcomes for runID in a single transaction.
func (s *Store) RecordFiles(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_files (run_id, source, destination, status, bytes, error_message, recorded_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, e := range entries {
			at := e.RecordedAt
			if at.IsZero() {
				at = now
			}
			if _, err := stmt.ExecContext(ctx, runID, e.Source, nullableString(e.Destination), e.Status, e.Bytes, nullableString(e.Error), formatTime(at)); err != nil {
				return fmt.Errorf("insert file %s: %w", e.Source, err)
			}
		}
		return tx.Commit()
	})
}

// GetRun returns the run with id, or ErrRunNotFound. A unique id prefix is
// accepted so operators can paste the short form shown by "history".
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, id, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListEntries returns the file outcomes of runID in recording order.
func (s *Store) ListEntries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, destination, status, bytes, error_message, recorded_at
        FROM run_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			dest       sql.NullString
			errMsg     sql.NullString
			recordedAt sql.NullString
		)
		if err := rows.Scan(&e.Source, &dest, &e.Status, &e.Bytes, &errMsg, &recordedAt); err != nil {
			return nil, err
		}
		e.Destination = dest.String
		e.Error = errMsg.String
		e.RecordedAt = parseTime(recordedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the keep most recent runs and their files. It
// returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		dryRun      int
		status      string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Source,
		&run.Destination,
		&dryRun,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.Total,
		&run.Copied,
		&run.Skipped,
		&run.Failed,
		&run.BytesCopied,
		&run.Events,
		&run.Undated,
		&errMsg,
	); err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	run.Error = errMsg.String
	return &run, nil
}
