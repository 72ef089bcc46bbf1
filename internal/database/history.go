package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"
)

// ErrRunNotFound is returned when no run has the requested task ID.
var ErrRunNotFound = errors.New("batch run not found")

const runColumns = `task_id, kind, status, total_inputs, total_units, successful, failed,
	skipped, cached, original_bytes, output_bytes, items_per_second, success_rate,
	started_at, finished_at, duration_ms`

// SaveSummary stores a finished batch and its per-item results. Saving the
// same task again replaces the earlier copy.
func (d *Database) SaveSummary(ctx context.Context, s *model.BatchSummary) (err error) {
	if s == nil || s.TaskID == "" {
		return errors.New("summary has no task ID")
	}

	start := time.Now()
	defer func() { recordQuery("save_run", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, txStart, err := d.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { err = endTx(tx, txStart, err) }()

	_, err = tx.ExecContext(ctx, `DELETE FROM batch_runs WHERE task_id = ?`, s.TaskID)
	if err != nil {
		return fmt.Errorf("replace run %s: %w", s.TaskID, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO batch_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TaskID, string(s.Kind), string(s.Status), s.TotalInputs, s.TotalWorkUnits,
		s.Successful, s.Failed, s.Skipped, s.Cached, s.OriginalBytes, s.OutputBytes,
		s.ItemsPerSecond, s.SuccessRate, s.StartedAt.UnixMilli(), s.FinishedAt.UnixMilli(),
		s.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", s.TaskID, err)
	}
	metrics.DBRowsWritten.WithLabelValues("batch_runs").Inc()

	if err = insertResults(ctx, tx, s.TaskID, s.Results); err != nil {
		return err
	}

	return setMetadataTx(ctx, tx, lastRunKey(s.Kind), s.FinishedAt.Format(time.RFC3339Nano))
}

func insertResults(ctx context.Context, tx *sql.Tx, taskID string, results []model.JobResult) error {
	if len(results) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("save_results", start, err) }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO batch_results (
		task_id, source_path, spec, success, cached, output_paths, duration_ms,
		original_size, output_size, width, height, issues, enhancements, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var outputs, issues, enhancements []byte
		if outputs, err = marshalList(r.OutputPaths); err != nil {
			return err
		}
		if issues, err = marshalList(r.Issues); err != nil {
			return err
		}
		if enhancements, err = marshalList(r.Enhancements); err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			taskID, r.SourcePath, r.Spec, r.Success, r.Cached, nullable(outputs),
			r.Duration.Milliseconds(), r.OriginalSize, r.OutputSize, r.Width, r.Height,
			nullable(issues), nullable(enhancements), r.Error,
		)
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", r.SourcePath, err)
		}
	}

	metrics.DBRowsWritten.WithLabelValues("batch_results").Add(float64(len(results)))
	return nil
}

// GetRun returns the stored summary of taskID.
func (d *Database) GetRun(ctx context.Context, taskID string) (*RunRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM batch_runs WHERE task_id = ?`, taskID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, taskID)
	}
	return rec, err
}

// RecentRuns lists up to limit runs, newest first. An empty kind lists
// every kind.
func (d *Database) RecentRuns(ctx context.Context, kind model.JobKind, limit int) (runs []RunRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_runs", start, err) }()

	if limit <= 0 {
		limit = 20
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + runColumns + ` FROM batch_runs`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY started_at DESC, task_id LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanRun(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		runs = append(runs, *rec)
	}
	err = rows.Err()
	return runs, err
}

// RunResults returns the per-item results stored for taskID in insertion
// order.
func (d *Database) RunResults(ctx context.Context, taskID string) (results []model.JobResult, err error) {
	start := time.Now()
	defer func() { recordQuery("run_results", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var kind string
	err = d.db.QueryRowContext(ctx, `SELECT kind FROM batch_runs WHERE task_id = ?`, taskID).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: %s", ErrRunNotFound, taskID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT source_path, spec, success, cached, output_paths, duration_ms,
			original_size, output_size, width, height, issues, enhancements, error
		FROM batch_results WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		r := model.JobResult{Kind: model.JobKind(kind)}
		var spec, outputs, issues, enhancements, errText sql.NullString
		var durationMS int64
		if err = rows.Scan(&r.SourcePath, &spec, &r.Success, &r.Cached, &outputs, &durationMS,
			&r.OriginalSize, &r.OutputSize, &r.Width, &r.Height, &issues, &enhancements, &errText); err != nil {
			return nil, err
		}
		r.Spec = spec.String
		r.Error = errText.String
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if r.Success {
			r.SizeDelta = r.OutputSize - r.OriginalSize
		}
		if err = unmarshalList(outputs, &r.OutputPaths); err != nil {
			return nil, err
		}
		if err = unmarshalList(issues, &r.Issues); err != nil {
			return nil, err
		}
		if err = unmarshalList(enhancements, &r.Enhancements); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	err = rows.Err()
	return results, err
}

// PruneRuns deletes all but the newest keep runs and their results.
func (d *Database) PruneRuns(ctx context.Context, keep int) (deleted int64, err error) {
	start := time.Now()
	defer func() { recordQuery("prune_runs", start, err) }()

	if keep < 0 {
		keep = 0
	}

	tx, txStart, err := d.beginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { err = endTx(tx, txStart, err) }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM batch_runs WHERE task_id NOT IN (
			SELECT task_id FROM batch_runs ORDER BY started_at DESC, task_id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	deleted, err = res.RowsAffected()
	return deleted, err
}

// Stats aggregates the whole history.
func (d *Database) Stats(ctx context.Context) (HistoryStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s HistoryStats
	var last sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_units), 0), COALESCE(SUM(failed), 0), MAX(started_at)
		FROM batch_runs`).Scan(&s.TotalRuns, &s.TotalWorkUnits, &s.TotalFailed, &last)
	if err != nil {
		return s, err
	}
	if last.Valid {
		s.LastRun = time.UnixMilli(last.Int64)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var kind, status string
	var startedMS, finishedMS, durationMS int64
	err := row.Scan(&rec.TaskID, &kind, &status, &rec.TotalInputs, &rec.TotalWorkUnits,
		&rec.Successful, &rec.Failed, &rec.Skipped, &rec.Cached, &rec.OriginalBytes,
		&rec.OutputBytes, &rec.ItemsPerSecond, &rec.SuccessRate, &startedMS, &finishedMS, &durationMS)
	if err != nil {
		return nil, err
	}
	rec.Kind = model.JobKind(kind)
	rec.Status = model.TaskStatus(status)
	rec.StartedAt = time.UnixMilli(startedMS)
	rec.FinishedAt = time.UnixMilli(finishedMS)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}

func marshalList[T any](v []T) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return b, nil
}

func unmarshalList[T any](s sql.NullString, dst *[]T) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), dst); err != nil {
		return fmt.Errorf("decode stored list: %w", err)
	}
	return nil
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
