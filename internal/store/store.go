// Package store archives finished sweep runs in SQLite: the run record, the
// per-step outcomes and the joined results with their metrics.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
)

// ErrNotFound is returned when a run is not archived.
var ErrNotFound = errors.New("run not found in store")

// Record is everything archived for one run.
type Record struct {
	Run models.Run
	// Definition is the sweep YAML the run was created from.
	Definition string
	Outcomes   []sweep.Outcome
	Results    []result.Result
	Metrics    *models.RunMetrics
}

// Store provides SQLite-backed persistence of sweep runs.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun inserts or replaces the archive of rec.Run.ID.
func (s *Store) SaveRun(ctx context.Context, rec Record) (err error) {
	if rec.Run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	metadata, err := nullableJSON(rec.Run.Metadata, len(rec.Run.Metadata) > 0)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	metrics, err := nullableJSON(rec.Metrics, rec.Metrics != nil)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	r := rec.Run
	_, err = tx.ExecContext(ctx, `
INSERT INTO sweep_runs (
	run_id, name, status, strategy, on_failure, steps, definition, error,
	metadata_json, metrics_json, created_at_unix_ms, started_at_unix_ms, ended_at_unix_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	name = excluded.name,
	status = excluded.status,
	strategy = excluded.strategy,
	on_failure = excluded.on_failure,
	steps = excluded.steps,
	definition = excluded.definition,
	error = excluded.error,
	metadata_json = excluded.metadata_json,
	metrics_json = excluded.metrics_json,
	created_at_unix_ms = excluded.created_at_unix_ms,
	started_at_unix_ms = excluded.started_at_unix_ms,
	ended_at_unix_ms = excluded.ended_at_unix_ms
`,
		r.ID, r.Name, string(r.Status), r.Strategy, r.Policy, r.Steps, rec.Definition, r.Error,
		metadata, metrics, r.CreatedAtUnixMs, r.StartedAtUnixMs, r.EndedAtUnixMs,
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", r.ID, err)
	}

	for _, table := range []string{"sweep_outcomes", "sweep_results"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", r.ID); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, r.ID, err)
		}
	}

	for _, o := range rec.Outcomes {
		snap, jerr := json.Marshal(o.Snapshot)
		if jerr != nil {
			err = fmt.Errorf("encode snapshot of step %d: %w", o.Index, jerr)
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO sweep_outcomes (run_id, step_index, snapshot_json, status, op, error, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, o.Index, string(snap), string(o.Status), o.Op, o.Error, int64(o.Duration))
		if err != nil {
			return fmt.Errorf("insert outcome %d: %w", o.Index, err)
		}
	}

	for pos, res := range rec.Results {
		snap, jerr := json.Marshal(res.Snapshot)
		if jerr != nil {
			err = fmt.Errorf("encode snapshot of result %d: %w", pos, jerr)
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO sweep_results (run_id, position, snapshot_key, snapshot_json) VALUES (?, ?, ?, ?)`,
			r.ID, pos, res.Snapshot.Key(), string(snap))
		if err != nil {
			return fmt.Errorf("insert result %d: %w", pos, err)
		}
		for _, k := range res.Metrics.Keys() {
			_, err = tx.ExecContext(ctx, `
INSERT INTO sweep_result_metrics (run_id, position, metric, value) VALUES (?, ?, ?, ?)`,
				r.ID, pos, k, nullableFloat(res.Metrics[k]))
			if err != nil {
				return fmt.Errorf("insert metric %q of result %d: %w", k, pos, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.ID, err)
	}
	return nil
}

const runColumns = `run_id, name, status, strategy, on_failure, steps, error, metadata_json,
	created_at_unix_ms, started_at_unix_ms, ended_at_unix_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (models.Run, error) {
	var r models.Run
	var status string
	var metadata sql.NullString
	err := row.Scan(&r.ID, &r.Name, &status, &r.Strategy, &r.Policy, &r.Steps, &r.Error, &metadata,
		&r.CreatedAtUnixMs, &r.StartedAtUnixMs, &r.EndedAtUnixMs)
	if err != nil {
		return models.Run{}, err
	}
	r.Status = models.RunStatus(status)
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return models.Run{}, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// GetRun loads the full archive of a run.
func (s *Store) GetRun(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+`, definition, metrics_json FROM sweep_runs WHERE run_id = ?`, id)
	var r models.Run
	var status, definition string
	var metadata, metrics sql.NullString
	err := row.Scan(&r.ID, &r.Name, &status, &r.Strategy, &r.Policy, &r.Steps, &r.Error, &metadata,
		&r.CreatedAtUnixMs, &r.StartedAtUnixMs, &r.EndedAtUnixMs, &definition, &metrics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}
	r.Status = models.RunStatus(status)

	rec := &Record{Run: r, Definition: definition}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Run.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", id, err)
		}
	}
	if metrics.Valid {
		rec.Metrics = &models.RunMetrics{}
		if err := json.Unmarshal([]byte(metrics.String), rec.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics of %s: %w", id, err)
		}
	}
	if rec.Outcomes, err = s.outcomes(ctx, id); err != nil {
		return nil, err
	}
	if rec.Results, err = s.results(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) outcomes(ctx context.Context, id string) ([]sweep.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT step_index, snapshot_json, status, op, error, duration_ns
FROM sweep_outcomes WHERE run_id = ? ORDER BY step_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query outcomes of %s: %w", id, err)
	}
	defer rows.Close()

	var out []sweep.Outcome
	for rows.Next() {
		var o sweep.Outcome
		var snap, status string
		var duration int64
		if err := rows.Scan(&o.Index, &snap, &status, &o.Op, &o.Error, &duration); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if err := json.Unmarshal([]byte(snap), &o.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot of step %d: %w", o.Index, err)
		}
		o.Status = sweep.Status(status)
		o.Duration = time.Duration(duration)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) results(ctx context.Context, id string) ([]result.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT position, snapshot_json FROM sweep_results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query results of %s: %w", id, err)
	}
	var out []result.Result
	for rows.Next() {
		var pos int
		var snap string
		if err := rows.Scan(&pos, &snap); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var snapshot variable.Snapshot
		if err := json.Unmarshal([]byte(snap), &snapshot); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode snapshot of result %d: %w", pos, err)
		}
		out = append(out, result.Result{Snapshot: snapshot, Metrics: result.Metrics{}})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// the single connection is free again once rows is closed
	mrows, err := s.db.QueryContext(ctx, `
SELECT position, metric, value FROM sweep_result_metrics WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query metrics of %s: %w", id, err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var pos int
		var metric string
		var value sql.NullFloat64
		if err := mrows.Scan(&pos, &metric, &value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if pos < 0 || pos >= len(out) {
			return nil, fmt.Errorf("metric %q refers to missing result %d", metric, pos)
		}
		if value.Valid {
			out[pos].Metrics[metric] = value.Float64
		} else {
			out[pos].Metrics[metric] = math.NaN()
		}
	}
	return out, mrows.Err()
}

// ListRuns returns the archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+` FROM sweep_runs ORDER BY created_at_unix_ms DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindResults returns the ids of the runs holding a result for snap.
func (s *Store) FindResults(ctx context.Context, snap variable.Snapshot) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT run_id FROM sweep_results WHERE snapshot_key = ? ORDER BY run_id`, snap.Key())
	if err != nil {
		return nil, fmt.Errorf("find results: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRun removes a run and everything archived with it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sweep_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func nullableJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
