package screening

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/marketlens/internal/market"
)

// SQLiteRecorder keeps run history in an embedded SQLite file
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL: API 읽기와 스크리닝 쓰기가 동시에 가능
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			run_id      TEXT PRIMARY KEY,
			filter_key  TEXT NOT NULL,
			filter_json TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			total       INTEGER,
			processed   INTEGER,
			accepted    INTEGER,
			rejected    INTEGER,
			skipped     INTEGER,
			implausible INTEGER,
			errors      INTEGER,
			aborted     INTEGER,
			truncated   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screening_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS screening_matches (
			run_id            TEXT NOT NULL,
			position          INTEGER NOT NULL,
			code              TEXT NOT NULL,
			name              TEXT,
			pe                REAL,
			pb                REAL,
			roe               REAL,
			revenue_growth    REAL,
			net_profit_growth REAL,
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record stores a run and its matches in one transaction
func (r *SQLiteRecorder) Record(ctx context.Context, result market.ScreeningResult, f Filter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filterJSON, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st := result.Stats
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO screening_runs (
		run_id, filter_key, filter_json, started_at, duration_ms,
		total, processed, accepted, rejected, skipped, implausible, errors,
		aborted, truncated
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Key, string(filterJSON), result.StartedAt.UnixMilli(), result.Duration.Milliseconds(),
		st.Total, st.Processed, st.Accepted, st.Rejected, st.Skipped, st.Implausible, st.Errors,
		boolInt(result.Aborted), boolInt(result.Truncated),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM screening_matches WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}
	for i, m := range result.Matches {
		_, err := tx.ExecContext(ctx, `INSERT INTO screening_matches (
			run_id, position, code, name, pe, pb, roe, revenue_growth, net_profit_growth
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, i, m.Code, m.Name, m.PE, m.PB, m.ROE, m.RevenueGrowth, m.NetProfitGrowth,
		)
		if err != nil {
			return fmt.Errorf("insert match %s: %w", m.Code, err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest runs, newest first
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT
		run_id, filter_key, filter_json, started_at, duration_ms,
		total, processed, accepted, rejected, skipped, implausible, errors,
		aborted, truncated
	FROM screening_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                RunRecord
			filterJSON         string
			startedMs, durMs   int64
			aborted, truncated int
		)
		st := &rec.Stats
		if err := rows.Scan(
			&rec.RunID, &rec.Key, &filterJSON, &startedMs, &durMs,
			&st.Total, &st.Processed, &st.Accepted, &st.Rejected, &st.Skipped, &st.Implausible, &st.Errors,
			&aborted, &truncated,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(filterJSON), &rec.Filter); err != nil {
			return nil, fmt.Errorf("decode filter for %s: %w", rec.RunID, err)
		}
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.Duration = time.Duration(durMs) * time.Millisecond
		rec.Aborted = aborted != 0
		rec.Truncated = truncated != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		matches, err := r.matches(ctx, out[i].RunID)
		if err != nil {
			return nil, err
		}
		out[i].Matches = matches
	}
	return out, nil
}

func (r *SQLiteRecorder) matches(ctx context.Context, runID string) ([]market.ScreeningMatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, pe, pb, roe, revenue_growth, net_profit_growth
		FROM screening_matches WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out := []market.ScreeningMatch{}
	for rows.Next() {
		var m market.ScreeningMatch
		if err := rows.Scan(&m.Code, &m.Name, &m.PE, &m.PB, &m.ROE, &m.RevenueGrowth, &m.NetProfitGrowth); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
