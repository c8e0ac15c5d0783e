package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/marketlens/internal/market"
)

// PostgresRecorder keeps run history in Postgres
// ⭐ SSOT: 스크리닝 이력 저장/조회는 여기서만
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder creates the schema if needed
func NewPostgresRecorder(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecorder, error) {
	r := &PostgresRecorder{pool: pool}
	if err := r.migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS screening_runs (
			run_id      TEXT PRIMARY KEY,
			filter_key  TEXT NOT NULL,
			filter      JSONB NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			stats       JSONB NOT NULL,
			matches     JSONB NOT NULL,
			aborted     BOOLEAN NOT NULL DEFAULT FALSE,
			truncated   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_screening_runs_started ON screening_runs (started_at DESC);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate screening_runs: %w", err)
	}
	return nil
}

// Record saves a run; recording the same run twice replaces it
func (r *PostgresRecorder) Record(ctx context.Context, result market.ScreeningResult, f Filter) error {
	rec := newRunRecord(result, f)

	filterJSON, err := json.Marshal(rec.Filter)
	if err != nil {
		return fmt.Errorf("failed to marshal filter: %w", err)
	}
	statsJSON, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	matchesJSON, err := json.Marshal(rec.Matches)
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}

	query := `
		INSERT INTO screening_runs (
			run_id, filter_key, filter, started_at, duration_ms, stats, matches, aborted, truncated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			stats = EXCLUDED.stats,
			matches = EXCLUDED.matches,
			duration_ms = EXCLUDED.duration_ms,
			aborted = EXCLUDED.aborted,
			truncated = EXCLUDED.truncated
	`
	_, err = r.pool.Exec(ctx, query,
		rec.RunID, rec.Key, filterJSON, rec.StartedAt, rec.Duration.Milliseconds(),
		statsJSON, matchesJSON, rec.Aborted, rec.Truncated,
	)
	if err != nil {
		return fmt.Errorf("failed to save screening run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, filter_key, filter, started_at, duration_ms, stats, matches, aborted, truncated
		FROM screening_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screening runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                                RunRecord
			filterJSON, statsJSON, matchesJSON []byte
			durationMs                         int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Key, &filterJSON, &rec.StartedAt, &durationMs,
			&statsJSON, &matchesJSON, &rec.Aborted, &rec.Truncated); err != nil {
			return nil, fmt.Errorf("failed to scan screening run: %w", err)
		}
		if err := json.Unmarshal(filterJSON, &rec.Filter); err != nil {
			return nil, fmt.Errorf("failed to decode filter: %w", err)
		}
		if err := json.Unmarshal(statsJSON, &rec.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode stats: %w", err)
		}
		if err := json.Unmarshal(matchesJSON, &rec.Matches); err != nil {
			return nil, fmt.Errorf("failed to decode matches: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool is owned by pkg/database
func (r *PostgresRecorder) Close() error { return nil }
