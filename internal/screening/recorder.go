package screening

import (
	"context"
	"time"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/database"
)

// RunRecord is one persisted screening run
type RunRecord struct {
	RunID     string                  `json:"run_id"`
	Key       string                  `json:"key"`
	Filter    Filter                  `json:"filter"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`
	Stats     market.ScreeningStats   `json:"stats"`
	Aborted   bool                    `json:"aborted"`
	Truncated bool                    `json:"truncated"`
	Matches   []market.ScreeningMatch `json:"matches"`
}

// Recorder persists run history. Recording is best effort: a failure is
// logged by the engine and never fails the run.
type Recorder interface {
	Record(ctx context.Context, result market.ScreeningResult, f Filter) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}

// NewRecorder picks the run history store: Postgres when db is set, SQLite
// when SQLITE_PATH is set, otherwise nothing is recorded.
func NewRecorder(ctx context.Context, cfg *config.Config, db *database.DB) (Recorder, error) {
	switch {
	case db != nil:
		return NewPostgresRecorder(ctx, db.Pool)
	case cfg.Database.SQLitePath != "":
		return NewSQLiteRecorder(cfg.Database.SQLitePath)
	default:
		return NewNoopRecorder(), nil
	}
}

func newRunRecord(result market.ScreeningResult, f Filter) RunRecord {
	matches := result.Matches
	if matches == nil {
		matches = []market.ScreeningMatch{}
	}
	return RunRecord{
		RunID:     result.RunID,
		Key:       result.Key,
		Filter:    f,
		StartedAt: result.StartedAt,
		Duration:  result.Duration,
		Stats:     result.Stats,
		Aborted:   result.Aborted,
		Truncated: result.Truncated,
		Matches:   matches,
	}
}

// NoopRecorder is used when no run history store is configured
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ context.Context, _ market.ScreeningResult, _ Filter) error {
	return nil
}
func (n *NoopRecorder) Recent(_ context.Context, _ int) ([]RunRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
