package jobs

import (
	"context"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/screening"
	"github.com/wonny/marketlens/pkg/logger"
)

// Screener runs one screening pass
type Screener interface {
	Run(ctx context.Context, f screening.Filter) (market.ScreeningResult, error)
}

// ScreenJob runs a preset after the close so the first dashboard request hits the cache
type ScreenJob struct {
	screener Screener
	preset   string
	filter   screening.Filter
	logger   *logger.Logger
}

func NewScreenJob(s Screener, preset string, f screening.Filter, log *logger.Logger) *ScreenJob {
	return &ScreenJob{screener: s, preset: preset, filter: f, logger: log}
}

func (j *ScreenJob) Name() string { return "screen_" + j.preset }

// Schedule: 15:30 on weekdays, after the A-share close
func (j *ScreenJob) Schedule() string { return "0 30 15 * * 1-5" }

func (j *ScreenJob) Run(ctx context.Context) error {
	res, err := j.screener.Run(ctx, j.filter)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"preset":     j.preset,
		"run_id":     res.RunID,
		"matches":    len(res.Matches),
		"aborted":    res.Aborted,
		"from_cache": res.FromCache,
	}).Info("Scheduled screening finished")
	return nil
}
