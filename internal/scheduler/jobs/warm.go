package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/pkg/logger"
)

// BoardSource is the part of the coordinator the board warm-up needs
type BoardSource interface {
	Boards(ctx context.Context) (retrieval.Result[[]market.BoardSnapshot], error)
}

// UniverseSource is the part of the coordinator the universe warm-up needs
type UniverseSource interface {
	Universe(ctx context.Context) (retrieval.Result[[]market.StockInfo], error)
}

// BoardsJob keeps the board snapshot cache warm
// ⭐ SSOT: 업종 스냅샷 갱신 스케줄은 이 Job에서만
type BoardsJob struct {
	source BoardSource
	logger *logger.Logger
}

func NewBoardsJob(src BoardSource, log *logger.Logger) *BoardsJob {
	return &BoardsJob{source: src, logger: log}
}

func (j *BoardsJob) Name() string { return "warm_boards" }

// Schedule: every 15 minutes; the snapshot expires after an hour
func (j *BoardsJob) Schedule() string { return "0 */15 * * * *" }

// Run fails only when the coordinator had nothing better than the empty default
func (j *BoardsJob) Run(ctx context.Context) error {
	res, err := j.source.Boards(ctx)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"boards":   len(res.Data),
		"origin":   string(res.Origin),
		"provider": res.Provider,
	}).Info("Board snapshot warmed")

	if res.Origin == retrieval.OriginDefault {
		return fmt.Errorf("board snapshot unavailable from every provider")
	}
	return nil
}

// UniverseJob keeps the stock listing cache and the CSV backup current
type UniverseJob struct {
	source UniverseSource
	logger *logger.Logger
}

func NewUniverseJob(src UniverseSource, log *logger.Logger) *UniverseJob {
	return &UniverseJob{source: src, logger: log}
}

func (j *UniverseJob) Name() string { return "warm_universe" }

// Schedule: every 6 hours; the listing expires after a day
func (j *UniverseJob) Schedule() string { return "0 0 */6 * * *" }

func (j *UniverseJob) Run(ctx context.Context) error {
	res, err := j.source.Universe(ctx)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"stocks":   len(res.Data),
		"origin":   string(res.Origin),
		"provider": res.Provider,
	}).Info("Stock universe warmed")

	if res.Origin == retrieval.OriginDefault {
		return fmt.Errorf("stock universe unavailable, serving the built-in list")
	}
	return nil
}
