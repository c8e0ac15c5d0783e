package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/internal/screening"
	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/database"
	"github.com/wonny/marketlens/pkg/httputil"
	"github.com/wonny/marketlens/pkg/logger"
	"github.com/wonny/marketlens/pkg/metrics"
	"github.com/wonny/marketlens/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	coord    *retrieval.Coordinator
	engine   *screening.Engine
	recorder screening.Recorder
	presets  screening.Presets
	db       *database.DB
	redis    *redis.Client
}

// newApp loads config and wires the pipeline
// ⭐ SSOT: 컴포넌트 조립은 여기서만
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	store, err := cache.NewStore(cfg, a.redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create cache store: %w", err)
	}
	c := cache.New(store, nil, a.log)

	httpClient := httputil.New(cfg, a.log)
	a.coord = retrieval.New(c, retrieval.DefaultSources(cfg, httpClient, a.log), a.metrics, a.log).
		WithLocation(market.ChinaTime)

	// run history is optional: a missing database never blocks market data
	a.db, err = database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		a.db = nil
	case err != nil:
		a.log.WithError(err).Warn("Database unavailable, screening runs will not be stored in Postgres")
		a.db = nil
	}

	a.recorder, err = screening.NewRecorder(ctx, cfg, a.db)
	if err != nil {
		a.log.WithError(err).Warn("Run recorder unavailable, screening history disabled")
		a.recorder = screening.NewNoopRecorder()
	}

	a.presets = screening.BuiltinPresets()
	if cfg.Screening.PresetsFile != "" {
		a.presets, err = screening.LoadPresets(cfg.Screening.PresetsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load presets: %w", err)
		}
	}

	a.engine = screening.NewEngine(a.coord, c, a.recorder, a.metrics, a.log, screening.OptionsFromConfig(cfg.Screening))
	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close run recorder")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
