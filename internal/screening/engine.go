// Package screening filters the stock universe by fundamental thresholds.
//
// A run walks the (possibly capped) universe one symbol at a time, pausing
// every few symbols to stay inside upstream request budgets. Per-symbol
// failures are counted against an error budget; once it is exceeded the run
// stops and returns what it has matched so far.
package screening

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/logger"
	"github.com/wonny/marketlens/pkg/metrics"
)

// Source supplies the universe and per-symbol fundamentals.
// *retrieval.Coordinator satisfies it.
type Source interface {
	Universe(ctx context.Context) (retrieval.Result[[]market.StockInfo], error)
	Fundamentals(ctx context.Context, code string) (retrieval.Result[market.FundamentalRecord], error)
}

// Outcome classifies one symbol
type Outcome string

const (
	OutcomeAccept      Outcome = "accept"
	OutcomeReject      Outcome = "reject"
	OutcomeSkip        Outcome = "skip"
	OutcomeImplausible Outcome = "implausible"
	OutcomeError       Outcome = "error"
)

// Progress is reported while a run iterates
type Progress struct {
	Processed int
	Total     int
	Matched   int
	Errors    int
	Done      bool
}

// ProgressFunc receives progress reports; it must not block
type ProgressFunc func(Progress)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Options tune the iteration loop
type Options struct {
	MaxStocks     int
	Pause         time.Duration
	PauseEvery    int
	ErrorBudget   int
	ProgressEvery int

	// UseDefaults screens static default fundamentals instead of counting them as errors
	UseDefaults bool
}

// DefaultOptions returns the documented limits
func DefaultOptions() Options {
	return Options{
		MaxStocks:     DefaultMaxStocks,
		Pause:         500 * time.Millisecond,
		PauseEvery:    10,
		ErrorBudget:   20,
		ProgressEvery: 5,
	}
}

// OptionsFromConfig maps SCREEN_* settings onto Options
func OptionsFromConfig(sc config.ScreeningConfig) Options {
	opts := DefaultOptions()
	if sc.MaxStocks > 0 {
		opts.MaxStocks = sc.MaxStocks
	}
	opts.Pause = sc.Pause
	opts.PauseEvery = sc.PauseEvery
	opts.ErrorBudget = sc.ErrorBudget
	opts.UseDefaults = sc.UseDefaults
	return opts
}

// Engine runs screening passes
// ⭐ SSOT: 스크리닝 판정 로직은 여기서만
type Engine struct {
	source   Source
	cache    *cache.Cache
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *logger.Logger
	opts     Options
	sleep    Sleeper
	progress ProgressFunc
}

// NewEngine creates an engine. c, rec and m may be nil.
func NewEngine(src Source, c *cache.Cache, rec Recorder, m *metrics.Metrics, log *logger.Logger, opts Options) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = NewNoopRecorder()
	}
	return &Engine{
		source:   src,
		cache:    c,
		recorder: rec,
		metrics:  m,
		logger:   log.Component("screening"),
		opts:     opts,
		sleep:    sleepContext,
	}
}

// WithSleeper replaces the pause implementation
func (e *Engine) WithSleeper(s Sleeper) *Engine {
	e.sleep = s
	return e
}

// OnProgress registers a progress callback
func (e *Engine) OnProgress(fn ProgressFunc) *Engine {
	e.progress = fn
	return e
}

// Run screens the universe with f.
//
// Exceeding the error budget is not an error: the partial result is returned
// with Aborted set. Only a cancelled context or an invalid filter fails the run.
func (e *Engine) Run(ctx context.Context, f Filter) (market.ScreeningResult, error) {
	if err := f.Validate(); err != nil {
		return market.ScreeningResult{}, err
	}
	if f.MaxStocks == 0 {
		f.MaxStocks = e.maxStocks()
	}

	key := cache.ScreenKey(f.Key())
	if hit, ok := e.cached(ctx, key); ok {
		e.metrics.ScreenRun("cached")
		return hit, nil
	}

	started := e.now()
	result := market.ScreeningResult{
		RunID:     uuid.New().String(),
		Key:       key,
		Matches:   []market.ScreeningMatch{},
		StartedAt: started,
	}

	universe, err := e.source.Universe(ctx)
	if err != nil {
		return market.ScreeningResult{}, err
	}
	stocks := universe.Data
	if len(stocks) > f.MaxStocks {
		e.logger.WithFields(map[string]interface{}{
			"universe": len(stocks),
			"cap":      f.MaxStocks,
		}).Warn("Universe truncated to cap")
		stocks = stocks[:f.MaxStocks]
		result.Truncated = true
	}
	result.Stats.Total = len(stocks)

	log := e.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"key":    key,
	})
	log.WithFields(map[string]interface{}{
		"total":    len(stocks),
		"universe": string(universe.Origin),
	}).Info("Screening started")

	for i, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, match, err := e.screenOne(ctx, f, stock)
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		e.tally(&result, outcome, match)

		if outcome == OutcomeError && result.Stats.Errors > e.opts.ErrorBudget {
			result.Aborted = true
			log.WithFields(map[string]interface{}{
				"errors":    result.Stats.Errors,
				"budget":    e.opts.ErrorBudget,
				"processed": result.Stats.Processed,
			}).Warn("Error budget exceeded, stopping screening")
			break
		}

		if e.opts.ProgressEvery > 0 && result.Stats.Processed%e.opts.ProgressEvery == 0 {
			e.report(result, false)
		}

		last := i == len(stocks)-1
		if !last && e.opts.PauseEvery > 0 && e.opts.Pause > 0 && result.Stats.Processed%e.opts.PauseEvery == 0 {
			if err := e.sleep(ctx, e.opts.Pause); err != nil {
				return result, err
			}
		}
	}

	result.Duration = e.now().Sub(started)
	e.report(result, true)

	status := "completed"
	if result.Aborted {
		status = "aborted"
	} else {
		e.save(ctx, key, result)
	}
	e.metrics.ScreenRun(status)

	if err := e.recorder.Record(ctx, result, f); err != nil {
		log.WithError(err).Warn("Failed to record screening run")
	}

	log.WithFields(map[string]interface{}{
		"total":       result.Stats.Total,
		"processed":   result.Stats.Processed,
		"accepted":    result.Stats.Accepted,
		"rejected":    result.Stats.Rejected,
		"skipped":     result.Stats.Skipped,
		"implausible": result.Stats.Implausible,
		"errors":      result.Stats.Errors,
		"aborted":     result.Aborted,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Screening completed")

	return result, nil
}

// screenOne classifies one symbol. The error is returned only so the caller
// can tell a cancelled context apart from a per-symbol failure.
func (e *Engine) screenOne(ctx context.Context, f Filter, stock market.StockInfo) (Outcome, market.ScreeningMatch, error) {
	res, err := e.source.Fundamentals(ctx, stock.Code)
	if err != nil {
		e.logger.WithError(err).WithField("code", stock.Code).Debug("Fundamentals lookup failed")
		return OutcomeError, market.ScreeningMatch{}, err
	}

	rec := res.Data
	if res.Origin == retrieval.OriginDefault || rec.Defaulted() {
		if !e.opts.UseDefaults {
			return OutcomeError, market.ScreeningMatch{}, nil
		}
	}

	return Classify(f, stock, rec)
}

// Classify applies the plausibility checks and thresholds to one record
func Classify(f Filter, stock market.StockInfo, rec market.FundamentalRecord) (Outcome, market.ScreeningMatch, error) {
	if !rec.Complete() {
		return OutcomeSkip, market.ScreeningMatch{}, nil
	}

	pe, pb := rec.PE.Value, rec.PB.Value
	roe, growth := rec.ROE.Value, rec.RevenueGrowth.Value
	if implausible(pe, pb) {
		return OutcomeImplausible, market.ScreeningMatch{}, nil
	}

	if !inRange(pe, f.PEMin, f.PEMax) || !inRange(pb, f.PBMin, f.PBMax) {
		return OutcomeReject, market.ScreeningMatch{}, nil
	}
	if roe < f.ROEMin || growth < f.GrowthMin {
		return OutcomeReject, market.ScreeningMatch{}, nil
	}

	return OutcomeAccept, market.ScreeningMatch{
		Code:            stock.Code,
		Name:            stock.Name,
		PE:              pe,
		PB:              pb,
		ROE:             roe,
		RevenueGrowth:   growth,
		NetProfitGrowth: rec.NetProfitGrowth.Value,
	}, nil
}

func (e *Engine) tally(r *market.ScreeningResult, outcome Outcome, match market.ScreeningMatch) {
	r.Stats.Processed++
	switch outcome {
	case OutcomeAccept:
		r.Stats.Accepted++
		r.Matches = append(r.Matches, match)
	case OutcomeReject:
		r.Stats.Rejected++
	case OutcomeSkip:
		r.Stats.Skipped++
	case OutcomeImplausible:
		r.Stats.Implausible++
	case OutcomeError:
		r.Stats.Errors++
	}
	e.metrics.ScreenSymbol(string(outcome))
}

func (e *Engine) report(r market.ScreeningResult, done bool) {
	p := Progress{
		Processed: r.Stats.Processed,
		Total:     r.Stats.Total,
		Matched:   r.Stats.Accepted,
		Errors:    r.Stats.Errors,
		Done:      done,
	}
	if e.progress != nil {
		e.progress(p)
	}
	if !done {
		e.logger.WithFields(map[string]interface{}{
			"processed": p.Processed,
			"total":     p.Total,
			"matched":   p.Matched,
			"errors":    p.Errors,
		}).Debug("Screening progress")
	}
}

func (e *Engine) cached(ctx context.Context, key string) (market.ScreeningResult, bool) {
	if e.cache == nil {
		return market.ScreeningResult{}, false
	}
	hit, state, err := cache.Load[market.ScreeningResult](ctx, e.cache, key, cache.ScreenTTL)
	if err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return market.ScreeningResult{}, false
	}
	e.metrics.CacheLookup("screen", state.String())
	if state != cache.Fresh {
		return market.ScreeningResult{}, false
	}
	hit.FromCache = true
	return hit, true
}

func (e *Engine) save(ctx context.Context, key string, r market.ScreeningResult) {
	if e.cache == nil {
		return
	}
	if err := cache.Save(ctx, e.cache, key, r); err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func (e *Engine) maxStocks() int {
	if e.opts.MaxStocks > 0 {
		return e.opts.MaxStocks
	}
	return DefaultMaxStocks
}

func (e *Engine) now() time.Time {
	if e.cache != nil {
		return e.cache.Now()
	}
	return time.Now()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
