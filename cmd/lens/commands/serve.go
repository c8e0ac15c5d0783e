package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketlens/internal/api"
	"github.com/wonny/marketlens/internal/api/handlers"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/scheduler"
	"github.com/wonny/marketlens/internal/scheduler/jobs"
)

var (
	servePort     string
	serveNoJobs   bool
	serveSchedule string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 캐시 워밍 스케줄러 시작",
	Long: `Start the read-only JSON API for the dashboard and the cache
warming scheduler.

Endpoints:
  GET /health
  GET /metrics
  GET /api/boards?days=7
  GET /api/stocks/{code}/history?start=&end=
  GET /api/stocks/{code}/indicators?start=&end=
  GET /api/stocks/{code}/fundamentals
  GET /api/universe/search?q=
  GET /api/universe/{code}
  GET /api/screen?preset=&pe_min=&pe_max=&pb_min=&pb_max=&roe_min=&growth_min=&max_stocks=
  GET /api/screen/presets
  GET /api/screen/runs?limit=
  GET /api/jobs

Example:
  go run ./cmd/lens serve --port 8089`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default PORT)")
	serveCmd.Flags().BoolVar(&serveNoJobs, "no-jobs", false, "do not start the scheduler")
	serveCmd.Flags().StringVar(&serveSchedule, "screen-preset", "default", "preset screened after the close (empty to disable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	// 1. Scheduler
	sched := scheduler.New(a.log, market.ChinaTime)
	if !serveNoJobs {
		if err := registerJobs(a, sched); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 2. Handlers
	var db handlers.HealthChecker
	if a.db != nil {
		db = a.db
	}
	h := api.Handlers{
		Market:    handlers.NewMarketHandler(a.coord, a.log),
		Universe:  handlers.NewUniverseHandler(a.coord, a.log),
		Screening: handlers.NewScreeningHandler(a.engine, a.presets, a.recorder, a.log),
		System:    handlers.NewSystemHandler("marketlens", db, sched),
	}
	if a.metrics != nil {
		h.Metrics = a.metrics.Handler()
	}

	// 3. Server with graceful shutdown
	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

func registerJobs(a *app, sched *scheduler.Scheduler) error {
	list := []scheduler.Job{
		jobs.NewBoardsJob(a.coord, a.log),
		jobs.NewUniverseJob(a.coord, a.log),
	}
	if serveSchedule != "" {
		f, err := a.presets.Get(serveSchedule)
		if err != nil {
			return err
		}
		list = append(list, jobs.NewScreenJob(a.engine, serveSchedule, f, a.log))
	}

	for _, job := range list {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}
	return nil
}
