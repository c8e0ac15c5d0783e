package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/internal/screening"
	"github.com/wonny/marketlens/pkg/logger"
)

type stubCoordinator struct {
	boards   retrieval.Result[[]market.BoardSnapshot]
	universe retrieval.Result[[]market.StockInfo]
	err      error
}

func (s *stubCoordinator) Boards(context.Context) (retrieval.Result[[]market.BoardSnapshot], error) {
	return s.boards, s.err
}

func (s *stubCoordinator) Universe(context.Context) (retrieval.Result[[]market.StockInfo], error) {
	return s.universe, s.err
}

type stubScreener struct {
	got screening.Filter
	err error
}

func (s *stubScreener) Run(_ context.Context, f screening.Filter) (market.ScreeningResult, error) {
	s.got = f
	return market.ScreeningResult{RunID: "r1"}, s.err
}

func TestBoardsJob(t *testing.T) {
	ctx := context.Background()

	live := &stubCoordinator{boards: retrieval.Result[[]market.BoardSnapshot]{
		Data: []market.BoardSnapshot{{Code: "BK0475"}}, Origin: retrieval.OriginLive,
	}}
	assert.NoError(t, NewBoardsJob(live, logger.NewNop()).Run(ctx))

	stale := &stubCoordinator{boards: retrieval.Result[[]market.BoardSnapshot]{Origin: retrieval.OriginStale}}
	assert.NoError(t, NewBoardsJob(stale, logger.NewNop()).Run(ctx))

	empty := &stubCoordinator{boards: retrieval.Result[[]market.BoardSnapshot]{Origin: retrieval.OriginDefault}}
	assert.Error(t, NewBoardsJob(empty, logger.NewNop()).Run(ctx))

	cancelled := &stubCoordinator{err: context.Canceled}
	assert.ErrorIs(t, NewBoardsJob(cancelled, logger.NewNop()).Run(ctx), context.Canceled)
}

func TestUniverseJob(t *testing.T) {
	ctx := context.Background()

	job := NewUniverseJob(&stubCoordinator{universe: retrieval.Result[[]market.StockInfo]{Origin: retrieval.OriginCache}}, logger.NewNop())
	assert.Equal(t, "warm_universe", job.Name())
	assert.NoError(t, job.Run(ctx))

	job = NewUniverseJob(&stubCoordinator{universe: retrieval.Result[[]market.StockInfo]{Origin: retrieval.OriginDefault}}, logger.NewNop())
	assert.Error(t, job.Run(ctx))
}

func TestScreenJob(t *testing.T) {
	s := &stubScreener{}
	f := screening.Filter{PEMax: 20}
	job := NewScreenJob(s, "value", f, logger.NewNop())

	assert.Equal(t, "screen_value", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, f, s.got)

	s.err = errors.New("boom")
	assert.Error(t, job.Run(context.Background()))
}
