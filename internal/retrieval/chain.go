package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/marketlens/internal/provider"
)

// strategy is one adapter bound to a request
type strategy[T any] struct {
	name  string
	fetch func(ctx context.Context) (T, error)
}

// attempt is the outcome of one strategy
type attempt[T any] struct {
	value    T
	provider string
	index    int
}

// firstValid tries strategies in order and returns the first result that
// passes valid. Adapter errors are logged and absorbed; only context
// cancellation is returned.
func firstValid[T any](ctx context.Context, c *Coordinator, op string, strategies []strategy[T], valid func(T) bool) (attempt[T], bool, error) {
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return attempt[T]{}, false, err
		}

		started := time.Now()
		v, err := s.fetch(ctx)
		elapsed := time.Since(started)

		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return attempt[T]{}, false, ctx.Err()
				}
			}
			c.metrics.ProviderAttempt(s.name, op, outcomeOf(err), elapsed)
			c.logger.WithFields(map[string]interface{}{
				"provider": s.name,
				"op":       op,
				"error":    err.Error(),
			}).Debug("Provider failed, trying next")
			continue
		case !valid(v):
			c.metrics.ProviderAttempt(s.name, op, "invalid", elapsed)
			c.logger.WithFields(map[string]interface{}{
				"provider": s.name,
				"op":       op,
			}).Debug("Provider returned no usable data, trying next")
			continue
		}

		c.metrics.ProviderAttempt(s.name, op, "ok", elapsed)
		return attempt[T]{value: v, provider: s.name, index: i}, true, nil
	}
	return attempt[T]{}, false, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, provider.ErrEmpty):
		return "empty"
	case errors.Is(err, provider.ErrSchema):
		return "schema"
	case errors.Is(err, provider.ErrUnsupported):
		return "unsupported"
	default:
		return "error"
	}
}
