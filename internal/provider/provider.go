// Package provider defines the upstream adapter contracts.
//
// Each adapter translates one upstream vocabulary into the canonical tables of
// package market. Adapters never retry and never touch the cache; fallback
// across adapters belongs to package retrieval.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/marketlens/internal/market"
)

// Sentinel errors
var (
	// ErrEmpty means the upstream answered but carried no usable rows
	ErrEmpty = errors.New("empty result")
	// ErrSchema means the upstream shape could not be interpreted
	ErrSchema = errors.New("unrecognized response schema")
	// ErrUnsupported means the adapter does not serve the request (e.g. exchange)
	ErrUnsupported = errors.New("unsupported request")
)

// RetrievalError is the typed failure of one adapter call
type RetrievalError struct {
	Provider string
	Op       string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a RetrievalError
func Fail(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &RetrievalError{Provider: provider, Op: op, Err: err}
}

// Table is a normalized adapter result.
// Degraded is set when column names were not recognized and positional
// assumptions were applied instead.
type Table[R any] struct {
	Rows     []R
	Degraded bool
}

// Operation names used in errors, logs and metrics
const (
	OpBoards       = "boards"
	OpHistory      = "history"
	OpFundamentals = "fundamentals"
	OpUniverse     = "universe"
)

// BoardSource serves sector/industry board snapshots
type BoardSource interface {
	Name() string
	Boards(ctx context.Context) (Table[market.BoardSnapshot], error)
}

// HistorySource serves daily bars for one symbol.
// start and end are inclusive YYYYMMDD dates.
type HistorySource interface {
	Name() string
	History(ctx context.Context, sym market.Symbol, start, end string) (Table[market.QuoteHistoryRow], error)
}

// FundamentalSource serves screening ratios for one symbol.
// Fields the upstream does not carry are left undefined.
type FundamentalSource interface {
	Name() string
	Fundamentals(ctx context.Context, sym market.Symbol) (market.FundamentalRecord, error)
}

// UniverseSource serves the full listing of tradable symbols
type UniverseSource interface {
	Name() string
	Universe(ctx context.Context) (Table[market.StockInfo], error)
}
