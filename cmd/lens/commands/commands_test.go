package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketlens/internal/indicator"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/internal/screening"
)

func TestResolveFilter(t *testing.T) {
	t.Cleanup(func() {
		screenPreset = ""
		screenFilter = screening.Filter{}
		screenCmd.Flags().Set("pe-max", "0")
	})

	screenPreset = "value"
	require.NoError(t, screenCmd.Flags().Set("pe-max", "12"))

	f, err := resolveFilter(screenCmd, screening.BuiltinPresets())
	require.NoError(t, err)

	want := screening.BuiltinPresets()["value"]
	want.PEMax = 12
	assert.Equal(t, want, f)

	screenPreset = "unknown"
	_, err = resolveFilter(screenCmd, screening.BuiltinPresets())
	assert.Error(t, err)
}

func TestDefaultRange(t *testing.T) {
	t.Cleanup(func() { rangeStart, rangeEnd = "", "" })

	// 2024-03-15 23:30 UTC is already the 16th in Beijing
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	start, end := defaultRange(now)
	assert.Equal(t, "20240316", end)
	assert.Equal(t, "20230918", start)

	rangeStart, rangeEnd = "20240101", "20240131"
	start, end = defaultRange(now)
	assert.Equal(t, "20240101", start)
	assert.Equal(t, "20240131", end)
}

func TestTail(t *testing.T) {
	t.Cleanup(func() { tailRows = 20 })

	rows := []int{1, 2, 3, 4, 5}
	tailRows = 2
	assert.Equal(t, []int{4, 5}, tail(rows))
	tailRows = 0
	assert.Equal(t, rows, tail(rows))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "-", num(market.Undefined))
	assert.Equal(t, "1.23", num(market.Some(1.234)))
	assert.Equal(t, "2.34%", pct(market.Some(0.0234)))
	assert.Equal(t, "-", pct(market.Undefined))
	assert.Equal(t, "125", whole(market.Some(125)))
}

func TestPrintOrigin(t *testing.T) {
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })

	printOrigin(retrieval.Result[int]{Origin: retrieval.OriginStale, Provider: "sina", Degraded: true})
	assert.Contains(t, buf.String(), "source: stale (sina) [columns assumed positionally]")
	assert.Contains(t, buf.String(), "last cached data")
}

func TestPrintReferenceLines(t *testing.T) {
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })

	printReferenceLines(indicator.References())
	assert.Equal(t, "reference: RSI 80/20  WR21 20/80 (overbought/oversold)\n", buf.String())
}
