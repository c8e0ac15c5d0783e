package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ProviderAttempt("eastmoney", "history", "ok", 120*time.Millisecond)
	m.ProviderAttempt("eastmoney", "history", "ok", 80*time.Millisecond)
	m.ProviderAttempt("sina", "history", "error", time.Second)
	m.CacheLookup("history", "fresh")
	m.Fallback("fundamentals", "default")
	m.ScreenSymbol("accepted")
	m.ScreenRun("aborted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.providerAttempts.WithLabelValues("eastmoney", "history", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerAttempts.WithLabelValues("sina", "history", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("history", "fresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("fundamentals", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenSymbols.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenRuns.WithLabelValues("aborted")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ProviderAttempt("x", "y", "ok", time.Millisecond)
		m.CacheLookup("x", "miss")
		m.Fallback("x", "stale")
		m.ScreenSymbol("skipped")
		m.ScreenRun("completed")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CacheLookup("boards", "miss")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `marketlens_cache_lookups_total{dataset="boards",state="miss"} 1`)
}
