package metrics_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/internal/metrics"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, http.StatusOK, time.Millisecond)
		m.ObserveRefresh(true)
		m.ObserveFrame("record")
	})
}

func TestMetrics_Observe(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	m, err := metrics.New(registry)
	require.NoError(t, err)

	m.ObserveRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, 0, time.Millisecond)
	m.ObserveRefresh(true)
	m.ObserveRefresh(false)
	m.ObserveRefresh(false)
	m.ObserveFrame("record")

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsCounter().WithLabelValues(http.MethodGet, "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsCounter().WithLabelValues(http.MethodGet, "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RefreshesCounter().WithLabelValues(metrics.RefreshSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RefreshesCounter().WithLabelValues(metrics.RefreshFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FramesCounter().WithLabelValues("record")), 0)

	count, err := testutil.GatherAndCount(registry, "copepod_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_SharedRegistry(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	first, err := metrics.New(registry)
	require.NoError(t, err)

	second, err := metrics.New(registry)
	require.NoError(t, err)

	first.ObserveFrame("record")
	second.ObserveFrame("record")

	assert.InDelta(t, 2, testutil.ToFloat64(first.FramesCounter().WithLabelValues("record")), 0)
}
