package metrics_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/distritherm-admin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestClientMetrics_NilSafe(t *testing.T) {
	var m *metrics.ClientMetrics
	m.ObserveRequest("GET", 200, time.Millisecond)
	m.IncRefresh(true)
	m.IncQueued()
	m.IncRetry()
	require.Nil(t, m.Refreshes(true))

	unregistered := metrics.NewClientMetrics(nil)
	unregistered.IncRefresh(false)
}

func TestClientMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)

	m.IncRefresh(true)
	m.IncRefresh(true)
	m.IncRefresh(false)
	m.ObserveRequest("GET", 401, time.Millisecond)
	m.ObserveRequest("GET", 0, time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.Refreshes(true)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Refreshes(false)))
	count, err := testutil.GatherAndCount(reg, "distritherm_api_requests_total", "distritherm_api_token_refreshes_total")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}
