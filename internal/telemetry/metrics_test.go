package telemetry

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func familyByName(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestCollectorsRegistered(t *testing.T) {
	m := NewMetrics()

	m.BookUpdates.WithLabelValues("alpha").Inc()
	m.BookErrors.WithLabelValues("alpha").Inc()
	m.RouteRequests.WithLabelValues("BTC-USD", "ok").Inc()
	m.RouteSegments.Observe(2)
	m.RouteFillRatio.Observe(1)
	m.ModuleTicks.WithLabelValues("route_probe", "ok").Inc()
	m.TickDuration.WithLabelValues("route_probe").Observe(0.01)
	m.SessionState.Set(0)
	m.SnapshotSources.WithLabelValues("BTC-USD").Set(3)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"crossbook_book_updates_total",
		"crossbook_book_errors_total",
		"crossbook_route_requests_total",
		"crossbook_route_segments",
		"crossbook_route_fill_ratio",
		"crossbook_module_ticks_total",
		"crossbook_tick_duration_seconds",
		"crossbook_session_state",
		"crossbook_snapshot_sources",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestCounterValues(t *testing.T) {
	m := NewMetrics()
	m.BookUpdates.WithLabelValues("alpha").Inc()
	m.BookUpdates.WithLabelValues("alpha").Inc()
	m.BookUpdates.WithLabelValues("beta").Inc()

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	mf := familyByName(families, "crossbook_book_updates_total")
	require.NotNil(t, mf, "book updates family not gathered")
	require.Len(t, mf.GetMetric(), 2)

	total := 0.0
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	assert.Equal(t, 3.0, total)
}

func TestInstancesDoNotCollide(t *testing.T) {
	// Private registries keep parallel instances (and tests) independent.
	a := NewMetrics()
	b := NewMetrics()
	a.SessionState.Set(1)
	b.SessionState.Set(2)

	families, err := a.Gatherer().Gather()
	require.NoError(t, err)
	mf := familyByName(families, "crossbook_session_state")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestHandlerNotNil(t *testing.T) {
	assert.NotNil(t, NewMetrics().Handler())
}
