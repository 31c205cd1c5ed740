package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/liqmetrics"
	"github.com/tradeforge/crossbook/internal/registry"
	"github.com/tradeforge/crossbook/internal/router"
	"github.com/tradeforge/crossbook/internal/telemetry"
)

func testServer(t *testing.T) (*Server, *registry.Registry, *books.Store) {
	t.Helper()
	reg := registry.New(nil)
	store := books.NewStore(nil, nil)
	agg := aggregate.New(reg, store)
	rt := router.New(agg, nil, router.Config{})
	liq := liqmetrics.NewEngine(agg)
	return NewServer(":0", reg, agg, rt, liq, telemetry.NewMetrics(), nil), reg, store
}

func seedVenue(t *testing.T, reg *registry.Registry, store *books.Store) {
	t.Helper()
	reg.Add(domain.LiquiditySource{ID: "alpha", Active: true, Reliability: 0.98,
		Fees: domain.FeeSchedule{Taker: 0.001}})
	require.NoError(t, store.Update("alpha", "BTC-USD", domain.OrderBook{
		Timestamp:    time.Now(),
		Bids:         []domain.OrderBookLevel{{Price: 100, Size: 5}},
		Asks:         []domain.OrderBookLevel{{Price: 101, Size: 5}},
		Volume24hUSD: 1_000_000,
	}))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, reg, _ := testServer(t)
	reg.Add(domain.LiquiditySource{ID: "alpha"})

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["sources"])
}

func TestSources(t *testing.T) {
	s, reg, _ := testServer(t)
	reg.Add(domain.LiquiditySource{ID: "alpha", Priority: 1})
	reg.Add(domain.LiquiditySource{ID: "beta", Priority: 2})

	rec := get(t, s, "/sources")
	require.Equal(t, http.StatusOK, rec.Code)

	var sources []domain.LiquiditySource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, "alpha", sources[0].ID)
}

func TestSnapshot(t *testing.T) {
	s, reg, store := testServer(t)

	rec := get(t, s, "/snapshot/BTC-USD")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedVenue(t, reg, store)
	rec = get(t, s, "/snapshot/BTC-USD")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.LiquiditySnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "BTC-USD", snap.Instrument)
	assert.Equal(t, 1, snap.Aggregated.SourceCount)
}

func TestLiquidityMetricsComputedOnDemand(t *testing.T) {
	s, reg, store := testServer(t)

	rec := get(t, s, "/metrics/BTC-USD")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedVenue(t, reg, store)
	rec = get(t, s, "/metrics/BTC-USD")
	require.Equal(t, http.StatusOK, rec.Code)

	var m domain.LiquidityMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "BTC-USD", m.Instrument)
	assert.Positive(t, m.SpreadAbs)
}

func TestRouteValidation(t *testing.T) {
	s, reg, store := testServer(t)
	seedVenue(t, reg, store)

	for _, path := range []string{
		"/route",
		"/route?instrument=BTC-USD&side=buy",
		"/route?instrument=BTC-USD&side=buy&size=-1",
		"/route?instrument=BTC-USD&side=hold&size=1",
		"/route?side=buy&size=1",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestRoute(t *testing.T) {
	s, reg, store := testServer(t)

	rec := get(t, s, "/route?instrument=BTC-USD&side=buy&size=0.1")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no liquidity yet")

	seedVenue(t, reg, store)
	rec = get(t, s, "/route?instrument=BTC-USD&side=buy&size=0.1")
	require.Equal(t, http.StatusOK, rec.Code)

	var route domain.SmartRoute
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.Equal(t, domain.SideBuy, route.Side)
	assert.InDelta(t, 0.1, route.FilledSize, 1e-9)
}

func TestPrometheusEndpoint(t *testing.T) {
	s, _, _ := testServer(t)
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
