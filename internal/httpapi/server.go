// Package httpapi serves the monitoring surface: registry contents, live
// snapshots, one-shot routes, and Prometheus metrics. Read-only; control
// stays with the host process.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/liqmetrics"
	"github.com/tradeforge/crossbook/internal/registry"
	"github.com/tradeforge/crossbook/internal/router"
	"github.com/tradeforge/crossbook/internal/stream"
	"github.com/tradeforge/crossbook/internal/telemetry"
)

// Server exposes the HTTP monitoring API.
type Server struct {
	registry *registry.Registry
	agg      *aggregate.Aggregator
	router   *router.Router
	liq      *liqmetrics.Engine
	metrics  *telemetry.Metrics
	hub      *stream.Hub

	http *http.Server
}

// NewServer builds the server on the given listen address. metrics and hub
// may be nil; their routes are then omitted.
func NewServer(addr string, reg *registry.Registry, agg *aggregate.Aggregator,
	rt *router.Router, liq *liqmetrics.Engine, metrics *telemetry.Metrics, hub *stream.Hub) *Server {
	s := &Server{
		registry: reg,
		agg:      agg,
		router:   rt,
		liq:      liq,
		metrics:  metrics,
		hub:      hub,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)
	r.HandleFunc("/snapshot/{instrument}", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/metrics/{instrument}", s.handleLiquidityMetrics).Methods(http.MethodGet)
	r.HandleFunc("/route", s.handleRoute).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	if hub != nil {
		r.HandleFunc("/ws", hub.HandleWS)
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until it is shut down.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("http monitoring server listening")
	return s.http.ListenAndServe()
}

// Handler returns the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"sources": s.registry.Len(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]
	snap := s.agg.Snapshot(instrument)
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no liquidity snapshot for " + instrument,
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLiquidityMetrics(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]
	m, ok := s.liq.Cached(instrument)
	if !ok {
		if fresh := s.liq.Compute(instrument); fresh != nil {
			m, ok = *fresh, true
		}
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no liquidity metrics for " + instrument,
		})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	instrument := q.Get("instrument")
	side := domain.Side(q.Get("side"))
	size, err := strconv.ParseFloat(q.Get("size"), 64)
	if err != nil || size <= 0 || instrument == "" || (side != domain.SideBuy && side != domain.SideSell) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "route requires instrument, side=buy|sell, and size > 0",
		})
		return
	}

	route := s.router.Route(instrument, side, size)
	if route == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no route available for " + instrument,
		})
		return
	}
	writeJSON(w, http.StatusOK, route)
}
