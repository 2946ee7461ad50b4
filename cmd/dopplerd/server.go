// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/doppler"
)

// server is the diagnostics surface over a Registry. Every route is a
// view except POST /pools/{id}/exit, which calls Engine.Exit.
type server struct {
	registry *doppler.Registry
	store    *eventStore
	airlock  doppler.Airlock
	upgrader websocket.Upgrader
}

func newServer(registry *doppler.Registry, store *eventStore, airlock doppler.Airlock) *server {
	return &server{
		registry: registry,
		store:    store,
		airlock:  airlock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/pools/{id}", s.getPool)
	r.Get("/pools/{id}/stream", s.streamPool)
	r.Get("/pools/{id}/history", s.getHistory)
	r.Post("/pools/{id}/exit", s.postExit)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type poolSnapshot struct {
	PoolID          string `json:"pool_id"`
	SaleState       string `json:"sale_state"`
	LastEpoch       int64  `json:"last_epoch"`
	TickAccumulator string `json:"tick_accumulator"`
	TotalTokensSold string `json:"total_tokens_sold"`
	TotalProceeds   string `json:"total_proceeds"`
	FeesAsset       string `json:"fees_accrued_asset"`
	FeesNumeraire   string `json:"fees_accrued_numeraire"`
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*doppler.Engine, [32]byte, bool) {
	idHex := chi.URLParam(r, "id")
	raw, err := hex.DecodeString(idHex)
	if err != nil || len(raw) != 32 {
		http.Error(w, "invalid pool id", http.StatusBadRequest)
		return nil, [32]byte{}, false
	}
	var id [32]byte
	copy(id[:], raw)
	engine, ok := s.registry.EngineOf(id)
	if !ok {
		http.Error(w, "pool not found", http.StatusNotFound)
		return nil, [32]byte{}, false
	}
	return engine, id, true
}

func (s *server) getPool(w http.ResponseWriter, r *http.Request) {
	engine, id, ok := s.lookup(w, r)
	if !ok {
		return
	}
	st := engine.State()
	snap := poolSnapshot{
		PoolID:          hex.EncodeToString(id[:]),
		SaleState:       st.SaleState.String(),
		LastEpoch:       st.LastEpoch,
		TickAccumulator: st.TickAccumulator.String(),
		TotalTokensSold: st.TotalTokensSold.String(),
		TotalProceeds:   st.TotalProceeds.String(),
		FeesAsset:       st.FeesAccruedAsset.String(),
		FeesNumeraire:   st.FeesAccruedNumeraire.String(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.lookup(w, r)
	if !ok {
		return
	}
	events, err := s.store.history(hex.EncodeToString(id[:]))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// postExit is the operator-triggered counterpart to the engine's own
// automatic early-exit/maturity detection: it lets the diagnostics
// server's configured airlock drive a migration by hand and records the
// result to the audit trail. The engine itself still enforces the
// caller-address and state preconditions; this is not a privilege
// escalation path.
func (s *server) postExit(w http.ResponseWriter, r *http.Request) {
	engine, id, ok := s.lookup(w, r)
	if !ok {
		return
	}
	result, err := engine.Exit(s.airlock)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	poolID := hex.EncodeToString(id[:])
	if err := s.store.recordExit(poolID, result.AssetAmount.String(), result.NumeraireAmount.String(), result.FeesAsset.String(), result.FeesNumeraire.String()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		AssetAmount     string `json:"asset_amount"`
		NumeraireAmount string `json:"numeraire_amount"`
	}{result.AssetAmount.String(), result.NumeraireAmount.String()})
}

// streamPool polls the engine's latest rebalance trace every 500ms and
// pushes it as JSON whenever its correlation ID changes; of several
// rebalances between two polls only the last is sent. This is
// observability only; it never sits on a swap's critical path.
func (s *server) streamPool(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastSeen string
	for range ticker.C {
		trace := engine.LastTrace()
		if trace == nil || trace.CorrelationID == lastSeen {
			continue
		}
		lastSeen = trace.CorrelationID
		if err := conn.WriteJSON(trace); err != nil {
			return
		}
	}
}
