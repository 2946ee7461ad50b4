// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command dopplerd is a diagnostics server for one or more Doppler sale
// engines. It never hosts the engine's hook callbacks itself — those are
// invoked in-process by the host AMM — it exposes a view over engines
// registered into it, for local development and operational visibility,
// plus one operator route that triggers Engine.Exit.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/doppler"
)

func main() {
	seedPath := flag.String("seed", "", "optional YAML file of pools to seed the diagnostics registry with")
	flag.Parse()

	logger := log.NewLogger(log.InfoLevel)

	cfg := loadEnvOverrides(defaultServerConfig())
	if *seedPath != "" {
		cfg.SeedFile = *seedPath
	}

	registry := doppler.NewRegistry()
	metrics := doppler.NewMetrics(prometheus.DefaultRegisterer)

	if cfg.SeedFile != "" {
		seeds, err := loadSeedFile(cfg.SeedFile)
		if err != nil {
			logger.Error("failed to load seed file", "path", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
		if err := seedRegistry(registry, seeds); err != nil {
			logger.Error("failed to seed registry", "error", err)
			os.Exit(1)
		}
	}

	store, err := openEventStore(cfg.MySQLDSN)
	if err != nil {
		logger.Error("failed to open event store", "error", err)
		os.Exit(1)
	}

	go observeLoop(registry, metrics, 5*time.Second)

	srv := newServer(registry, store, devAirlock{})
	logger.Info("dopplerd listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.router()); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// observeLoop periodically snapshots every registered engine's state into
// the Prometheus gauge set. The engine itself never depends on metrics
// being observed; this is purely this binary's own polling of state
// that already exists.
func observeLoop(registry *doppler.Registry, metrics *doppler.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		for _, id := range registry.PoolIDs() {
			engine, ok := registry.EngineOf(id)
			if !ok {
				continue
			}
			metrics.Observe(id, engine.State())
		}
	}
}
