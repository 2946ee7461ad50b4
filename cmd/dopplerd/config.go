// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// serverConfig is dopplerd's own process configuration — never the
// engine's. The engine is always constructed in-process from its
// immutable Config tuple; sale configurations are read only from the
// optional seed file (seedConfig below), never from environment
// variables.
type serverConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	MetricsNamespace string `yaml:"metrics_namespace"`
	SeedFile       string `yaml:"seed_file"`
	MySQLDSN       string `yaml:"mysql_dsn"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		ListenAddr:       ":8090",
		MetricsNamespace: "doppler",
	}
}

// loadEnvOverrides applies DOPPLER_* environment variables on top of cfg,
// loading an optional .env file first (local/dev convenience only).
func loadEnvOverrides(cfg serverConfig) serverConfig {
	_ = godotenv.Load()
	if v := os.Getenv("DOPPLER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DOPPLER_METRICS_NAMESPACE"); v != "" {
		cfg.MetricsNamespace = v
	}
	if v := os.Getenv("DOPPLER_MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	return cfg
}

// seedConfig describes one pool to seed the diagnostics registry with at
// startup, read from an optional YAML file.
type seedConfig struct {
	Pools []struct {
		Name            string `yaml:"name"`
		StartingTime    int64  `yaml:"starting_time"`
		EndingTime      int64  `yaml:"ending_time"`
		EpochLength     int64  `yaml:"epoch_length"`
		StartTick       int32  `yaml:"start_tick"`
		EndTick         int32  `yaml:"end_tick"`
		Gamma           int32  `yaml:"gamma"`
		TickSpacing     int32  `yaml:"tick_spacing"`
		NumPDSlugs      int    `yaml:"num_pd_slugs"`
		NumTokensToSell string `yaml:"num_tokens_to_sell"`
		MinimumProceeds string `yaml:"minimum_proceeds"`
		MaximumProceeds string `yaml:"maximum_proceeds"`
		IsToken0        bool   `yaml:"is_token_0"`
	} `yaml:"pools"`
}

func loadSeedFile(path string) (seedConfig, error) {
	var sc seedConfig
	if path == "" {
		return sc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, err
	}
	return sc, nil
}
