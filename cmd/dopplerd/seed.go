// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"math/big"

	"github.com/luxfi/doppler"
)

// devAirlock is a no-op Airlock used only so the diagnostics server's
// locally-seeded pools have something to construct an Engine against;
// production hosts supply their own real airlock.
type devAirlock struct{ addr [20]byte }

func (d devAirlock) Address() [20]byte { return d.addr }

func seedRegistry(registry *doppler.Registry, seeds seedConfig) error {
	for i, p := range seeds.Pools {
		numTokens, ok := new(big.Int).SetString(p.NumTokensToSell, 10)
		if !ok {
			return fmt.Errorf("seed %d (%s): invalid num_tokens_to_sell", i, p.Name)
		}
		minProceeds, ok := new(big.Int).SetString(p.MinimumProceeds, 10)
		if !ok {
			return fmt.Errorf("seed %d (%s): invalid minimum_proceeds", i, p.Name)
		}
		maxProceeds, ok := new(big.Int).SetString(p.MaximumProceeds, 10)
		if !ok {
			return fmt.Errorf("seed %d (%s): invalid maximum_proceeds", i, p.Name)
		}

		cfg := doppler.Config{
			IsToken0:        p.IsToken0,
			NumTokensToSell: numTokens,
			MinimumProceeds: minProceeds,
			MaximumProceeds: maxProceeds,
			StartingTime:    p.StartingTime,
			EndingTime:      p.EndingTime,
			EpochLength:     p.EpochLength,
			StartTick:       p.StartTick,
			EndTick:         p.EndTick,
			Gamma:           p.Gamma,
			NumPDSlugs:      p.NumPDSlugs,
			TickSpacing:     p.TickSpacing,
		}

		amm := doppler.NewReferenceAMM()
		key := doppler.PoolKey{
			Currency0:   doppler.NativeCurrency,
			Currency1:   doppler.NativeCurrency,
			Fee:         3000,
			TickSpacing: p.TickSpacing,
		}

		initialSqrtPrice, err := amm.SqrtPriceForTick(p.StartTick)
		if err != nil {
			return fmt.Errorf("seed %d (%s): %w", i, p.Name, err)
		}
		if err := amm.Initialize(key, initialSqrtPrice); err != nil {
			return fmt.Errorf("seed %d (%s): %w", i, p.Name, err)
		}

		if _, err := registry.Register(cfg, key, amm, devAirlock{}, [20]byte{}); err != nil {
			return fmt.Errorf("seed %d (%s): %w", i, p.Name, err)
		}
	}
	return nil
}
