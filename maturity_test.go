// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"math/big"
	"testing"
)

func TestExitPopulatesStateDBSettlementWidth(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap: %v", err)
	}
	numeraireIn := new(big.Int).Mul(big.NewInt(5), weiScale())
	delta := NewBalanceDelta(big.NewInt(-1), numeraireIn)
	if _, err := engine.AfterSwap(key, buyParams(1), delta, now); err != nil {
		t.Fatalf("AfterSwap: %v", err)
	}

	// Force early exit so Exit's preconditions are met.
	engine.mu.Lock()
	engine.state.SaleState = StateEarlyExit
	engine.mu.Unlock()

	result, err := engine.Exit(testAirlock{addr: [20]byte{9}})
	if err != nil {
		t.Fatalf("Exit: %v", err)
	}

	if result.AssetAmountU256 == nil || result.NumeraireAmountU256 == nil {
		t.Fatalf("Exit result missing uint256 settlement amounts")
	}
	if result.AssetAmountU256.ToBig().Cmp(result.AssetAmount) != 0 {
		t.Fatalf("AssetAmountU256 = %s, want %s", result.AssetAmountU256.ToBig(), result.AssetAmount)
	}
	if result.NumeraireAmountU256.ToBig().Cmp(result.NumeraireAmount) != 0 {
		t.Fatalf("NumeraireAmountU256 = %s, want %s", result.NumeraireAmountU256.ToBig(), result.NumeraireAmount)
	}
}
