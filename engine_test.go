// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"math/big"
	"testing"
)

type testAirlock struct{ addr [20]byte }

func (t testAirlock) Address() [20]byte { return t.addr }

func newTestEngine(t *testing.T, cfg Config) (*Engine, PoolKey) {
	t.Helper()
	amm, key := newSlugTestAMM(t, cfg)
	engine, err := NewEngine(cfg, key, amm, testAirlock{addr: [20]byte{9}}, [20]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, key
}

// buyParams builds SwapParams for an exact-input buy of the asset: the
// swapper pays numeraire in, so ZeroForOne is false in this is_token_0
// orientation (asset is token0, selling token0 for token1 sells the
// asset; buying goes the other way).
func buyParams(amount int64) SwapParams {
	return SwapParams{ZeroForOne: false, AmountSpecified: big.NewInt(amount)}
}

func sellParams(amount int64) SwapParams {
	return SwapParams{ZeroForOne: true, AmountSpecified: big.NewInt(amount)}
}

// TestScenarioANoTradesTickAdvancesBySchedule mirrors the spec's Scenario
// A: warp to starting_time + 3*epoch_length and trigger a 1-wei buy, with
// no prior trading activity.
func TestScenarioANoTradesTickAdvancesBySchedule(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime + 3*cfg.EpochLength
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap: %v", err)
	}

	st := engine.State()
	if st.LastEpoch != 4 {
		t.Fatalf("current_epoch tracked as last_epoch = %d, want 4", st.LastEpoch)
	}

	sched := NewSchedule(cfg)
	maxDelta := sched.MaxTickDeltaPerEpoch()
	wantAccumulator := new(big.Int).Mul(maxDelta, big.NewInt(3))
	if st.TickAccumulator.Cmp(wantAccumulator) != 0 {
		t.Fatalf("tick_accumulator = %s, want %s", st.TickAccumulator, wantAccumulator)
	}

	trace := engine.LastTrace()
	if trace == nil {
		t.Fatalf("expected a rebalance trace after the first swap")
	}
	if trace.AnchorTick >= cfg.StartTick {
		t.Fatalf("anchor_tick %d did not move toward end_tick from start_tick %d", trace.AnchorTick, cfg.StartTick)
	}

	if st.TotalTokensSold.Sign() != 0 {
		t.Fatalf("total_tokens_sold = %s, want 0 (BeforeSwap never books the trade itself)", st.TotalTokensSold)
	}
}

// TestScenarioFEpochNoOp verifies that two swaps within the same epoch
// leave last_epoch and tick_accumulator unchanged, while the running
// totals still advance from each swap's booked delta.
func TestScenarioFEpochNoOp(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime + 10 // still within epoch 1

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap #1: %v", err)
	}
	delta1 := NewBalanceDelta(big.NewInt(-10), big.NewInt(20))
	if _, err := engine.AfterSwap(key, buyParams(1), delta1, now); err != nil {
		t.Fatalf("AfterSwap #1: %v", err)
	}

	stAfterFirst := engine.State()

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now+1); err != nil {
		t.Fatalf("BeforeSwap #2: %v", err)
	}
	delta2 := NewBalanceDelta(big.NewInt(-5), big.NewInt(10))
	if _, err := engine.AfterSwap(key, buyParams(1), delta2, now+1); err != nil {
		t.Fatalf("AfterSwap #2: %v", err)
	}

	stAfterSecond := engine.State()

	if stAfterSecond.LastEpoch != stAfterFirst.LastEpoch {
		t.Fatalf("last_epoch changed within the same epoch: %d -> %d", stAfterFirst.LastEpoch, stAfterSecond.LastEpoch)
	}
	if stAfterSecond.TickAccumulator.Cmp(stAfterFirst.TickAccumulator) != 0 {
		t.Fatalf("tick_accumulator changed within the same epoch: %s -> %s", stAfterFirst.TickAccumulator, stAfterSecond.TickAccumulator)
	}
	if stAfterSecond.TotalTokensSold.Cmp(stAfterFirst.TotalTokensSold) <= 0 {
		t.Fatalf("total_tokens_sold did not advance across the second swap")
	}
	if stAfterSecond.TotalProceeds.Cmp(stAfterFirst.TotalProceeds) <= 0 {
		t.Fatalf("total_proceeds did not advance across the second swap")
	}
}

// TestScenarioCEarlyExit verifies that a swap pushing proceeds past
// maximum_proceeds flips the state to EARLY_EXIT and that any further
// swap in either direction reverts, while Exit as the airlock drains the
// remaining positions.
func TestScenarioCEarlyExit(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.MaximumProceeds = new(big.Int).Mul(big.NewInt(10), weiScale())
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap: %v", err)
	}
	// Numeraire in, well past maximum_proceeds even after fees.
	numeraireIn := new(big.Int).Mul(big.NewInt(20), weiScale())
	delta := NewBalanceDelta(big.NewInt(-1), numeraireIn)
	if _, err := engine.AfterSwap(key, buyParams(1), delta, now); err != nil {
		t.Fatalf("AfterSwap: %v", err)
	}

	st := engine.State()
	if st.SaleState != StateEarlyExit {
		t.Fatalf("sale_state = %v, want EARLY_EXIT", st.SaleState)
	}

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now+1); err != ErrMaximumProceedsReached {
		t.Fatalf("BeforeSwap after early exit (buy) = %v, want ErrMaximumProceedsReached", err)
	}
	if _, err := engine.BeforeSwap(key, [20]byte{}, sellParams(1), now+1); err != ErrMaximumProceedsReached {
		t.Fatalf("BeforeSwap after early exit (sell) = %v, want ErrMaximumProceedsReached", err)
	}

	result, err := engine.Exit(testAirlock{addr: [20]byte{9}})
	if err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if result.AssetAmount == nil || result.NumeraireAmount == nil {
		t.Fatalf("Exit result missing residual balances")
	}

	if _, err := engine.Exit(testAirlock{addr: [20]byte{9}}); err != ErrCannotMigrate {
		t.Fatalf("second Exit = %v, want ErrCannotMigrate (terminal)", err)
	}
}

// TestExitRejectsNonAirlockCaller checks the authorization boundary on
// post-maturity operations.
func TestExitRejectsNonAirlockCaller(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.MaximumProceeds = new(big.Int).Mul(big.NewInt(10), weiScale())
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap: %v", err)
	}
	numeraireIn := new(big.Int).Mul(big.NewInt(20), weiScale())
	delta := NewBalanceDelta(big.NewInt(-1), numeraireIn)
	if _, err := engine.AfterSwap(key, buyParams(1), delta, now); err != nil {
		t.Fatalf("AfterSwap: %v", err)
	}

	if _, err := engine.Exit(testAirlock{addr: [20]byte{0xFF}}); err != ErrUnauthorized {
		t.Fatalf("Exit from non-airlock caller = %v, want ErrUnauthorized", err)
	}
}

// TestScenarioDInsufficientProceedsAfterMaturity checks that a buy after
// ending_time with proceeds below minimum_proceeds reverts, while sells
// still succeed and continue to reduce the running totals.
func TestScenarioDInsufficientProceedsAfterMaturity(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.MinimumProceeds = new(big.Int).Mul(big.NewInt(1_000_000), weiScale())
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap (during sale): %v", err)
	}
	small := NewBalanceDelta(big.NewInt(-1), big.NewInt(100))
	if _, err := engine.AfterSwap(key, buyParams(1), small, now); err != nil {
		t.Fatalf("AfterSwap (during sale): %v", err)
	}

	after := cfg.EndingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), after); err != ErrInvalidSwapAfterMaturityInsufficientProceeds {
		t.Fatalf("BeforeSwap buy after maturity (insufficient proceeds) = %v, want ErrInvalidSwapAfterMaturityInsufficientProceeds", err)
	}

	st := engine.State()
	if st.SaleState != StateMaturedFail {
		t.Fatalf("sale_state = %v, want MATURED_FAIL", st.SaleState)
	}

	if _, err := engine.BeforeSwap(key, [20]byte{}, sellParams(1), after+1); err != nil {
		t.Fatalf("sell after maturity fail should succeed, got %v", err)
	}
}

// TestScenarioESuccessPathRejectsBuysAfterMaturity checks that a sale
// landing between minimum_proceeds and maximum_proceeds transitions to
// MATURED_SUCCESS at ending_time and rejects further buys.
func TestScenarioESuccessPathRejectsBuysAfterMaturity(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.MinimumProceeds = big.NewInt(0)
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap (during sale): %v", err)
	}
	small := NewBalanceDelta(big.NewInt(-1), big.NewInt(100))
	if _, err := engine.AfterSwap(key, buyParams(1), small, now); err != nil {
		t.Fatalf("AfterSwap (during sale): %v", err)
	}

	after := cfg.EndingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), after); err != ErrInvalidSwapAfterMaturitySufficientProceeds {
		t.Fatalf("BeforeSwap buy after maturity (sufficient proceeds) = %v, want ErrInvalidSwapAfterMaturitySufficientProceeds", err)
	}

	st := engine.State()
	if st.SaleState != StateMaturedSuccess {
		t.Fatalf("sale_state = %v, want MATURED_SUCCESS", st.SaleState)
	}

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), after+1); err != ErrInvalidSwapAfterMaturitySufficientProceeds {
		t.Fatalf("further buy after MATURED_SUCCESS = %v, want ErrInvalidSwapAfterMaturitySufficientProceeds", err)
	}

	if _, err := engine.Exit(testAirlock{addr: [20]byte{9}}); err != nil {
		t.Fatalf("Exit from MATURED_SUCCESS: %v", err)
	}
}

func TestBeforeSwapRejectsWrongPool(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)
	wrongKey := key
	wrongKey.Fee = key.Fee + 1

	if _, err := engine.BeforeSwap(wrongKey, [20]byte{}, buyParams(1), cfg.StartingTime); err != ErrUnauthorized {
		t.Fatalf("BeforeSwap on mismatched pool = %v, want ErrUnauthorized", err)
	}
}

func TestBeforeSwapRejectsBeforeStartingTime(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)

	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), cfg.StartingTime-1); err != ErrInvalidTime {
		t.Fatalf("BeforeSwap before starting_time = %v, want ErrInvalidTime", err)
	}
}

func TestCollectProtocolFeesResetsAccrual(t *testing.T) {
	cfg := scenarioAConfig()
	engine, key := newTestEngine(t, cfg)

	now := cfg.StartingTime
	if _, err := engine.BeforeSwap(key, [20]byte{}, buyParams(1), now); err != nil {
		t.Fatalf("BeforeSwap: %v", err)
	}
	delta := NewBalanceDelta(big.NewInt(-1_000), big.NewInt(2_000))
	if _, err := engine.AfterSwap(key, buyParams(1), delta, now); err != nil {
		t.Fatalf("AfterSwap: %v", err)
	}

	asset, numeraire, err := engine.CollectProtocolFees(testAirlock{addr: [20]byte{9}})
	if err != nil {
		t.Fatalf("CollectProtocolFees: %v", err)
	}
	if numeraire.Sign() <= 0 {
		t.Fatalf("expected positive accrued numeraire fee, got %s", numeraire)
	}
	_ = asset

	st := engine.State()
	if st.FeesAccruedNumeraire.Sign() != 0 {
		t.Fatalf("fees_accrued.numeraire not reset after collection, got %s", st.FeesAccruedNumeraire)
	}
}
