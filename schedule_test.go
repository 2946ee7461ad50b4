// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"math/big"
	"testing"
)

func TestExpectedSoldLinear(t *testing.T) {
	cfg := scenarioAConfig()
	sched := NewSchedule(cfg)

	if got := sched.ExpectedSold(cfg.StartingTime); got.Sign() != 0 {
		t.Fatalf("expected 0 at starting_time, got %s", got)
	}
	if got := sched.ExpectedSold(cfg.EndingTime); got.Cmp(cfg.NumTokensToSell) != 0 {
		t.Fatalf("expected full supply at ending_time, got %s", got)
	}

	mid := (cfg.StartingTime + cfg.EndingTime) / 2
	got := sched.ExpectedSold(mid)
	half := new(big.Int).Div(cfg.NumTokensToSell, big.NewInt(2))
	diff := new(big.Int).Sub(got, half)
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("expected ~half supply at midpoint, got %s want ~%s", got, half)
	}
}

func TestMaxTickDeltaPerEpoch(t *testing.T) {
	cfg := scenarioAConfig()
	sched := NewSchedule(cfg)

	maxDelta := sched.MaxTickDeltaPerEpoch()
	// (end_tick - start_tick) * 1e18 / total_epochs = (-172800) * 1e18 / 216 = -800e18
	want := new(big.Int).Mul(big.NewInt(-800), scaleQ18)
	if maxDelta.Cmp(want) != 0 {
		t.Fatalf("max_tick_delta_per_epoch = %s, want %s", maxDelta, want)
	}
}

func TestAccumulatorDeltaNoTradeAdvancesBySchedule(t *testing.T) {
	cfg := scenarioAConfig()
	sched := NewSchedule(cfg)

	now := cfg.StartingTime + 3*cfg.EpochLength
	zero := big.NewInt(0)
	delta := sched.AccumulatorDelta(now, 3, zero, zero)

	maxDelta := sched.MaxTickDeltaPerEpoch()
	want := new(big.Int).Mul(maxDelta, big.NewInt(3))
	if delta.Cmp(want) != 0 {
		t.Fatalf("no-trade accumulator delta = %s, want %s", delta, want)
	}
}

func TestAccumulatorDeltaIsNoOpWithoutElapsedEpochs(t *testing.T) {
	cfg := scenarioAConfig()
	sched := NewSchedule(cfg)
	zero := big.NewInt(0)
	delta := sched.AccumulatorDelta(cfg.StartingTime, 0, zero, zero)
	if delta.Sign() != 0 {
		t.Fatalf("expected zero delta for zero elapsed epochs, got %s", delta)
	}
}

func TestAnchorTickAdvancesTowardEndTick(t *testing.T) {
	cfg := scenarioAConfig()
	sched := NewSchedule(cfg)

	currentEpoch := sched.CurrentEpoch(cfg.StartingTime + 3*cfg.EpochLength)
	if currentEpoch != 4 {
		t.Fatalf("current epoch = %d, want 4", currentEpoch)
	}

	accumulator := sched.AccumulatorDelta(cfg.StartingTime+3*cfg.EpochLength, 3, big.NewInt(0), big.NewInt(0))
	anchor := sched.AnchorTick(currentEpoch, accumulator)

	if anchor >= cfg.StartTick {
		t.Fatalf("anchor tick %d did not advance toward end_tick from start_tick %d", anchor, cfg.StartTick)
	}
	if anchor%cfg.TickSpacing != 0 {
		t.Fatalf("anchor tick %d not aligned to spacing %d", anchor, cfg.TickSpacing)
	}
}

func TestAlignToSpacing(t *testing.T) {
	cases := []struct {
		tick, spacing int24
		towardEnd     bool
		want          int24
	}{
		{tick: 10, spacing: 8, towardEnd: true, want: 16},
		{tick: 10, spacing: 8, towardEnd: false, want: 8},
		{tick: -10, spacing: 8, towardEnd: true, want: -8},
		{tick: -10, spacing: 8, towardEnd: false, want: -16},
		{tick: 16, spacing: 8, towardEnd: true, want: 16},
	}
	for _, c := range cases {
		got := AlignToSpacing(c.tick, c.spacing, c.towardEnd)
		if got != c.want {
			t.Errorf("AlignToSpacing(%d, %d, %v) = %d, want %d", c.tick, c.spacing, c.towardEnd, got, c.want)
		}
	}
}
