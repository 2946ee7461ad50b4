// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// scaleQ18 is the Q18 fixed-point scale used throughout the schedule's
// signed intermediates, matching the tick_accumulator's own scale.
var scaleQ18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Schedule is the deterministic linear target of cumulative tokens sold
// vs. elapsed time, plus the per-epoch dutch-auction correction. It is a
// pure value type over an immutable Config: no schedule method mutates
// engine state.
type Schedule struct {
	cfg Config
}

// NewSchedule builds the schedule for a validated configuration.
func NewSchedule(cfg Config) Schedule {
	return Schedule{cfg: cfg}
}

// CurrentEpoch returns the 1-based epoch containing now.
func (s Schedule) CurrentEpoch(now int64) int64 {
	return (now-s.cfg.StartingTime)/s.cfg.EpochLength + 1
}

// ExpectedSold returns the linear target of cumulative asset sold at time t.
func (s Schedule) ExpectedSold(t int64) *big.Int {
	if t <= s.cfg.StartingTime {
		return big.NewInt(0)
	}
	window := s.cfg.EndingTime - s.cfg.StartingTime
	if t >= s.cfg.EndingTime {
		return new(big.Int).Set(s.cfg.NumTokensToSell)
	}
	elapsed := t - s.cfg.StartingTime
	num := new(big.Int).Mul(s.cfg.NumTokensToSell, big.NewInt(elapsed))
	return num.Div(num, big.NewInt(window))
}

// MaxTickDeltaPerEpoch returns (end_tick - start_tick) * 1e18 / total_epochs
// as a signed Q18 fixed-point value.
func (s Schedule) MaxTickDeltaPerEpoch() *big.Int {
	delta := big.NewInt(int64(s.cfg.EndTick) - int64(s.cfg.StartTick))
	num := new(big.Int).Mul(delta, scaleQ18)
	return num.Div(num, big.NewInt(s.cfg.TotalEpochs()))
}

// ElapsedGammaTicks returns gamma * (now - starting_time) / (ending_time -
// starting_time), signed by direction, in whole ticks (Q0).
func (s Schedule) ElapsedGammaTicks(now int64) *big.Int {
	window := s.cfg.EndingTime - s.cfg.StartingTime
	elapsed := now - s.cfg.StartingTime
	if elapsed < 0 {
		elapsed = 0
	}
	num := new(big.Int).Mul(big.NewInt(int64(s.cfg.Gamma)), big.NewInt(elapsed))
	return num.Div(num, big.NewInt(window))
}

// NetSoldInEpoch returns total_tokens_sold - total_tokens_sold_last_epoch.
func (s Schedule) NetSoldInEpoch(totalSold, totalSoldLastEpoch *big.Int) *big.Int {
	return new(big.Int).Sub(totalSold, totalSoldLastEpoch)
}

// DutchAuctionAmount returns expected_sold(now) - expected_sold(now -
// epochsPassed*epoch_length) - net_sold_in_epoch. Positive means behind
// schedule (lagging sales), negative means ahead (leading sales).
func (s Schedule) DutchAuctionAmount(now int64, epochsPassed int64, netSoldInEpoch *big.Int) *big.Int {
	back := now - epochsPassed*s.cfg.EpochLength
	expectedNow := s.ExpectedSold(now)
	expectedBack := s.ExpectedSold(back)
	stepTarget := new(big.Int).Sub(expectedNow, expectedBack)
	return new(big.Int).Sub(stepTarget, netSoldInEpoch)
}

// AccumulatorDelta computes the per-epoch correction to add to
// tick_accumulator, following §4.2's rule: if nothing traded last epoch,
// push the accumulator forward by max_tick_delta_per_epoch * epochsPassed
// in the direction of end_tick; otherwise apply a proportional correction
// clamped to that same bound. The direction sign is baked into
// MaxTickDeltaPerEpoch (end_tick - start_tick), so "forward" and
// "lagging sales widen the sale" fall out of the same arithmetic for
// both is_token_0 orientations — no separate branch per orientation.
func (s Schedule) AccumulatorDelta(now int64, epochsPassed int64, totalSold, totalSoldLastEpoch *big.Int) *big.Int {
	maxDelta := s.MaxTickDeltaPerEpoch()
	bound := new(big.Int).Mul(maxDelta, big.NewInt(epochsPassed))

	netSold := s.NetSoldInEpoch(totalSold, totalSoldLastEpoch)
	if netSold.Sign() == 0 {
		return bound
	}

	dutchAmount := s.DutchAuctionAmount(now, epochsPassed, netSold)
	expectedStep := new(big.Int).Sub(s.ExpectedSold(now), s.ExpectedSold(now-epochsPassed*s.cfg.EpochLength))
	if expectedStep.Sign() == 0 {
		return big.NewInt(0)
	}

	delta := new(big.Int).Mul(bound, dutchAmount)
	delta.Div(delta, expectedStep)

	if delta.CmpAbs(bound) > 0 {
		if delta.Sign() < 0 {
			delta = new(big.Int).Neg(bound)
		} else {
			delta = new(big.Int).Set(bound)
		}
	}
	return delta
}

// floorTick rounds tick down to the nearest multiple of a positive spacing.
func floorTick(tick, spacing int24) int24 {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

// ceilTick rounds tick up to the nearest multiple of a positive spacing.
func ceilTick(tick, spacing int24) int24 {
	q := tick / spacing
	if tick%spacing != 0 && tick > 0 {
		q++
	}
	return q * spacing
}

// AlignToSpacing rounds tick toward the schedule's end_tick at the given
// tick spacing — the single alignment function used everywhere a tick
// needs rounding (see DESIGN.md's Open Question resolution for alignment
// policy: one function parameterized by direction, not two).
// towardEndIncreasing reports whether end_tick > start_tick: true means
// the schedule moves toward larger ticks, so rounding "toward end_tick"
// rounds up; false means it rounds down.
func AlignToSpacing(tick int24, spacing int24, towardEndIncreasing bool) int24 {
	if spacing <= 0 {
		return tick
	}
	if towardEndIncreasing {
		return ceilTick(tick, spacing)
	}
	return floorTick(tick, spacing)
}

// AnchorTick computes the current epoch's anchor tick per §4.2:
// start_tick + (max_tick_delta_per_epoch * current_epoch + tick_accumulator) / 1e18,
// aligned toward end_tick.
func (s Schedule) AnchorTick(currentEpoch int64, tickAccumulator *big.Int) int24 {
	maxDelta := s.MaxTickDeltaPerEpoch()
	scaled := new(big.Int).Mul(maxDelta, big.NewInt(currentEpoch))
	scaled.Add(scaled, tickAccumulator)
	scaled.Div(scaled, scaleQ18)

	raw := int64(s.cfg.StartTick) + scaled.Int64()
	towardEnd := TickDirection(s.cfg.StartTick, s.cfg.EndTick) > 0
	return AlignToSpacing(int24(raw), s.cfg.TickSpacing, towardEnd)
}

// String renders a human-readable summary for diagnostics; on-chain
// arithmetic never uses decimal, only this display path does.
func (s Schedule) String() string {
	totalEpochs := s.cfg.TotalEpochs()
	maxDelta := decimal.NewFromBigInt(s.MaxTickDeltaPerEpoch(), -18)
	return fmt.Sprintf("schedule(epochs=%d, max_tick_delta_per_epoch=%s)", totalEpochs, maxDelta.String())
}
