// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// SlugInputs bundles the C3 slug builder's inputs (§4.3).
type SlugInputs struct {
	AnchorTick         int24
	CurrentSqrtPriceX96 *big.Int
	TotalTokensSold    *big.Int
	TotalProceeds      *big.Int
	AssetBalance       *big.Int // asset held by the engine, available to place
	NumeraireBalance   *big.Int // numeraire held by the engine, available to place
	CurrentEpoch       int64
}

// BuildSlugs computes the LOWER, UPPER and PD_1..PD_N positions to hold
// for the rest of this epoch, per §4.3. The AMM is used only for its
// pure tick/price conversions (C1); no state is mutated.
func BuildSlugs(amm AMM, cfg Config, sched Schedule, in SlugInputs) ([]Position, error) {
	orient := cfg.Orientation()
	towardEndIncreasing := TickDirection(cfg.StartTick, cfg.EndTick) > 0

	currentTick, err := amm.TickForSqrtPrice(in.CurrentSqrtPriceX96)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, 0, 2+cfg.NumPDSlugs)

	lower, err := buildLowerSlug(amm, cfg, orient, currentTick, towardEndIncreasing, in)
	if err != nil {
		return nil, err
	}
	positions = append(positions, lower)

	maxDelta := sched.MaxTickDeltaPerEpoch()
	maxDeltaTicks := int24(new(big.Int).Div(maxDelta, scaleQ18).Int64())
	epochUpperTick := AlignToSpacing(in.AnchorTick+maxDeltaTicks, cfg.TickSpacing, towardEndIncreasing)

	upper, supplyUsed, err := buildUpperSlug(amm, cfg, orient, sched, in, epochUpperTick)
	if err != nil {
		return nil, err
	}
	positions = append(positions, upper)

	pd, err := buildPDSlugs(amm, cfg, orient, in, epochUpperTick, supplyUsed)
	if err != nil {
		return nil, err
	}
	positions = append(positions, pd...)

	return positions, nil
}

// buildLowerSlug sizes a slug that lets all sold tokens be repurchased at
// or above the price floor. Its upper bound is normally the epoch's
// anchor tick, exactly where buildUpperSlug's range begins (§4.3
// invariant: LOWER ends where UPPER starts). Per §4.2's edge case, if
// the AMM's live tick has already crossed the anchor in the schedule's
// direction of travel, the anchor is stale for placement purposes — use
// the live tick instead and defer reconciliation to the next epoch's
// accumulator update.
func buildLowerSlug(amm AMM, cfg Config, orient Orientation, currentTick int24, towardEndIncreasing bool, in SlugInputs) (Position, error) {
	crossed := currentTick > in.AnchorTick
	if !towardEndIncreasing {
		crossed = currentTick < in.AnchorTick
	}

	referenceTick := in.AnchorTick
	if crossed {
		referenceTick = AlignToSpacing(currentTick, cfg.TickSpacing, false)
	}

	lowerTickHigh := referenceTick
	lowerTickLow := lowerTickHigh - cfg.TickSpacing
	if lowerTickHigh <= lowerTickLow {
		lowerTickHigh = lowerTickLow + cfg.TickSpacing
	}

	sqrtLow, err := amm.SqrtPriceForTick(lowerTickLow)
	if err != nil {
		return Position{}, err
	}
	sqrtHigh, err := amm.SqrtPriceForTick(lowerTickHigh)
	if err != nil {
		return Position{}, err
	}

	// required_proceeds: numeraire needed at current price to buy back
	// total_tokens_sold across the lower slug's range.
	var requiredProceeds *big.Int
	if orient.IsToken0() {
		requiredLiquidity := amm.LiquidityForAmounts(sqrtLow, sqrtLow, sqrtHigh, in.TotalTokensSold, big.NewInt(0))
		requiredProceeds = amm.AmountForLiquidity1(sqrtLow, sqrtHigh, requiredLiquidity)
	} else {
		requiredLiquidity := amm.LiquidityForAmounts(sqrtHigh, sqrtLow, sqrtHigh, big.NewInt(0), in.TotalTokensSold)
		requiredProceeds = amm.AmountForLiquidity0(sqrtLow, sqrtHigh, requiredLiquidity)
	}

	if requiredProceeds.Cmp(in.TotalProceeds) <= 0 {
		liq := amm.LiquidityForAmounts(sqrtHigh, sqrtLow, sqrtHigh, big.NewInt(0), requiredProceeds)
		return Position{Slot: SlotLower, TickLower: lowerTickLow, TickUpper: lowerTickHigh, Liquidity: liq}, nil
	}

	// Under-collateralized: thin slug at the reference tick holding all
	// available numeraire.
	thinLow := AlignToSpacing(referenceTick, cfg.TickSpacing, false)
	thinHigh := thinLow + cfg.TickSpacing
	sqrtThinLow, err := amm.SqrtPriceForTick(thinLow)
	if err != nil {
		return Position{}, err
	}
	sqrtThinHigh, err := amm.SqrtPriceForTick(thinHigh)
	if err != nil {
		return Position{}, err
	}
	var liq *big.Int
	if orient.IsToken0() {
		liq = amm.LiquidityForAmounts(sqrtThinLow, sqrtThinLow, sqrtThinHigh, big.NewInt(0), in.TotalProceeds)
	} else {
		liq = amm.LiquidityForAmounts(sqrtThinLow, sqrtThinLow, sqrtThinHigh, in.TotalProceeds, big.NewInt(0))
	}
	return Position{Slot: SlotLower, TickLower: thinLow, TickUpper: thinHigh, Liquidity: liq}, nil
}

// buildUpperSlug sizes a slug to sell the next epoch's scheduled supply.
func buildUpperSlug(amm AMM, cfg Config, orient Orientation, sched Schedule, in SlugInputs, epochUpperTick int24) (Position, *big.Int, error) {
	tickLower, tickUpper := in.AnchorTick, epochUpperTick
	if tickLower > tickUpper {
		tickLower, tickUpper = tickUpper, tickLower
	}
	if tickUpper-tickLower < cfg.TickSpacing {
		return Position{Slot: SlotUpper, TickLower: tickLower, TickUpper: tickLower + cfg.TickSpacing, Liquidity: big.NewInt(0)}, big.NewInt(0), nil
	}

	nextEpochTarget := sched.ExpectedSold(sched.cfg.StartingTime + sched.cfg.EpochLength*(in.CurrentEpoch))
	supply := new(big.Int).Sub(nextEpochTarget, in.TotalTokensSold)
	if supply.Sign() < 0 {
		supply = big.NewInt(0)
	}
	if supply.Cmp(in.AssetBalance) > 0 {
		supply = new(big.Int).Set(in.AssetBalance)
	}
	if supply.Sign() == 0 {
		return Position{Slot: SlotUpper, TickLower: tickLower, TickUpper: tickUpper, Liquidity: big.NewInt(0)}, big.NewInt(0), nil
	}

	sqrtLow, err := amm.SqrtPriceForTick(tickLower)
	if err != nil {
		return Position{}, nil, err
	}
	sqrtHigh, err := amm.SqrtPriceForTick(tickUpper)
	if err != nil {
		return Position{}, nil, err
	}

	var liq *big.Int
	if orient.IsToken0() {
		liq = amm.LiquidityForAmounts(sqrtLow, sqrtLow, sqrtHigh, supply, big.NewInt(0))
	} else {
		liq = amm.LiquidityForAmounts(sqrtHigh, sqrtLow, sqrtHigh, big.NewInt(0), supply)
	}

	return Position{Slot: SlotUpper, TickLower: tickLower, TickUpper: tickUpper, Liquidity: liq}, supply, nil
}

// buildPDSlugs partitions the remaining asset after LOWER and UPPER into
// num_pd_slugs equal-width sub-ranges above the upper slug, collapsing
// toward UPPER as the schedule approaches end_tick.
func buildPDSlugs(amm AMM, cfg Config, orient Orientation, in SlugInputs, epochUpperTick int24, supplyUsedInUpper *big.Int) ([]Position, error) {
	remaining := new(big.Int).Sub(in.AssetBalance, supplyUsedInUpper)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}

	towardEndIncreasing := TickDirection(cfg.StartTick, cfg.EndTick) > 0
	pdRangeEnd := cfg.EndTick

	totalSpan := pdRangeEnd - epochUpperTick
	if totalSpan < 0 {
		totalSpan = -totalSpan
	}
	if totalSpan < cfg.TickSpacing || remaining.Sign() == 0 {
		return nil, nil
	}

	effectiveSlugs := cfg.NumPDSlugs
	widthPerSlug := totalSpan / int24(effectiveSlugs)
	if widthPerSlug < cfg.TickSpacing {
		effectiveSlugs = int(totalSpan / cfg.TickSpacing)
		if effectiveSlugs == 0 {
			return nil, nil
		}
		widthPerSlug = totalSpan / int24(effectiveSlugs)
	}
	widthPerSlug = AlignToSpacing(widthPerSlug, cfg.TickSpacing, true)
	if widthPerSlug < cfg.TickSpacing {
		widthPerSlug = cfg.TickSpacing
	}

	perSlugAsset := new(big.Int).Div(remaining, big.NewInt(int64(effectiveSlugs)))
	if perSlugAsset.Sign() == 0 {
		return nil, nil
	}

	positions := make([]Position, 0, effectiveSlugs)
	cursor := epochUpperTick
	for i := 0; i < effectiveSlugs; i++ {
		var lo, hi int24
		if towardEndIncreasing {
			lo = cursor
			hi = cursor + widthPerSlug
			cursor = hi
		} else {
			hi = cursor
			lo = cursor - widthPerSlug
			cursor = lo
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi-lo < cfg.TickSpacing {
			continue
		}
		sqrtLow, err := amm.SqrtPriceForTick(lo)
		if err != nil {
			return nil, err
		}
		sqrtHigh, err := amm.SqrtPriceForTick(hi)
		if err != nil {
			return nil, err
		}
		var liq *big.Int
		if orient.IsToken0() {
			liq = amm.LiquidityForAmounts(sqrtLow, sqrtLow, sqrtHigh, perSlugAsset, big.NewInt(0))
		} else {
			liq = amm.LiquidityForAmounts(sqrtHigh, sqrtLow, sqrtHigh, big.NewInt(0), perSlugAsset)
		}
		positions = append(positions, Position{
			Slot:      SlotUpper + 1 + SlotName(i),
			TickLower: lo,
			TickUpper: hi,
			Liquidity: liq,
		})
	}
	return positions, nil
}
