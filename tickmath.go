// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"errors"
	"math"
	"math/big"
)

// ReferenceAMM is a minimal, in-memory AMM used only by this package's own
// tests and by cmd/dopplerd's local-dev diagnostics mode. The engine never
// imports it in production; it always talks to the AMM interface.
type ReferenceAMM struct {
	pools     map[[32]byte]*refPool
	positions map[[32]byte]map[[32]byte]*big.Int // poolID -> salt -> liquidity
}

type refPool struct {
	sqrtPriceX96 *big.Int
	tick         int24
	liquidity    *big.Int
	protocolFee  uint32
	lpFee        uint32
}

// NewReferenceAMM builds an empty reference AMM.
func NewReferenceAMM() *ReferenceAMM {
	return &ReferenceAMM{
		pools:     make(map[[32]byte]*refPool),
		positions: make(map[[32]byte]map[[32]byte]*big.Int),
	}
}

func (r *ReferenceAMM) Initialize(key PoolKey, initialSqrtPriceX96 *big.Int) error {
	id := key.ID()
	if _, ok := r.pools[id]; ok {
		return errors.New("reference amm: pool already initialized")
	}
	tick, err := r.TickForSqrtPrice(initialSqrtPriceX96)
	if err != nil {
		return err
	}
	r.pools[id] = &refPool{
		sqrtPriceX96: new(big.Int).Set(initialSqrtPriceX96),
		tick:         tick,
		liquidity:    big.NewInt(0),
		lpFee:        key.Fee,
	}
	r.positions[id] = make(map[[32]byte]*big.Int)
	return nil
}

func (r *ReferenceAMM) pool(key PoolKey) (*refPool, error) {
	p, ok := r.pools[key.ID()]
	if !ok {
		return nil, errors.New("reference amm: pool not initialized")
	}
	return p, nil
}

func (r *ReferenceAMM) AddLiquidity(key PoolKey, params ModifyLiquidityParams) (BalanceDelta, error) {
	p, err := r.pool(key)
	if err != nil {
		return BalanceDelta{}, err
	}
	if params.LiquidityDelta.Sign() < 0 {
		return BalanceDelta{}, errors.New("reference amm: negative delta in AddLiquidity")
	}
	sqrtA, err := r.SqrtPriceForTick(params.TickLower)
	if err != nil {
		return BalanceDelta{}, err
	}
	sqrtB, err := r.SqrtPriceForTick(params.TickUpper)
	if err != nil {
		return BalanceDelta{}, err
	}
	amount0 := r.AmountForLiquidity0(p.sqrtPriceX96, sqrtB, params.LiquidityDelta)
	if p.sqrtPriceX96.Cmp(sqrtA) < 0 {
		amount0 = r.AmountForLiquidity0(sqrtA, sqrtB, params.LiquidityDelta)
	}
	amount1 := r.AmountForLiquidity1(sqrtA, p.sqrtPriceX96, params.LiquidityDelta)
	if p.sqrtPriceX96.Cmp(sqrtB) >= 0 {
		amount1 = r.AmountForLiquidity1(sqrtA, sqrtB, params.LiquidityDelta)
		amount0 = big.NewInt(0)
	}
	if p.sqrtPriceX96.Cmp(sqrtA) < 0 {
		amount1 = big.NewInt(0)
	}

	id := key.ID()
	cur := r.positions[id][params.Salt]
	if cur == nil {
		cur = big.NewInt(0)
	}
	r.positions[id][params.Salt] = new(big.Int).Add(cur, params.LiquidityDelta)
	p.liquidity = new(big.Int).Add(p.liquidity, params.LiquidityDelta)

	return NewBalanceDelta(amount0, amount1), nil
}

func (r *ReferenceAMM) RemoveLiquidity(key PoolKey, params ModifyLiquidityParams) (BalanceDelta, *big.Int, *big.Int, error) {
	p, err := r.pool(key)
	if err != nil {
		return BalanceDelta{}, nil, nil, err
	}
	id := key.ID()
	cur := r.positions[id][params.Salt]
	if cur == nil {
		cur = big.NewInt(0)
	}
	removeAmount := new(big.Int).Neg(params.LiquidityDelta)
	if removeAmount.Cmp(cur) > 0 {
		return BalanceDelta{}, nil, nil, errors.New("reference amm: insufficient position liquidity")
	}
	r.positions[id][params.Salt] = new(big.Int).Sub(cur, removeAmount)
	p.liquidity = new(big.Int).Sub(p.liquidity, removeAmount)

	sqrtA, err := r.SqrtPriceForTick(params.TickLower)
	if err != nil {
		return BalanceDelta{}, nil, nil, err
	}
	sqrtB, err := r.SqrtPriceForTick(params.TickUpper)
	if err != nil {
		return BalanceDelta{}, nil, nil, err
	}
	var amount0, amount1 *big.Int
	switch {
	case p.sqrtPriceX96.Cmp(sqrtA) < 0:
		amount0 = r.AmountForLiquidity0(sqrtA, sqrtB, removeAmount)
		amount1 = big.NewInt(0)
	case p.sqrtPriceX96.Cmp(sqrtB) >= 0:
		amount0 = big.NewInt(0)
		amount1 = r.AmountForLiquidity1(sqrtA, sqrtB, removeAmount)
	default:
		amount0 = r.AmountForLiquidity0(p.sqrtPriceX96, sqrtB, removeAmount)
		amount1 = r.AmountForLiquidity1(sqrtA, p.sqrtPriceX96, removeAmount)
	}
	delta := NewBalanceDelta(new(big.Int).Neg(amount0), new(big.Int).Neg(amount1))
	return delta, big.NewInt(0), big.NewInt(0), nil
}

func (r *ReferenceAMM) Slot0(key PoolKey) (Slot0, error) {
	p, err := r.pool(key)
	if err != nil {
		return Slot0{}, err
	}
	return Slot0{
		SqrtPriceX96: new(big.Int).Set(p.sqrtPriceX96),
		Tick:         p.tick,
		ProtocolFee:  p.protocolFee,
		LPFee:        p.lpFee,
	}, nil
}

// SetSlot0 lets tests force the reference pool's current price, simulating
// a real trade having moved it independently of the engine.
func (r *ReferenceAMM) SetSlot0(key PoolKey, sqrtPriceX96 *big.Int, tick int24) error {
	p, err := r.pool(key)
	if err != nil {
		return err
	}
	p.sqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	p.tick = tick
	return nil
}

// --- C1: tick/sqrt-price math, following the standard concentrated-
// liquidity formulas (Uniswap-v3-style Q64.96 fixed point). ---

var (
	tickBase = mustParseFloatBig("1.0001")
)

func mustParseFloatBig(s string) *big.Float {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		panic(err)
	}
	return f
}

// SqrtPriceForTick computes sqrt(1.0001^tick) * 2^96 via a log-domain
// power computation on big.Float, then rounds to big.Int. This is the
// reference implementation's analogue of the host AMM's bit-shift-ladder
// TickMath; the engine itself never calls this directly in production.
func (r *ReferenceAMM) SqrtPriceForTick(tick int24) (*big.Int, error) {
	return sqrtPriceForTick(tick)
}

func sqrtPriceForTick(tick int24) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRangeErr
	}
	// price = 1.0001^tick; sqrtPrice = 1.0001^(tick/2)
	exp := new(big.Float).SetPrec(256).Quo(big.NewFloat(float64(tick)), big.NewFloat(2))
	price := bigFloatPow(tickBase, exp)
	scaled := new(big.Float).SetPrec(256).Mul(price, new(big.Float).SetPrec(256).SetInt(Q96))
	result, _ := scaled.Int(nil)
	if result.Cmp(MinSqrtRatio) < 0 {
		result = new(big.Int).Set(MinSqrtRatio)
	}
	if result.Cmp(MaxSqrtRatio) > 0 {
		result = new(big.Int).Set(MaxSqrtRatio)
	}
	return result, nil
}

// bigFloatPow computes base^exp for a real exponent via exp(exp * ln(base)).
func bigFloatPow(base, exp *big.Float) *big.Float {
	lnBase := bigFloatLn(base)
	product := new(big.Float).SetPrec(256).Mul(exp, lnBase)
	return bigFloatExp(product)
}

// bigFloatLn/bigFloatExp implement natural log/exp via float64 fallback
// with a precision acceptable for tick-boundary rounding in a reference
// (test-only) implementation; the host AMM performs the exact bit-shift
// ladder in production.
func bigFloatLn(x *big.Float) *big.Float {
	f, _ := x.Float64()
	return big.NewFloat(math.Log(f))
}

func bigFloatExp(x *big.Float) *big.Float {
	f, _ := x.Float64()
	return big.NewFloat(math.Exp(f))
}

// TickForSqrtPrice inverts SqrtPriceForTick via binary search, matching
// the host AMM's own sqrtPriceX96ToTick approach.
func (r *ReferenceAMM) TickForSqrtPrice(sqrtPriceX96 *big.Int) (int24, error) {
	return tickForSqrtPrice(sqrtPriceX96)
}

func tickForSqrtPrice(sqrtPriceX96 *big.Int) (int24, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) > 0 {
		return 0, ErrInvalidSqrtPriceErr
	}
	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo)/2
		sp, err := sqrtPriceForTick(mid)
		if err != nil {
			return 0, err
		}
		if sp.Cmp(sqrtPriceX96) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	sp, err := sqrtPriceForTick(lo)
	if err != nil {
		return 0, err
	}
	if sp.Cmp(sqrtPriceX96) > 0 {
		lo--
	}
	return lo, nil
}

// AmountForLiquidity0 computes amount0 = L * (sqrtB - sqrtA) / (sqrtA * sqrtB) * Q96.
func (r *ReferenceAMM) AmountForLiquidity0(sqrtPriceAX96, sqrtPriceBX96, liquidity *big.Int) *big.Int {
	return amountForLiquidity0(sqrtPriceAX96, sqrtPriceBX96, liquidity)
}

func amountForLiquidity0(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(liquidity, Q96)
	numerator.Mul(numerator, new(big.Int).Sub(sqrtB, sqrtA))
	denominator := new(big.Int).Mul(sqrtA, sqrtB)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return numerator.Div(numerator, denominator)
}

// AmountForLiquidity1 computes amount1 = L * (sqrtB - sqrtA) / Q96.
func (r *ReferenceAMM) AmountForLiquidity1(sqrtPriceAX96, sqrtPriceBX96, liquidity *big.Int) *big.Int {
	return amountForLiquidity1(sqrtPriceAX96, sqrtPriceBX96, liquidity)
}

func amountForLiquidity1(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	numerator := new(big.Int).Mul(liquidity, diff)
	return numerator.Div(numerator, Q96)
}

// LiquidityForAmounts derives the maximum liquidity obtainable from the
// given (amount0, amount1) over [sqrtA, sqrtB] at current price sqrtP.
func (r *ReferenceAMM) LiquidityForAmounts(sqrtP, sqrtPriceAX96, sqrtPriceBX96, amount0, amount1 *big.Int) *big.Int {
	return liquidityForAmounts(sqrtP, sqrtPriceAX96, sqrtPriceBX96, amount0, amount1)
}

func liquidityForAmounts(sqrtP, sqrtA, sqrtB, amount0, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	switch {
	case sqrtP.Cmp(sqrtA) <= 0:
		return liquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtP.Cmp(sqrtB) >= 0:
		return liquidityForAmount1(sqrtA, sqrtB, amount1)
	default:
		l0 := liquidityForAmount0(sqrtP, sqrtB, amount0)
		l1 := liquidityForAmount1(sqrtA, sqrtP, amount1)
		if l0.Cmp(l1) < 0 {
			return l0
		}
		return l1
	}
}

func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	intermediate := new(big.Int).Mul(sqrtA, sqrtB)
	intermediate.Div(intermediate, Q96)
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount0, intermediate)
	return num.Div(num, diff)
}

func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount1, Q96)
	return num.Div(num, diff)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

var (
	ErrTickOutOfRangeErr   = errors.New("doppler: tick out of range")
	ErrInvalidSqrtPriceErr = errors.New("doppler: invalid sqrt price")
)
