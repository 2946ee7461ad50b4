// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// Orientation resolves every asset/numeraire vs. currency0/currency1
// ambiguity through one code path instead of duplicating each
// computation per is_token_0 branch. This is the resolution recorded in
// DESIGN.md for the commented-out amount0/amount1 swap the source left
// unresolved.
type Orientation struct {
	isToken0 bool
}

// NewOrientation builds the orientation for a pool where the asset is
// token0 (isToken0 == true) or token1 (isToken0 == false).
func NewOrientation(isToken0 bool) Orientation {
	return Orientation{isToken0: isToken0}
}

func (o Orientation) IsToken0() bool { return o.isToken0 }

// Asset selects the asset-side value out of a (v0, v1) currency0/currency1
// pair.
func (o Orientation) Asset(v0, v1 *big.Int) *big.Int {
	if o.isToken0 {
		return v0
	}
	return v1
}

// Numeraire selects the numeraire-side value out of a (v0, v1) pair.
func (o Orientation) Numeraire(v0, v1 *big.Int) *big.Int {
	if o.isToken0 {
		return v1
	}
	return v0
}

// ToCurrency0 places an asset/numeraire pair back into currency0/currency1
// order.
func (o Orientation) ToCurrency0(asset, numeraire *big.Int) (v0, v1 *big.Int) {
	if o.isToken0 {
		return asset, numeraire
	}
	return numeraire, asset
}

// AssetDelta selects the asset-side component of a BalanceDelta.
func (o Orientation) AssetDelta(bd BalanceDelta) *big.Int {
	return o.Asset(bd.Amount0, bd.Amount1)
}

// NumeraireDelta selects the numeraire-side component of a BalanceDelta.
func (o Orientation) NumeraireDelta(bd BalanceDelta) *big.Int {
	return o.Numeraire(bd.Amount0, bd.Amount1)
}

// ZeroForOneSells reports whether a ZeroForOne swap (token0 -> token1)
// sells the asset into the pool (true) or buys it (false).
func (o Orientation) ZeroForOneSells() bool {
	// If the asset is token0, selling token0 for token1 sells the asset.
	// If the asset is token1, selling token0 for token1 buys the asset.
	return o.isToken0
}

// TickDirection returns +1 if ticks increasing means the asset is getting
// more expensive in this orientation, else -1. The schedule always moves
// start_tick toward end_tick; whether that is numerically increasing or
// decreasing depends only on the configured start/end ticks, not on
// is_token_0 directly — this helper exists so callers never have to
// reason about sign twice.
func TickDirection(startTick, endTick int24) int {
	if endTick >= startTick {
		return 1
	}
	return -1
}
