// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// SplitPrincipalAndFee splits a swap's specified amount into its principal
// and fee components per §4.5: principal_in = amount_specified * (MAX_FEE
// - swap_fee) / MAX_FEE. swapFeePPM is parts-per-million (0..MAX_FEE).
// The two components are returned separately and the caller must never
// recombine them before routing each to its own total — proceeds/sold
// totals only ever see principal, fees_accrued only ever sees fee.
func SplitPrincipalAndFee(amountSpecified *big.Int, swapFeePPM uint32) (principal, fee *big.Int) {
	abs := new(big.Int).Abs(amountSpecified)
	num := new(big.Int).Mul(abs, big.NewInt(int64(MaxFee)-int64(swapFeePPM)))
	principalAbs := num.Div(num, big.NewInt(MaxFee))
	feeAbs := new(big.Int).Sub(abs, principalAbs)

	if amountSpecified.Sign() < 0 {
		principalAbs = new(big.Int).Neg(principalAbs)
	}
	return principalAbs, feeAbs
}

// ApplySwapAccounting updates total_tokens_sold and total_proceeds from a
// swap's signed delta, crediting the fee portion to fees_accrued instead
// of to proceeds. delta is from the pool's perspective (positive = owed
// to the pool by the swapper). Whether the swap sold asset out of the
// pool or took asset back in (a redemption/sell-back) is read from the
// signs of the delta's asset and numeraire legs.
func ApplySwapAccounting(st *State, orient Orientation, delta BalanceDelta, swapFeePPM uint32) {
	assetDelta := orient.AssetDelta(delta)
	numeraireDelta := orient.NumeraireDelta(delta)

	// The asset side funds the sold/bought tracking; the numeraire side
	// funds proceeds. Only the side that represents "amount specified" by
	// the swapper (the input token) ever carries a fee; determine it from
	// sign: whichever side is positive (paid in to the pool) is the input.
	if assetDelta.Sign() > 0 {
		principal, fee := SplitPrincipalAndFee(assetDelta, swapFeePPM)
		st.TotalTokensSold.Sub(st.TotalTokensSold, principal)
		st.FeesAccruedAsset.Add(st.FeesAccruedAsset, fee)
	} else if assetDelta.Sign() < 0 {
		st.TotalTokensSold.Sub(st.TotalTokensSold, assetDelta) // delta negative -> sold increases
	}

	if numeraireDelta.Sign() > 0 {
		principal, fee := SplitPrincipalAndFee(numeraireDelta, swapFeePPM)
		st.TotalProceeds.Add(st.TotalProceeds, principal)
		st.FeesAccruedNumeraire.Add(st.FeesAccruedNumeraire, fee)
	} else if numeraireDelta.Sign() < 0 {
		st.TotalProceeds.Add(st.TotalProceeds, numeraireDelta) // delta negative -> proceeds decrease
	}
}
