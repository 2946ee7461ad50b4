// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"math/big"

	"github.com/holiman/uint256"
)

// ExitResult is returned by Exit: the state of the pool at the moment of
// migration plus the residual balances and fees handed to the airlock.
// The *U256 fields mirror the big.Int amounts at the width the host
// chain's EVM StateDB actually settles balances in (go-ethereum's
// StateDB.AddBalance takes a *uint256.Int, not a *big.Int); airlocks
// built against that boundary can use them directly instead of
// re-converting.
type ExitResult struct {
	SqrtPriceAtExit *big.Int
	AssetAmount     *big.Int
	NumeraireAmount *big.Int
	FeesAsset       *big.Int
	FeesNumeraire   *big.Int
	IsToken0        bool

	AssetAmountU256     *uint256.Int
	NumeraireAmountU256 *uint256.Int
}

// settlementUint256 converts a non-negative big.Int amount to the
// StateDB settlement width, following the teacher's own
// amountU256, _ := uint256.FromBig(amount) idiom at this boundary. This
// is the one point in the engine where an arbitrary-precision balance
// crosses into a fixed-width type, so it is the one point where
// overflow is actually checked rather than structurally impossible.
func settlementUint256(v *big.Int) (*uint256.Int, error) {
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return u, nil
}

// Exit implements C6's success/early-exit path: callable only by the
// airlock, only once the sale is EARLY_EXIT or MATURED_SUCCESS. It
// removes all positions, returns the engine's residual balances, and
// locks the engine against any further operation.
func (e *Engine) Exit(caller Airlock) (ExitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller == nil || e.airlock == nil || caller.Address() != e.airlock.Address() {
		return ExitResult{}, ErrUnauthorized
	}
	if e.state.Exited {
		return ExitResult{}, ErrCannotMigrate
	}
	if e.state.SaleState != StateEarlyExit && e.state.SaleState != StateMaturedSuccess {
		return ExitResult{}, ErrCannotMigrate
	}

	removed, err := e.removeAllPositions()
	if err != nil {
		return ExitResult{}, err
	}
	orient := e.cfg.Orientation()
	e.state.EngineAsset.Sub(e.state.EngineAsset, orient.AssetDelta(removed))
	e.state.EngineNumeraire.Sub(e.state.EngineNumeraire, orient.NumeraireDelta(removed))
	e.state.Positions = nil

	slot0, err := e.amm.Slot0(e.poolKey)
	if err != nil {
		return ExitResult{}, err
	}

	assetU256, err := settlementUint256(e.state.EngineAsset)
	if err != nil {
		return ExitResult{}, err
	}
	numeraireU256, err := settlementUint256(e.state.EngineNumeraire)
	if err != nil {
		return ExitResult{}, err
	}

	result := ExitResult{
		SqrtPriceAtExit:     slot0.SqrtPriceX96,
		AssetAmount:         new(big.Int).Set(e.state.EngineAsset),
		NumeraireAmount:     new(big.Int).Set(e.state.EngineNumeraire),
		FeesAsset:           new(big.Int).Set(e.state.FeesAccruedAsset),
		FeesNumeraire:       new(big.Int).Set(e.state.FeesAccruedNumeraire),
		IsToken0:            e.cfg.IsToken0,
		AssetAmountU256:     assetU256,
		NumeraireAmountU256: numeraireU256,
	}

	e.state.EngineAsset = big.NewInt(0)
	e.state.EngineNumeraire = big.NewInt(0)
	e.state.SaleState = StateMaturedSuccess
	// Migration is terminal: once the airlock has taken the residual
	// balances there is nothing left for any later Exit call to hand out.
	e.state.Exited = true

	return result, nil
}

// CollectProtocolFees transfers the engine's accrued fees out to the
// airlock and resets the accrual counters. Callable only by the airlock,
// at any point in the engine's lifecycle (fees accrue independently of
// the sale's success/failure classification).
func (e *Engine) CollectProtocolFees(caller Airlock) (asset, numeraire *big.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller == nil || e.airlock == nil || caller.Address() != e.airlock.Address() {
		return nil, nil, ErrUnauthorized
	}

	asset = new(big.Int).Set(e.state.FeesAccruedAsset)
	numeraire = new(big.Int).Set(e.state.FeesAccruedNumeraire)
	e.state.FeesAccruedAsset = big.NewInt(0)
	e.state.FeesAccruedNumeraire = big.NewInt(0)
	return asset, numeraire, nil
}
