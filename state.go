// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// SaleState is the engine's lifecycle state.
type SaleState int

const (
	StateUnstarted SaleState = iota
	StateActive
	StateEarlyExit
	StateMaturedSuccess
	StateMaturedFail
)

func (s SaleState) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateActive:
		return "ACTIVE"
	case StateEarlyExit:
		return "EARLY_EXIT"
	case StateMaturedSuccess:
		return "MATURED_SUCCESS"
	case StateMaturedFail:
		return "MATURED_FAIL"
	default:
		return "UNKNOWN"
	}
}

func (s SaleState) Terminal() bool {
	return s == StateEarlyExit || s == StateMaturedSuccess || s == StateMaturedFail
}

// State is the engine's only persistent record, mutated inside
// BeforeSwap/AfterSwap and by the airlock-only Exit and
// CollectProtocolFees.
type State struct {
	SaleState SaleState

	LastEpoch int64 // 1-based once started

	// TickAccumulator is the Q18 fixed-point signed dutch-auction
	// correction applied to the schedule tick.
	TickAccumulator *big.Int

	TotalTokensSold *big.Int
	TotalProceeds   *big.Int

	TotalTokensSoldLastEpoch *big.Int

	FeesAccruedAsset     *big.Int
	FeesAccruedNumeraire *big.Int

	// Positions holds up to 2+NumPDSlugs entries: LOWER, UPPER, PD_1..PD_N.
	Positions []Position

	// EngineAsset/EngineNumeraire are the balances the engine currently
	// holds outside of any placed position (i.e. what BeforeSwap credited
	// back when it removed the previous epoch's positions, before C3
	// re-places new ones).
	EngineAsset     *big.Int
	EngineNumeraire *big.Int

	// Exited is set once Exit has successfully migrated the pool's
	// residual balances to the airlock. Distinct from SaleState ==
	// StateMaturedSuccess, which a sale also reaches by maturing on its
	// own; Exited is the only thing that makes migration terminal.
	Exited bool
}

// NewState builds the zero-value state for a freshly constructed engine.
func NewState(initialAsset *big.Int) *State {
	return &State{
		SaleState:                StateUnstarted,
		LastEpoch:                0,
		TickAccumulator:          big.NewInt(0),
		TotalTokensSold:          big.NewInt(0),
		TotalProceeds:            big.NewInt(0),
		TotalTokensSoldLastEpoch: big.NewInt(0),
		FeesAccruedAsset:         big.NewInt(0),
		FeesAccruedNumeraire:     big.NewInt(0),
		Positions:                nil,
		EngineAsset:              new(big.Int).Set(initialAsset),
		EngineNumeraire:          big.NewInt(0),
	}
}

// RemainingAsset is the asset inventory not yet sold.
func (s *State) RemainingAsset(cfg Config) *big.Int {
	return new(big.Int).Sub(cfg.NumTokensToSell, s.TotalTokensSold)
}
