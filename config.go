// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// Config is the engine's immutable configuration, fixed at construction.
type Config struct {
	IsToken0 bool

	NumTokensToSell *big.Int

	MinimumProceeds *big.Int
	MaximumProceeds *big.Int

	StartingTime int64 // unix seconds
	EndingTime   int64

	EpochLength int64 // seconds

	StartTick int24
	EndTick   int24

	Gamma int24

	NumPDSlugs int

	TickSpacing int24
}

// TotalEpochs is the derived total epoch count.
func (c Config) TotalEpochs() int64 {
	return (c.EndingTime - c.StartingTime) / c.EpochLength
}

// Orientation builds the Orientation value for this configuration.
func (c Config) Orientation() Orientation {
	return NewOrientation(c.IsToken0)
}

// Validate enforces every configuration invariant from the data model.
// Failures here are fatal and single-shot: there is no partial
// construction.
func (c Config) Validate() error {
	if c.NumTokensToSell == nil || c.NumTokensToSell.Sign() <= 0 {
		return ErrInvalidProceedLimits
	}
	if c.MinimumProceeds == nil || c.MaximumProceeds == nil {
		return ErrInvalidProceedLimits
	}
	if c.MinimumProceeds.Sign() < 0 || c.MaximumProceeds.Sign() < 0 {
		return ErrInvalidProceedLimits
	}
	if c.MinimumProceeds.Cmp(c.MaximumProceeds) > 0 {
		return ErrInvalidProceedLimits
	}

	if c.EndingTime <= c.StartingTime {
		return ErrInvalidTimeRange
	}

	if c.EpochLength <= 0 {
		return ErrInvalidEpochLength
	}
	if (c.EndingTime-c.StartingTime)%c.EpochLength != 0 {
		return ErrInvalidEpochLength
	}
	totalEpochs := c.TotalEpochs()
	if totalEpochs < 1 {
		return ErrInvalidEpochLength
	}

	if c.TickSpacing < 1 || c.TickSpacing > MaxTickSpacing {
		return ErrInvalidTickSpacing
	}

	if c.IsToken0 {
		if c.StartTick <= c.EndTick {
			return ErrInvalidTickRange
		}
	} else {
		if c.StartTick >= c.EndTick {
			return ErrInvalidTickRange
		}
	}
	if c.StartTick%c.TickSpacing != 0 || c.EndTick%c.TickSpacing != 0 {
		return ErrInvalidTickRange
	}
	if c.StartTick < MinTick || c.StartTick > MaxTick || c.EndTick < MinTick || c.EndTick > MaxTick {
		return ErrInvalidTickRange
	}

	if c.Gamma == 0 {
		return ErrInvalidGamma
	}
	if c.Gamma%c.TickSpacing != 0 {
		return ErrInvalidGamma
	}
	absGamma := c.Gamma
	if absGamma < 0 {
		absGamma = -absGamma
	}
	tickDelta := c.EndTick - c.StartTick
	if tickDelta < 0 {
		tickDelta = -tickDelta
	}
	gammaSpan := int64(absGamma) * totalEpochs
	if gammaSpan != int64(tickDelta) {
		return ErrInvalidGamma
	}

	if c.NumPDSlugs < 1 || c.NumPDSlugs > MaxPriceDiscoverySlugs {
		return ErrInvalidNumPDSlugs
	}

	return nil
}
