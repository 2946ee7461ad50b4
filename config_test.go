// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"math/big"
	"testing"
)

func scenarioAConfig() Config {
	return Config{
		IsToken0:        true,
		NumTokensToSell: new(big.Int).Mul(big.NewInt(100_000), weiScale()),
		MinimumProceeds: big.NewInt(0),
		MaximumProceeds: new(big.Int).Mul(big.NewInt(1_000_000), weiScale()),
		StartingTime:    86400,
		EndingTime:      172800,
		EpochLength:     400,
		StartTick:       1600,
		EndTick:         -171200,
		Gamma:           800,
		NumPDSlugs:      3,
		TickSpacing:     8,
	}
}

func weiScale() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func TestConfigValidateAccepts(t *testing.T) {
	cfg := scenarioAConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if got, want := cfg.TotalEpochs(), int64(216); got != want {
		t.Fatalf("total epochs = %d, want %d", got, want)
	}
}

func TestConfigValidateRejectsZeroGamma(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.Gamma = 0
	if err := cfg.Validate(); err != ErrInvalidGamma {
		t.Fatalf("expected ErrInvalidGamma, got %v", err)
	}
}

func TestConfigValidateRejectsGammaNotMultipleOfSpacing(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.Gamma = -801
	if err := cfg.Validate(); err != ErrInvalidGamma {
		t.Fatalf("expected ErrInvalidGamma, got %v", err)
	}
}

func TestConfigValidateRejectsGammaSpanMismatch(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.Gamma = -8
	if err := cfg.Validate(); err != ErrInvalidGamma {
		t.Fatalf("expected ErrInvalidGamma, got %v", err)
	}
}

func TestConfigValidateRejectsNumPDSlugsOutOfRange(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.NumPDSlugs = 0
	if err := cfg.Validate(); err != ErrInvalidNumPDSlugs {
		t.Fatalf("expected ErrInvalidNumPDSlugs for 0, got %v", err)
	}
	cfg.NumPDSlugs = MaxPriceDiscoverySlugs + 1
	if err := cfg.Validate(); err != ErrInvalidNumPDSlugs {
		t.Fatalf("expected ErrInvalidNumPDSlugs for overflow, got %v", err)
	}
}

func TestConfigValidateRejectsMinGreaterThanMax(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.MinimumProceeds = new(big.Int).Mul(big.NewInt(2_000_000), weiScale())
	if err := cfg.Validate(); err != ErrInvalidProceedLimits {
		t.Fatalf("expected ErrInvalidProceedLimits, got %v", err)
	}
}

func TestConfigValidateRejectsEpochLengthNotDivisible(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.EpochLength = 401
	if err := cfg.Validate(); err != ErrInvalidEpochLength {
		t.Fatalf("expected ErrInvalidEpochLength, got %v", err)
	}
}

func TestConfigValidateRejectsBadTickSpacing(t *testing.T) {
	cfg := scenarioAConfig()
	cfg.TickSpacing = 0
	if err := cfg.Validate(); err != ErrInvalidTickSpacing {
		t.Fatalf("expected ErrInvalidTickSpacing for 0, got %v", err)
	}
	cfg.TickSpacing = MaxTickSpacing + 1
	if err := cfg.Validate(); err != ErrInvalidTickSpacing {
		t.Fatalf("expected ErrInvalidTickSpacing for overflow, got %v", err)
	}
}
