// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "errors"

// Errors - configuration (constructor only, single-shot, fatal).
var (
	ErrInvalidTickRange    = errors.New("doppler: invalid tick range")
	ErrInvalidGamma        = errors.New("doppler: invalid gamma")
	ErrInvalidEpochLength  = errors.New("doppler: invalid epoch length")
	ErrInvalidTimeRange    = errors.New("doppler: invalid time range")
	ErrInvalidTickSpacing  = errors.New("doppler: invalid tick spacing")
	ErrInvalidNumPDSlugs   = errors.New("doppler: invalid num_pd_slugs")
	ErrInvalidProceedLimits = errors.New("doppler: invalid proceed limits")
)

// Errors - per-swap guards.
var (
	ErrInvalidTime                                     = errors.New("doppler: swap outside the sale window")
	ErrSwapBelowRange                                   = errors.New("doppler: swap would cross below the lower slug")
	ErrInvalidSwapAfterMaturityInsufficientProceeds     = errors.New("doppler: buys are rejected after maturity with insufficient proceeds")
	ErrInvalidSwapAfterMaturitySufficientProceeds       = errors.New("doppler: swaps are rejected after a successful maturity")
	ErrMaximumProceedsReached                           = errors.New("doppler: maximum proceeds already reached")
)

// Errors - authorization.
var (
	ErrUnauthorized = errors.New("doppler: unauthorized caller")
)

// Errors - post-maturity / airlock.
var (
	ErrCannotMigrate = errors.New("doppler: exit preconditions not met")
)

// Errors - arithmetic / internal invariants.
var (
	ErrArithmeticOverflow = errors.New("doppler: arithmetic overflow")
)
