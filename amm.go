// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import "math/big"

// AMM is the small, synchronous, failure-returning surface the engine
// consumes from its host concentrated-liquidity pool. The engine never
// performs raw tick/sqrt-price math itself; every such computation is
// delegated here. Production hosts implement this against their own pool
// manager; tickmath.go's reference implementation exists only for tests
// and the diagnostics server's local-dev mode.
type AMM interface {
	Initialize(key PoolKey, initialSqrtPriceX96 *big.Int) error

	// AddLiquidity places liquidity in [tickLower, tickUpper] under the
	// given salt and returns the signed (Δ0, Δ1) the caller owes the pool.
	AddLiquidity(key PoolKey, params ModifyLiquidityParams) (BalanceDelta, error)

	// RemoveLiquidity withdraws liquidity previously placed under salt and
	// returns the signed delta owed to the caller plus fees earned by the
	// position while it was live.
	RemoveLiquidity(key PoolKey, params ModifyLiquidityParams) (delta BalanceDelta, fees0, fees1 *big.Int, err error)

	Slot0(key PoolKey) (Slot0, error)

	// SqrtPrice/Tick/liquidity-amount conversions (C1).
	SqrtPriceForTick(tick int24) (*big.Int, error)
	TickForSqrtPrice(sqrtPriceX96 *big.Int) (int24, error)
	AmountForLiquidity0(sqrtPriceAX96, sqrtPriceBX96, liquidity *big.Int) *big.Int
	AmountForLiquidity1(sqrtPriceAX96, sqrtPriceBX96, liquidity *big.Int) *big.Int
	LiquidityForAmounts(sqrtPriceX96, sqrtPriceAX96, sqrtPriceBX96, amount0, amount1 *big.Int) *big.Int
}

// Airlock is the external collaborator that deploys the engine and is the
// only caller authorized to invoke post-maturity operations on it.
type Airlock interface {
	Address() [20]byte
}

// Hooks is the callback surface the engine implements against the AMM's
// pool lifecycle. Exactly the four callbacks named in the external
// interface; no other hook permission bit is claimed.
type Hooks interface {
	BeforeInitialize(key PoolKey) error
	BeforeAddLiquidity(key PoolKey, sender [20]byte) error
	BeforeSwap(key PoolKey, sender [20]byte, params SwapParams, now int64) (BalanceDelta, error)
	AfterSwap(key PoolKey, params SwapParams, delta BalanceDelta, now int64) (BalanceDelta, error)
}
