// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package doppler implements a dynamic bonding-curve price-discovery
// engine: a hook attached to a concentrated-liquidity AMM pool that
// sells a fixed asset supply against a numeraire over a bounded time
// window by continuously rebalancing three liquidity slugs.
package doppler

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// uint24 type alias for fee tiers.
type uint24 = uint32

// int24 type alias for ticks.
type int24 = int32

const (
	// MaxPriceDiscoverySlugs bounds num_pd_slugs.
	MaxPriceDiscoverySlugs = 15
	// MaxTickSpacing bounds tick_spacing.
	MaxTickSpacing int24 = 30
	// MaxFee is the parts-per-million scale used to split principal from fee.
	MaxFee = 1_000_000
)

// Math constants shared with the AMM's tick/price vocabulary.
var (
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)

	MinTick int24 = -887272
	MaxTick int24 = 887272

	MinSqrtRatio    = new(big.Int).SetUint64(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// Currency represents one side of the pool's pair.
type Currency struct {
	Address common.Address
}

// NativeCurrency represents the chain's native asset (zero address).
var NativeCurrency = Currency{Address: common.Address{}}

// IsNative reports whether this currency is the chain's native asset.
func (c Currency) IsNative() bool {
	return c.Address == common.Address{}
}

// ToBytes serializes the currency for hashing/storage.
func (c Currency) ToBytes() []byte {
	return c.Address.Bytes()
}

// CurrencyFromBytes deserializes a currency from storage.
func CurrencyFromBytes(data []byte) Currency {
	return Currency{Address: common.BytesToAddress(data)}
}

// PoolKey uniquely identifies the pool this engine is attached to.
// Currency0 is always the lower-addressed token.
type PoolKey struct {
	Currency0   Currency
	Currency1   Currency
	Fee         uint24
	TickSpacing int24
	Hooks       common.Address
}

// ID computes the pool's unique identifier.
func (pk PoolKey) ID() [32]byte {
	h := blake3.New()
	h.Write(pk.Currency0.ToBytes())
	h.Write(pk.Currency1.ToBytes())

	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], uint32(pk.Fee))
	h.Write(feeBytes[:3])

	var tickBytes [4]byte
	binary.BigEndian.PutUint32(tickBytes[:], uint32(pk.TickSpacing))
	h.Write(tickBytes[1:])

	h.Write(pk.Hooks.Bytes())

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// BalanceDelta carries the signed (currency0, currency1) change produced
// by a swap or a liquidity modification; Orientation maps it to
// asset/numeraire. Positive means owed to the pool.
type BalanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// NewBalanceDelta builds a BalanceDelta, copying its inputs.
func NewBalanceDelta(amount0, amount1 *big.Int) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
	}
}

// ZeroBalanceDelta returns the additive identity.
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{Amount0: big.NewInt(0), Amount1: big.NewInt(0)}
}

func (bd BalanceDelta) Add(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Add(bd.Amount0, other.Amount0),
		Amount1: new(big.Int).Add(bd.Amount1, other.Amount1),
	}
}

func (bd BalanceDelta) Sub(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Sub(bd.Amount0, other.Amount0),
		Amount1: new(big.Int).Sub(bd.Amount1, other.Amount1),
	}
}

func (bd BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Neg(bd.Amount0),
		Amount1: new(big.Int).Neg(bd.Amount1),
	}
}

func (bd BalanceDelta) IsZero() bool {
	return bd.Amount0.Sign() == 0 && bd.Amount1.Sign() == 0
}

// Slot0 is the instantaneous AMM state the engine reads before rebalancing.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int24
	ProtocolFee  uint32 // parts per million
	LPFee        uint32 // parts per million
}

// SlotName identifies which fixed slot a Position occupies.
type SlotName int

const (
	SlotLower SlotName = iota
	SlotUpper
	// SlotPD(i) for i in [0, NumPDSlugs) follows immediately after SlotUpper;
	// see Position.Slot.
)

// Position is one concentrated-liquidity range the engine owns in the pool.
// Positions are exclusively owned and placed by the engine itself.
type Position struct {
	Slot      SlotName // SlotLower, SlotUpper, or SlotUpper+1+k for PD_k
	TickLower int24
	TickUpper int24
	Liquidity *big.Int
}

// Salt derives the position's deterministic, per-slot storage salt. The
// salt never changes across rebalances of the same slot so the host AMM's
// per-position fee accounting reconciles across epochs.
func (p Position) Salt(poolID [32]byte) [32]byte {
	h := blake3.New()
	h.Write(poolID[:])
	var slotBytes [4]byte
	binary.BigEndian.PutUint32(slotBytes[:], uint32(p.Slot))
	h.Write(slotBytes[:])
	var salt [32]byte
	h.Digest().Read(salt[:])
	return salt
}

// IsEmpty reports whether the slot currently holds no liquidity.
func (p Position) IsEmpty() bool {
	return p.Liquidity == nil || p.Liquidity.Sign() == 0
}

// SwapParams mirrors the AMM's swap call shape.
type SwapParams struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int // positive = exact input, negative = exact output
	SqrtPriceLimitX96 *big.Int
}

// ModifyLiquidityParams mirrors the AMM's add/remove-liquidity call shape.
type ModifyLiquidityParams struct {
	TickLower      int24
	TickUpper      int24
	LiquidityDelta *big.Int // positive = add, negative = remove
	Salt           [32]byte
}
