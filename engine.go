// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// rebalanceToken is a scoped capability minted at the start of
// BeforeSwap's remove->rebalance->re-add sequence and consumed by
// BeforeAddLiquidity. Its existence (not a package-level mutable bool) is
// what authorizes the engine's own liquidity modifications during a
// rebalance; any caller observed outside that window is rejected. This is
// the resolution recorded in DESIGN.md for the reentrancy-guard open
// design note.
type rebalanceToken struct {
	nonce [32]byte
}

// mintRebalanceToken derives a fresh nonce from the pool ID and epoch so
// two concurrent engines (different pools) or two different epochs never
// collide, using a hash domain distinct from blake3 position salts.
func mintRebalanceToken(poolID [32]byte, epoch int64) *rebalanceToken {
	h := sha3.NewLegacyKeccak256()
	h.Write(poolID[:])
	var epochBytes [8]byte
	for i := 0; i < 8; i++ {
		epochBytes[i] = byte(epoch >> (56 - 8*i))
	}
	h.Write(epochBytes[:])
	var nonce [32]byte
	copy(nonce[:], h.Sum(nil))
	return &rebalanceToken{nonce: nonce}
}

// RebalanceTrace is an observability-only record of one before_swap
// rebalance pass, tagged with a correlation ID so the remove -> rebalance
// -> re-add sequence for a single swap can be followed through logs.
type RebalanceTrace struct {
	CorrelationID string
	Epoch         int64
	AnchorTick    int24
	PositionCount int
}

// Engine is the price-discovery rebalancer for one pool. It is the sole
// authority over liquidity in that pool: no other caller may add
// liquidity to it. Each Engine guards its own state with its own mutex,
// so distinct pools never contend (see registry.go for the per-pool
// engine_of(pool_id) lookup this is meant to sit behind).
type Engine struct {
	mu sync.Mutex

	cfg     Config
	sched   Schedule
	amm     AMM
	airlock Airlock

	poolKey       PoolKey
	poolID        [32]byte
	engineAddress [20]byte

	state *State

	rebalance *rebalanceToken

	lastTrace *RebalanceTrace
}

// NewEngine validates cfg and constructs a new engine for key, attached
// to amm and callable for post-maturity operations only by airlock.
func NewEngine(cfg Config, key PoolKey, amm AMM, airlock Airlock, engineAddress [20]byte) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:           cfg,
		sched:         NewSchedule(cfg),
		amm:           amm,
		airlock:       airlock,
		poolKey:       key,
		poolID:        key.ID(),
		engineAddress: engineAddress,
		state:         NewState(cfg.NumTokensToSell),
	}, nil
}

// State returns a read-only snapshot of the engine's mutable record.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// LastTrace returns the most recent rebalance trace, or nil if no swap
// has yet occurred.
func (e *Engine) LastTrace() *RebalanceTrace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTrace
}

// BeforeInitialize enforces that the pool being initialized matches the
// engine's configured key.
func (e *Engine) BeforeInitialize(key PoolKey) error {
	if key.ID() != e.poolID {
		return ErrUnauthorized
	}
	return nil
}

// BeforeAddLiquidity rejects every add-liquidity call except the
// engine's own, scoped to an active rebalance pass.
func (e *Engine) BeforeAddLiquidity(key PoolKey, sender [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key.ID() != e.poolID {
		return ErrUnauthorized
	}
	if e.rebalance == nil {
		return ErrUnauthorized
	}
	if sender != e.engineAddress {
		return ErrUnauthorized
	}
	return nil
}

// classifyDirection reports whether this swap, as specified, buys the
// asset out of the pool (true) or sells it back in (false). Direction
// follows from ZeroForOne alone: exact-input vs exact-output only
// changes which side of the swap is "specified", never which token
// flows which way.
func (e *Engine) classifyDirection(params SwapParams) bool {
	orient := e.cfg.Orientation()
	sellsAsset := params.ZeroForOne == orient.ZeroForOneSells()
	return !sellsAsset
}

// BeforeSwap implements §4.4's protocol: authorization, state-machine
// transition, remove -> rebalance -> re-add.
func (e *Engine) BeforeSwap(key PoolKey, sender [20]byte, params SwapParams, now int64) (BalanceDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key.ID() != e.poolID {
		return BalanceDelta{}, ErrUnauthorized
	}

	isBuy := e.classifyDirection(params)

	if err := e.transition(now, isBuy); err != nil {
		return BalanceDelta{}, err
	}

	if e.state.SaleState == StateMaturedFail || e.state.SaleState == StateMaturedSuccess || e.state.SaleState == StateEarlyExit {
		// Terminal states never rebalance; MATURED_FAIL still routes sells
		// through the unchanged LOWER slug, everything else has already
		// been rejected by transition().
		return ZeroBalanceDelta(), nil
	}

	if err := e.checkSwapBelowRange(params, isBuy); err != nil {
		return BalanceDelta{}, err
	}

	token := mintRebalanceToken(e.poolID, e.sched.CurrentEpoch(now))
	e.rebalance = token
	defer func() { e.rebalance = nil }()

	removed, err := e.removeAllPositions()
	if err != nil {
		return BalanceDelta{}, err
	}
	// removed is from the pool's perspective (negative = owed to the
	// engine), so subtracting it credits the engine's balances.
	e.state.EngineAsset.Sub(e.state.EngineAsset, e.cfg.Orientation().AssetDelta(removed))
	e.state.EngineNumeraire.Sub(e.state.EngineNumeraire, e.cfg.Orientation().NumeraireDelta(removed))

	// The first swap ever initializes last_epoch to 1 (epoch-1 slugs)
	// without running a schedule correction; only a later epoch boundary
	// triggers the dutch-auction correction below.
	if e.state.LastEpoch == 0 {
		e.state.LastEpoch = 1
	}

	currentEpoch := e.sched.CurrentEpoch(now)
	if currentEpoch > e.state.LastEpoch {
		epochsPassed := currentEpoch - e.state.LastEpoch
		delta := e.sched.AccumulatorDelta(now, epochsPassed, e.state.TotalTokensSold, e.state.TotalTokensSoldLastEpoch)
		e.state.TickAccumulator.Add(e.state.TickAccumulator, delta)
		e.state.TotalTokensSoldLastEpoch = new(big.Int).Set(e.state.TotalTokensSold)
		e.state.LastEpoch = currentEpoch
	}

	anchorTick := e.sched.AnchorTick(currentEpoch, e.state.TickAccumulator)

	slot0, err := e.amm.Slot0(key)
	if err != nil {
		return BalanceDelta{}, err
	}

	positions, err := BuildSlugs(e.amm, e.cfg, e.sched, SlugInputs{
		AnchorTick:          anchorTick,
		CurrentSqrtPriceX96: slot0.SqrtPriceX96,
		TotalTokensSold:     e.state.TotalTokensSold,
		TotalProceeds:       e.state.TotalProceeds,
		AssetBalance:        e.state.EngineAsset,
		NumeraireBalance:    e.state.EngineNumeraire,
		CurrentEpoch:        currentEpoch,
	})
	if err != nil {
		return BalanceDelta{}, err
	}

	placed, err := e.placePositions(positions)
	if err != nil {
		return BalanceDelta{}, err
	}
	e.state.EngineAsset.Sub(e.state.EngineAsset, e.cfg.Orientation().AssetDelta(placed))
	e.state.EngineNumeraire.Sub(e.state.EngineNumeraire, e.cfg.Orientation().NumeraireDelta(placed))
	e.state.Positions = positions

	e.lastTrace = &RebalanceTrace{
		CorrelationID: uuid.NewString(),
		Epoch:         currentEpoch,
		AnchorTick:    anchorTick,
		PositionCount: len(positions),
	}

	return ZeroBalanceDelta(), nil
}

// transition applies the state table of §4.4.
func (e *Engine) transition(now int64, isBuy bool) error {
	switch e.state.SaleState {
	case StateUnstarted:
		if now < e.cfg.StartingTime {
			return ErrInvalidTime
		}
		e.state.SaleState = StateActive
		e.state.LastEpoch = 0
		return nil

	case StateActive:
		if e.state.TotalProceeds.Cmp(e.cfg.MaximumProceeds) >= 0 {
			e.state.SaleState = StateEarlyExit
			return ErrMaximumProceedsReached
		}
		if now >= e.cfg.EndingTime {
			if e.state.TotalProceeds.Cmp(e.cfg.MinimumProceeds) >= 0 {
				e.state.SaleState = StateMaturedSuccess
				return ErrInvalidSwapAfterMaturitySufficientProceeds
			}
			e.state.SaleState = StateMaturedFail
			if isBuy {
				return ErrInvalidSwapAfterMaturityInsufficientProceeds
			}
			return nil
		}
		return nil

	case StateEarlyExit:
		return ErrMaximumProceedsReached

	case StateMaturedSuccess:
		return ErrInvalidSwapAfterMaturitySufficientProceeds

	case StateMaturedFail:
		if isBuy {
			return ErrInvalidSwapAfterMaturityInsufficientProceeds
		}
		return nil

	default:
		return fmt.Errorf("doppler: unknown sale state %v", e.state.SaleState)
	}
}

// checkSwapBelowRange rejects sells that would cross below the lower
// slug's lower tick outside of an intentional sell-back/redemption flow.
func (e *Engine) checkSwapBelowRange(params SwapParams, isBuy bool) error {
	if isBuy || len(e.state.Positions) == 0 {
		return nil
	}
	lower := e.state.Positions[0]
	if lower.IsEmpty() {
		return nil
	}
	if params.SqrtPriceLimitX96 == nil {
		return nil
	}
	sqrtLowerBound, err := e.amm.SqrtPriceForTick(lower.TickLower)
	if err != nil {
		return err
	}
	if params.SqrtPriceLimitX96.Sign() > 0 && params.SqrtPriceLimitX96.Cmp(sqrtLowerBound) < 0 {
		return ErrSwapBelowRange
	}
	return nil
}

func (e *Engine) removeAllPositions() (BalanceDelta, error) {
	total := ZeroBalanceDelta()
	for _, p := range e.state.Positions {
		if p.IsEmpty() {
			continue
		}
		salt := p.Salt(e.poolID)
		delta, fees0, fees1, err := e.amm.RemoveLiquidity(e.poolKey, ModifyLiquidityParams{
			TickLower:      p.TickLower,
			TickUpper:      p.TickUpper,
			LiquidityDelta: new(big.Int).Neg(p.Liquidity),
			Salt:           salt,
		})
		if err != nil {
			return BalanceDelta{}, err
		}
		total = total.Add(delta)
		orient := e.cfg.Orientation()
		e.state.FeesAccruedAsset.Add(e.state.FeesAccruedAsset, orient.Asset(fees0, fees1))
		e.state.FeesAccruedNumeraire.Add(e.state.FeesAccruedNumeraire, orient.Numeraire(fees0, fees1))
	}
	return total, nil
}

func (e *Engine) placePositions(positions []Position) (BalanceDelta, error) {
	total := ZeroBalanceDelta()
	for _, p := range positions {
		if p.IsEmpty() {
			continue
		}
		salt := p.Salt(e.poolID)
		delta, err := e.amm.AddLiquidity(e.poolKey, ModifyLiquidityParams{
			TickLower:      p.TickLower,
			TickUpper:      p.TickUpper,
			LiquidityDelta: new(big.Int).Set(p.Liquidity),
			Salt:           salt,
		})
		if err != nil {
			return BalanceDelta{}, err
		}
		total = total.Add(delta)
	}
	return total, nil
}

// AfterSwap implements §4.5: update totals from the signed delta, with
// fees isolated into fees_accrued, and flips early_exit if the swap
// pushed proceeds past maximum_proceeds.
func (e *Engine) AfterSwap(key PoolKey, params SwapParams, delta BalanceDelta, now int64) (BalanceDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key.ID() != e.poolID {
		return BalanceDelta{}, ErrUnauthorized
	}

	slot0, err := e.amm.Slot0(key)
	if err != nil {
		return BalanceDelta{}, err
	}

	ApplySwapAccounting(e.state, e.cfg.Orientation(), delta, slot0.LPFee)

	if e.state.SaleState == StateActive && e.state.TotalProceeds.Cmp(e.cfg.MaximumProceeds) >= 0 {
		e.state.SaleState = StateEarlyExit
	}

	return ZeroBalanceDelta(), nil
}
