// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"errors"
	"sync"
)

// ErrAlreadyRegistered is returned when a pool ID is registered twice.
var ErrAlreadyRegistered = errors.New("doppler: engine already registered for this pool")

// Registry maps pool IDs to the engine instance that owns them. Unlike
// the source's process-wide singleton, a Registry is an explicit value:
// a process may hold several, and multiple engines run side by side with
// no shared state beyond this lookup table (see DESIGN.md, §9 Design
// Note 1).
type Registry struct {
	mu      sync.RWMutex
	engines map[[32]byte]*Engine
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[[32]byte]*Engine)}
}

// Register validates cfg, constructs a new engine for key, and adds it to
// the registry under key's pool ID.
func (r *Registry) Register(cfg Config, key PoolKey, amm AMM, airlock Airlock, engineAddress [20]byte) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key.ID()
	if _, exists := r.engines[id]; exists {
		return nil, ErrAlreadyRegistered
	}
	engine, err := NewEngine(cfg, key, amm, airlock, engineAddress)
	if err != nil {
		return nil, err
	}
	r.engines[id] = engine
	return engine, nil
}

// EngineOf looks up the engine owning poolID, if any.
func (r *Registry) EngineOf(poolID [32]byte) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[poolID]
	return e, ok
}

// PoolIDs returns every pool ID currently registered, for diagnostics.
func (r *Registry) PoolIDs() [][32]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([][32]byte, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	return ids
}
