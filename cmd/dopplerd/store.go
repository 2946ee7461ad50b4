// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// exitEvent is an audit-trail record of one post-maturity exit. It is
// never the engine's source of truth — the engine's
// own in-memory state always is — this table only backs the diagnostics
// server's history endpoint.
type exitEvent struct {
	ID              uint      `gorm:"primaryKey"`
	PoolID          string    `gorm:"index"`
	AssetAmount     string
	NumeraireAmount string
	FeesAsset       string
	FeesNumeraire   string
	RecordedAt      time.Time
}

// eventStore wraps an optional gorm/MySQL connection. A store with no
// connection is valid: dopplerd runs without persistence when no DSN is
// configured.
type eventStore struct {
	db *gorm.DB
}

func openEventStore(dsn string) (*eventStore, error) {
	if dsn == "" {
		return &eventStore{}, nil
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&exitEvent{}); err != nil {
		return nil, err
	}
	return &eventStore{db: db}, nil
}

func (s *eventStore) recordExit(poolID string, asset, numeraire, feesAsset, feesNumeraire string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Create(&exitEvent{
		PoolID:          poolID,
		AssetAmount:     asset,
		NumeraireAmount: numeraire,
		FeesAsset:       feesAsset,
		FeesNumeraire:   feesNumeraire,
		RecordedAt:      time.Now(),
	}).Error
}

func (s *eventStore) history(poolID string) ([]exitEvent, error) {
	if s.db == nil {
		return nil, nil
	}
	var events []exitEvent
	err := s.db.Where("pool_id = ?", poolID).Order("recorded_at desc").Find(&events).Error
	return events, err
}
