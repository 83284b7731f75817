package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

// LastSync returns the ledger timestamp for entity, or nil when it was never synced.
func (s *Store) LastSync(ctx context.Context, entity string) (*time.Time, error) {
	var row models.SyncControl
	err := s.conn(ctx).Where("entity = ?", entity).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Entity == "" {
		return nil, nil
	}
	return &row.LastSync, nil
}

// StampSync sets the ledger timestamp for entity.
func (s *Store) StampSync(ctx context.Context, entity string, at time.Time) error {
	row := models.SyncControl{Entity: entity, LastSync: at}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sync"}),
	}).Create(&row).Error
}

// DeleteSync removes the ledger row for entity.
func (s *Store) DeleteSync(ctx context.Context, entity string) error {
	return s.conn(ctx).Where("entity = ?", entity).Delete(&models.SyncControl{}).Error
}

// SyncLedger returns every ledger row.
func (s *Store) SyncLedger(ctx context.Context) ([]models.SyncControl, error) {
	var rows []models.SyncControl
	if err := s.conn(ctx).Order("entity asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateSyncRun persists the outcome of a bulk sync.
func (s *Store) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.conn(ctx).Create(run).Error
}

// RecentSyncRuns returns the latest sync runs, newest first.
func (s *Store) RecentSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	if err := s.conn(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
