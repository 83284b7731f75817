package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

// BrandInventory returns every stored inventory row of a brand.
func (s *Store) BrandInventory(ctx context.Context, brandID int64) ([]models.BrandInventory, error) {
	var rows []models.BrandInventory
	if err := s.conn(ctx).Where("brand_id = ?", brandID).Order("item_id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteBrandInventory removes a brand's inventory rows and its inventory cache row.
func (s *Store) DeleteBrandInventory(ctx context.Context, brandID int64) error {
	if err := s.conn(ctx).Where("brand_id = ?", brandID).Delete(&models.BrandInventory{}).Error; err != nil {
		return err
	}
	return s.conn(ctx).Where("brand_id = ?", brandID).Delete(&models.InventoryCache{}).Error
}

// UpsertInventory writes inventory rows keyed by (brand, item).
func (s *Store) UpsertInventory(ctx context.Context, rows []models.BrandInventory) error {
	if len(rows) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_stock", "inventory", "manufacturer_stock", "manufacturer_esd", "updated_at"}),
	}).CreateInBatches(&rows, 200).Error
}
