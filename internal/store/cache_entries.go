package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

// ProductPageEntry returns the freshness row of a brand items page, or nil when absent.
func (s *Store) ProductPageEntry(ctx context.Context, brandID int64, apiPage int) (*models.ProductPageCache, error) {
	var entry models.ProductPageCache
	err := s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.CachedAt.IsZero() {
		return nil, nil
	}
	return &entry, nil
}

// DeleteProductPageEntry invalidates a brand items page.
func (s *Store) DeleteProductPageEntry(ctx context.Context, brandID int64, apiPage int) error {
	return s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).Delete(&models.ProductPageCache{}).Error
}

// StampProductPage records a brand items page as fresh. Concurrent writers
// converge on one row.
func (s *Store) StampProductPage(ctx context.Context, entry models.ProductPageCache) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "api_page"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_pages", "cached_at"}),
	}).Create(&entry).Error
}

// PricePageEntry returns the freshness row of a brand pricing page, or nil when absent.
func (s *Store) PricePageEntry(ctx context.Context, brandID int64, apiPage int) (*models.PricePageCache, error) {
	var entry models.PricePageCache
	err := s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.CachedAt.IsZero() {
		return nil, nil
	}
	return &entry, nil
}

// DeletePricePageEntry invalidates a brand pricing page.
func (s *Store) DeletePricePageEntry(ctx context.Context, brandID int64, apiPage int) error {
	return s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).Delete(&models.PricePageCache{}).Error
}

// StampPricePage records a brand pricing page as fresh.
func (s *Store) StampPricePage(ctx context.Context, entry models.PricePageCache) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "api_page"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_pages", "cached_at"}),
	}).Create(&entry).Error
}

// InventoryEntry returns the freshness row of a brand's inventory, or nil when absent.
func (s *Store) InventoryEntry(ctx context.Context, brandID int64) (*models.InventoryCache, error) {
	var entry models.InventoryCache
	err := s.conn(ctx).Where("brand_id = ?", brandID).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.CachedAt.IsZero() {
		return nil, nil
	}
	return &entry, nil
}

// StampInventory records a brand's inventory as fresh.
func (s *Store) StampInventory(ctx context.Context, entry models.InventoryCache) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_pages", "item_count", "cached_at"}),
	}).Create(&entry).Error
}

// ClearBrandCache drops every freshness row and inventory row of one brand.
// Mirrored products and prices stay and are rewritten on the next refetch.
func (s *Store) ClearBrandCache(ctx context.Context, brandID int64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.conn(ctx)
		for _, model := range []any{&models.ProductPageCache{}, &models.PricePageCache{}, &models.InventoryCache{}, &models.BrandInventory{}} {
			if err := db.Where("brand_id = ?", brandID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearAllCache drops every freshness row and all inventory rows.
func (s *Store) ClearAllCache(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.conn(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.ProductPageCache{}, &models.PricePageCache{}, &models.InventoryCache{}, &models.BrandInventory{}} {
			if err := db.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TableHealth summarizes one freshness table.
type TableHealth struct {
	Rows   int64      `json:"rows"`
	Stale  int64      `json:"stale"`
	Oldest *time.Time `json:"oldest,omitempty"`
	Newest *time.Time `json:"newest,omitempty"`
}

// CacheTableHealth reports row counts and age bounds for a freshness table.
// Rows cached before staleBefore count as stale.
func (s *Store) CacheTableHealth(ctx context.Context, model any, staleBefore time.Time) (TableHealth, error) {
	var health TableHealth
	db := s.conn(ctx).Model(model)
	if err := db.Session(&gorm.Session{}).Count(&health.Rows).Error; err != nil {
		return health, err
	}
	if health.Rows == 0 {
		return health, nil
	}
	if err := db.Session(&gorm.Session{}).Where("cached_at < ?", staleBefore).Count(&health.Stale).Error; err != nil {
		return health, err
	}

	var oldest, newest struct{ CachedAt time.Time }
	if err := db.Session(&gorm.Session{}).Select("cached_at").Order("cached_at asc").Limit(1).Scan(&oldest).Error; err != nil {
		return health, err
	}
	if err := db.Session(&gorm.Session{}).Select("cached_at").Order("cached_at desc").Limit(1).Scan(&newest).Error; err != nil {
		return health, err
	}
	health.Oldest = &oldest.CachedAt
	health.Newest = &newest.CachedAt
	return health, nil
}

// CountRows returns the number of rows of model.
func (s *Store) CountRows(ctx context.Context, model any) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(model).Count(&count).Error
	return count, err
}
