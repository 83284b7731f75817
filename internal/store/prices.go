package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

var priceColumns = []string{
	"purchase_cost", "has_map", "can_purchase", "pricelists",
	"map_price", "retail_price", "priced_at", "updated_at",
}

// UpsertBrandPagePrices writes prices fetched through a brand pricing page.
func (s *Store) UpsertBrandPagePrices(ctx context.Context, prices []models.ProductPrice) error {
	return s.upsertPrices(ctx, prices, append(priceColumns, "brand_id", "api_page"))
}

// UpsertItemPrices writes prices fetched one item at a time; page markers are preserved.
func (s *Store) UpsertItemPrices(ctx context.Context, prices []models.ProductPrice) error {
	return s.upsertPrices(ctx, prices, priceColumns)
}

func (s *Store) upsertPrices(ctx context.Context, prices []models.ProductPrice, columns []string) error {
	if len(prices) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).CreateInBatches(&prices, 100).Error
}

// BrandPagePrices returns the prices last mirrored from one brand pricing page.
func (s *Store) BrandPagePrices(ctx context.Context, brandID int64, apiPage int) ([]models.ProductPrice, error) {
	var prices []models.ProductPrice
	err := s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).
		Order("product_id asc").
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// FindPrices returns the stored prices among ids.
func (s *Store) FindPrices(ctx context.Context, ids []string) ([]models.ProductPrice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var prices []models.ProductPrice
	if err := s.conn(ctx).Where("product_id IN ?", ids).Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}
