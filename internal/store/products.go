package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

var productColumns = []string{
	"brand_id", "brand_name", "product_name", "part_number", "mfr_part_number",
	"part_description", "category", "subcategory", "price_group_id", "price_group",
	"active", "regular_stock", "clearance_item", "dimensions", "warehouse_availability",
	"thumbnail", "updated_at",
}

// ProductFilter narrows a brand listing by exact facet values.
type ProductFilter struct {
	Category    string
	Subcategory string
	ProductName string
}

// Active reports whether any filter value is set.
func (f ProductFilter) Active() bool {
	return strings.TrimSpace(f.Category) != "" ||
		strings.TrimSpace(f.Subcategory) != "" ||
		strings.TrimSpace(f.ProductName) != ""
}

// UpsertBrandPageProducts writes products fetched from a brand items page,
// stamping the page marker.
func (s *Store) UpsertBrandPageProducts(ctx context.Context, products []models.Product) error {
	return s.upsertProducts(ctx, products, append(productColumns, "api_page"))
}

// UpsertCatalogProducts writes products from the global catalog walk. The
// brand page marker is left untouched because global page numbers do not map
// to brand pages.
func (s *Store) UpsertCatalogProducts(ctx context.Context, products []models.Product) error {
	return s.upsertProducts(ctx, products, productColumns)
}

// UpsertUpdatedProducts writes products from the updates feed and stamps last_api_update.
func (s *Store) UpsertUpdatedProducts(ctx context.Context, products []models.Product) error {
	return s.upsertProducts(ctx, products, append(productColumns, "last_api_update"))
}

func (s *Store) upsertProducts(ctx context.Context, products []models.Product, columns []string) error {
	if len(products) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).CreateInBatches(&products, 100).Error
}

// BrandPageProducts returns the products last mirrored from one upstream
// brand page, ordered by id.
func (s *Store) BrandPageProducts(ctx context.Context, brandID int64, apiPage int) ([]models.Product, error) {
	var products []models.Product
	err := s.conn(ctx).Where("brand_id = ? AND api_page = ?", brandID, apiPage).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// CountBrandProducts returns how many products of a brand are mirrored.
func (s *Store) CountBrandProducts(ctx context.Context, brandID int64) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Product{}).Where("brand_id = ?", brandID).Count(&count).Error
	return count, err
}

// FilterBrandProducts returns one page of a brand's products matching filter and the match count.
func (s *Store) FilterBrandProducts(ctx context.Context, brandID int64, filter ProductFilter, offset, limit int) ([]models.Product, int64, error) {
	query := s.conn(ctx).Model(&models.Product{}).Where("brand_id = ?", brandID)
	if v := strings.TrimSpace(filter.Category); v != "" {
		query = query.Where("category = ?", v)
	}
	if v := strings.TrimSpace(filter.Subcategory); v != "" {
		query = query.Where("subcategory = ?", v)
	}
	if v := strings.TrimSpace(filter.ProductName); v != "" {
		query = query.Where("product_name = ?", v)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := query.Order("product_name asc").Order("id asc").
		Offset(offset).Limit(limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindProduct loads one product by id.
func (s *Store) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.conn(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// ExistingProductIDs returns the subset of ids that already have a product row.
func (s *Store) ExistingProductIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := s.conn(ctx).Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}
