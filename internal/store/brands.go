package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

// Listing sync overwrites vendor attributes only; slug and detail flags are owned locally.
var brandListingColumns = []string{"name", "dropship", "logo_url", "price_groups", "regulatory_codes", "updated_at"}

var brandDetailColumns = []string{"name", "dropship", "logo_url", "price_groups", "regulatory_codes", "details_fetched", "details_fetched_at", "updated_at"}

// ListBrands returns every stored brand ordered by name.
func (s *Store) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.conn(ctx).Order("name asc").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// FindBrand loads a brand by vendor id.
func (s *Store) FindBrand(ctx context.Context, id int64) (*models.Brand, error) {
	var brand models.Brand
	if err := s.conn(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &brand, nil
}

// FindBrandBySlug loads a brand by its site slug.
func (s *Store) FindBrandBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	var brand models.Brand
	if err := s.conn(ctx).First(&brand, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err)
	}
	return &brand, nil
}

// UpsertBrandListings writes brands from the list endpoint.
func (s *Store) UpsertBrandListings(ctx context.Context, brands []models.Brand) error {
	if len(brands) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(brandListingColumns),
	}).CreateInBatches(&brands, 200).Error
}

// UpsertBrandDetails writes full detail attributes, creating the brand if it is missing.
func (s *Store) UpsertBrandDetails(ctx context.Context, brand *models.Brand) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(brandDetailColumns),
	}).Create(brand).Error
}

// BrandsWithoutSlug returns brands whose slug is still the empty sentinel.
func (s *Store) BrandsWithoutSlug(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.conn(ctx).Where("slug = ?", "").Order("id asc").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// SlugTaken reports whether another brand already owns slug.
func (s *Store) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Brand{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

// SetBrandSlug assigns a slug to a brand.
func (s *Store) SetBrandSlug(ctx context.Context, id int64, slug string) error {
	return s.conn(ctx).Model(&models.Brand{}).Where("id = ?", id).Update("slug", slug).Error
}

// CountBrands returns the total brands and how many have details fetched.
func (s *Store) CountBrands(ctx context.Context) (total, withDetails int64, err error) {
	if err = s.conn(ctx).Model(&models.Brand{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = s.conn(ctx).Model(&models.Brand{}).Where("details_fetched = ?", true).Count(&withDetails).Error; err != nil {
		return 0, 0, err
	}
	return total, withDetails, nil
}

// BrandSummary is one row of the category aggregate.
type BrandSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int64  `json:"product_count"`
}

// BrandsWithCategory returns the distinct brands that have at least one
// mirrored product in category, with their product counts.
func (s *Store) BrandsWithCategory(ctx context.Context, category string) ([]BrandSummary, error) {
	var rows []BrandSummary
	err := s.conn(ctx).Raw(`
		SELECT b.id, b.name, b.slug, COUNT(p.id) AS product_count
		FROM brands b
		JOIN products p ON p.brand_id = b.id
		WHERE LOWER(p.category) = LOWER(?)
		GROUP BY b.id, b.name, b.slug
		ORDER BY b.name ASC`, category).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
