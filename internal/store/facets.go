package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/partsmirror/internal/models"
)

// Facets groups the filter values known for a brand.
type Facets struct {
	Categories    []models.BrandCategory    `json:"categories"`
	Subcategories []models.BrandSubcategory `json:"subcategories"`
	ProductNames  []models.BrandProductName `json:"product_names"`
}

// AddFacets inserts facet values, leaving already-known values untouched.
func (s *Store) AddFacets(ctx context.Context, facets Facets) error {
	db := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true})
	if len(facets.Categories) > 0 {
		if err := db.CreateInBatches(&facets.Categories, 200).Error; err != nil {
			return err
		}
	}
	if len(facets.Subcategories) > 0 {
		if err := db.CreateInBatches(&facets.Subcategories, 200).Error; err != nil {
			return err
		}
	}
	if len(facets.ProductNames) > 0 {
		if err := db.CreateInBatches(&facets.ProductNames, 200).Error; err != nil {
			return err
		}
	}
	return nil
}

// BrandFacets returns every facet value recorded for a brand.
func (s *Store) BrandFacets(ctx context.Context, brandID int64) (*Facets, error) {
	facets := &Facets{}
	db := s.conn(ctx)
	if err := db.Where("brand_id = ?", brandID).Order("category asc").Find(&facets.Categories).Error; err != nil {
		return nil, err
	}
	if err := db.Where("brand_id = ?", brandID).Order("subcategory asc").Find(&facets.Subcategories).Error; err != nil {
		return nil, err
	}
	if err := db.Where("brand_id = ?", brandID).Order("product_name asc").Find(&facets.ProductNames).Error; err != nil {
		return nil, err
	}
	return facets, nil
}
