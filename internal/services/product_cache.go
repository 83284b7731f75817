package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
)

// ProductPage is one site page of a brand's products.
type ProductPage struct {
	Products      []models.Product `json:"products"`
	Page          int              `json:"page"`
	PageSize      int              `json:"page_size"`
	TotalPages    int              `json:"total_pages"`
	TotalProducts int64            `json:"total_products"`
	Matched       int64            `json:"matched,omitempty"`
	APIPage       int              `json:"api_page,omitempty"`
	FromCache     bool             `json:"from_cache"`
}

// ProductCache mirrors brand item pages lazily, one upstream page at a time.
type ProductCache struct {
	deps Deps
	cfg  config.Cache
}

// NewProductCache constructs a ProductCache.
func NewProductCache(deps Deps, cfg config.Cache) *ProductCache {
	return &ProductCache{deps: deps.withDefaults(), cfg: cfg}
}

// GetBrandProducts returns site page userPage of a brand. The upstream page
// holding it is served from the store while fresh and refetched otherwise.
func (p *ProductCache) GetBrandProducts(ctx context.Context, brandID int64, userPage int) (*ProductPage, error) {
	window := RemapPage(userPage, p.cfg.SitePageSize, p.cfg.UpstreamPageSize)

	entry, err := p.deps.Store.ProductPageEntry(ctx, brandID, window.APIPage)
	if err != nil {
		return nil, fmt.Errorf("product cache brand %d page %d: %w", brandID, window.APIPage, err)
	}
	if entry != nil && fresh(entry.CachedAt, p.deps.now(), p.cfg.ProductPageTTL) {
		return p.fromStore(ctx, brandID, window)
	}

	unlock, err := p.deps.Locker.Lock(ctx, productPageKey(brandID, window.APIPage))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another request may have refilled the page while this one waited.
	entry, err = p.deps.Store.ProductPageEntry(ctx, brandID, window.APIPage)
	if err != nil {
		return nil, fmt.Errorf("product cache brand %d page %d: %w", brandID, window.APIPage, err)
	}
	if entry != nil && fresh(entry.CachedAt, p.deps.now(), p.cfg.ProductPageTTL) {
		return p.fromStore(ctx, brandID, window)
	}

	return p.refill(ctx, brandID, window)
}

// GetFilteredBrandProducts applies exact facet filters against the store. With
// no active filter it behaves like GetBrandProducts.
func (p *ProductCache) GetFilteredBrandProducts(ctx context.Context, brandID int64, filter store.ProductFilter, userPage int) (*ProductPage, error) {
	if !filter.Active() {
		return p.GetBrandProducts(ctx, brandID, userPage)
	}
	if userPage < 1 {
		userPage = 1
	}

	size := p.cfg.SitePageSize
	rows, matched, err := p.deps.Store.FilterBrandProducts(ctx, brandID, filter, (userPage-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("filter products brand %d: %w", brandID, err)
	}
	total, err := p.deps.Store.CountBrandProducts(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("count products brand %d: %w", brandID, err)
	}

	return &ProductPage{
		Products:      rows,
		Page:          userPage,
		PageSize:      size,
		TotalPages:    TotalSitePages(matched, size),
		TotalProducts: total,
		Matched:       matched,
		FromCache:     true,
	}, nil
}

func (p *ProductCache) fromStore(ctx context.Context, brandID int64, window PageWindow) (*ProductPage, error) {
	rows, err := p.deps.Store.BrandPageProducts(ctx, brandID, window.APIPage)
	if err != nil {
		return nil, fmt.Errorf("read products brand %d page %d: %w", brandID, window.APIPage, err)
	}
	count, err := p.deps.Store.CountBrandProducts(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("count products brand %d: %w", brandID, err)
	}

	return &ProductPage{
		Products:      sliceWindow(rows, window.Offset, window.Size),
		Page:          window.UserPage,
		PageSize:      window.Size,
		TotalPages:    TotalSitePages(count, window.Size),
		TotalProducts: count,
		APIPage:       window.APIPage,
		FromCache:     true,
	}, nil
}

// refill invalidates the page, fetches it upstream and rewrites products,
// facets and the freshness row.
func (p *ProductCache) refill(ctx context.Context, brandID int64, window PageWindow) (*ProductPage, error) {
	if err := p.deps.Store.DeleteProductPageEntry(ctx, brandID, window.APIPage); err != nil {
		return nil, fmt.Errorf("invalidate products brand %d page %d: %w", brandID, window.APIPage, err)
	}

	page, err := p.deps.Vendor.ListBrandItems(ctx, brandID, window.APIPage)
	if err != nil {
		return nil, fmt.Errorf("fetch items brand %d page %d: %w", brandID, window.APIPage, err)
	}

	products := productsFromItems(page.Data, window.APIPage)
	for i := range products {
		if products[i].BrandID == 0 {
			products[i].BrandID = brandID
		}
	}
	// Same order as BrandPageProducts so cold and warm reads agree.
	slices.SortFunc(products, func(a, b models.Product) int {
		return strings.Compare(a.ID, b.ID)
	})

	err = p.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpsertBrandPageProducts(ctx, products); err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}
		if err := tx.AddFacets(ctx, DeriveFacets(products)); err != nil {
			return fmt.Errorf("add facets: %w", err)
		}
		return tx.StampProductPage(ctx, models.ProductPageCache{
			BrandID:    brandID,
			APIPage:    window.APIPage,
			TotalPages: page.Meta.TotalPages,
			CachedAt:   p.deps.now(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store items brand %d page %d: %w", brandID, window.APIPage, err)
	}

	p.deps.Logger.Info("product page refilled",
		"brand_id", brandID,
		"api_page", window.APIPage,
		"items", len(products),
		"total_pages", page.Meta.TotalPages,
	)

	count, err := p.deps.Store.CountBrandProducts(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("count products brand %d: %w", brandID, err)
	}

	return &ProductPage{
		Products:      sliceWindow(products, window.Offset, window.Size),
		Page:          window.UserPage,
		PageSize:      window.Size,
		TotalPages:    EstimateSitePages(page.Meta.TotalPages, p.cfg.UpstreamPageSize, window.Size),
		TotalProducts: count,
		APIPage:       window.APIPage,
	}, nil
}
