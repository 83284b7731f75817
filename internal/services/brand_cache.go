package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/upstream"
	"github.com/example/partsmirror/internal/utils"
)

// BrandStats summarizes how many brands have their detail attributes mirrored.
type BrandStats struct {
	Total          int64   `json:"total"`
	WithDetails    int64   `json:"with_details"`
	WithoutDetails int64   `json:"without_details"`
	HitRate        float64 `json:"hit_rate"`
}

// BrandCache mirrors the brand list on a weekly cadence and brand details
// lazily, once per brand.
type BrandCache struct {
	deps    Deps
	syncTTL time.Duration
}

// NewBrandCache constructs a BrandCache. syncTTL gates SyncIfNeeded.
func NewBrandCache(deps Deps, syncTTL time.Duration) *BrandCache {
	return &BrandCache{deps: deps.withDefaults(), syncTTL: syncTTL}
}

// ListBrands returns the stored brands without consulting upstream.
func (b *BrandCache) ListBrands(ctx context.Context) ([]models.Brand, error) {
	return b.deps.Store.ListBrands(ctx)
}

// NeedsSync reports whether the brand list is missing or older than the sync TTL.
func (b *BrandCache) NeedsSync(ctx context.Context) (bool, error) {
	last, err := b.deps.Store.LastSync(ctx, models.SyncEntityBrands)
	if err != nil {
		return false, fmt.Errorf("brand sync ledger: %w", err)
	}
	if last == nil {
		return true, nil
	}
	return !fresh(*last, b.deps.now(), b.syncTTL), nil
}

// SyncBrands pulls the full brand list, overwrites listing attributes, assigns
// slugs to new brands and stamps the ledger. It returns the number of brands synced.
func (b *BrandCache) SyncBrands(ctx context.Context) (int, error) {
	resources, err := b.deps.Vendor.ListBrands(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch brands: %w", err)
	}

	brands := make([]models.Brand, 0, len(resources))
	for _, res := range resources {
		brand, err := brandFromResource(res)
		if err != nil {
			b.deps.Logger.Warn("skipping brand with malformed id", "id", res.ID, "err", err)
			continue
		}
		brands = append(brands, brand)
	}

	err = b.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpsertBrandListings(ctx, brands); err != nil {
			return fmt.Errorf("upsert brands: %w", err)
		}
		if err := assignSlugs(ctx, tx); err != nil {
			return err
		}
		return tx.StampSync(ctx, models.SyncEntityBrands, b.deps.now())
	})
	if err != nil {
		return 0, err
	}

	b.deps.Logger.Info("brands synced", "count", len(brands))
	return len(brands), nil
}

// SyncIfNeeded runs SyncBrands only when NeedsSync says so.
func (b *BrandCache) SyncIfNeeded(ctx context.Context) (int, bool, error) {
	needed, err := b.NeedsSync(ctx)
	if err != nil || !needed {
		return 0, false, err
	}
	count, err := b.SyncBrands(ctx)
	return count, true, err
}

// ForceSync drops the ledger row and syncs regardless of age.
func (b *BrandCache) ForceSync(ctx context.Context) (int, error) {
	if err := b.deps.Store.DeleteSync(ctx, models.SyncEntityBrands); err != nil {
		return 0, fmt.Errorf("reset brand ledger: %w", err)
	}
	return b.SyncBrands(ctx)
}

// GetBrandByID returns a brand with detail attributes. Details are fetched from
// upstream at most once per brand; afterwards the stored row is served as is.
func (b *BrandCache) GetBrandByID(ctx context.Context, id int64) (*models.Brand, error) {
	brand, err := b.findBrand(ctx, id)
	if err != nil {
		return nil, err
	}
	if brand != nil && brand.DetailsFetched {
		return brand, nil
	}

	unlock, err := b.deps.Locker.Lock(ctx, brandKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	brand, err = b.findBrand(ctx, id)
	if err != nil {
		return nil, err
	}
	if brand != nil && brand.DetailsFetched {
		return brand, nil
	}

	fetched, err := b.fetchDetails(ctx, id)
	if errors.Is(err, upstream.ErrNotFound) {
		if brand != nil {
			b.deps.Logger.Warn("brand detail missing upstream, serving listing", "brand_id", id)
			return brand, nil
		}
		return nil, fmt.Errorf("brand %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return fetched, nil
}

// GetBrandBySlug reads a brand by slug from the store only.
func (b *BrandCache) GetBrandBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	brand, err := b.deps.Store.FindBrandBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("brand %q: %w", slug, ErrNotFound)
	}
	return brand, err
}

// ForceRefreshBrandDetails refetches and overwrites a brand's detail attributes
// even when they were already fetched. It is an operator correction path.
func (b *BrandCache) ForceRefreshBrandDetails(ctx context.Context, id int64) (*models.Brand, error) {
	unlock, err := b.deps.Locker.Lock(ctx, brandKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	brand, err := b.fetchDetails(ctx, id)
	if errors.Is(err, upstream.ErrNotFound) {
		return nil, fmt.Errorf("brand %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b.deps.Logger.Warn("brand details force refreshed", "brand_id", id)
	return brand, nil
}

// Stats reports detail coverage across stored brands.
func (b *BrandCache) Stats(ctx context.Context) (BrandStats, error) {
	total, with, err := b.deps.Store.CountBrands(ctx)
	if err != nil {
		return BrandStats{}, fmt.Errorf("count brands: %w", err)
	}
	stats := BrandStats{Total: total, WithDetails: with, WithoutDetails: total - with}
	if total > 0 {
		stats.HitRate = math.Round(float64(with)/float64(total)*10000) / 100
	}
	return stats, nil
}

func (b *BrandCache) findBrand(ctx context.Context, id int64) (*models.Brand, error) {
	brand, err := b.deps.Store.FindBrand(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load brand %d: %w", id, err)
	}
	return brand, nil
}

func (b *BrandCache) fetchDetails(ctx context.Context, id int64) (*models.Brand, error) {
	res, err := b.deps.Vendor.GetBrand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch brand %d: %w", id, err)
	}
	if res.ID == "" {
		res.ID = strconv.FormatInt(id, 10)
	}
	brand, err := brandFromResource(*res)
	if err != nil {
		return nil, err
	}
	brand.ID = id
	fetchedAt := b.deps.now()
	brand.DetailsFetched = true
	brand.DetailsFetchedAt = &fetchedAt

	var stored *models.Brand
	err = b.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpsertBrandDetails(ctx, &brand); err != nil {
			return fmt.Errorf("upsert brand %d: %w", id, err)
		}
		if err := assignSlugs(ctx, tx); err != nil {
			return err
		}
		var err error
		stored, err = tx.FindBrand(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// assignSlugs gives every brand still holding the empty slug a unique one.
// Assigned slugs never change.
func assignSlugs(ctx context.Context, s *store.Store) error {
	brands, err := s.BrandsWithoutSlug(ctx)
	if err != nil {
		return fmt.Errorf("brands without slug: %w", err)
	}
	for _, brand := range brands {
		slug := utils.Slugify(brand.Name)
		if slug == "" {
			slug = fmt.Sprintf("brand-%d", brand.ID)
		}
		taken, err := s.SlugTaken(ctx, slug, brand.ID)
		if err != nil {
			return fmt.Errorf("slug lookup %q: %w", slug, err)
		}
		if taken {
			slug = fmt.Sprintf("%s-%d", slug, brand.ID)
		}
		if err := s.SetBrandSlug(ctx, brand.ID, slug); err != nil {
			return fmt.Errorf("set slug for brand %d: %w", brand.ID, err)
		}
	}
	return nil
}
