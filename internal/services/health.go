package services

import (
	"context"
	"fmt"
	"time"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
)

// CacheHealth is the operator view of every cache table.
type CacheHealth struct {
	CheckedAt     time.Time            `json:"checked_at"`
	Brands        BrandStats           `json:"brands"`
	ProductPages  store.TableHealth    `json:"product_pages"`
	PricePages    store.TableHealth    `json:"price_pages"`
	Inventory     store.TableHealth    `json:"inventory"`
	Products      int64                `json:"products"`
	Prices        int64                `json:"prices"`
	InventoryRows int64                `json:"inventory_rows"`
	LastSync      map[string]time.Time `json:"last_sync"`
}

// CacheAdmin backs the operator endpoints: health and cache clearing.
type CacheAdmin struct {
	deps   Deps
	cfg    config.Cache
	brands *BrandCache
}

// NewCacheAdmin constructs a CacheAdmin.
func NewCacheAdmin(deps Deps, cfg config.Cache, brands *BrandCache) *CacheAdmin {
	return &CacheAdmin{deps: deps.withDefaults(), cfg: cfg, brands: brands}
}

// CacheHealth collects row counts, age bounds and stale counts per cache table.
func (a *CacheAdmin) CacheHealth(ctx context.Context) (*CacheHealth, error) {
	now := a.deps.now()
	health := &CacheHealth{CheckedAt: now, LastSync: map[string]time.Time{}}

	stats, err := a.brands.Stats(ctx)
	if err != nil {
		return nil, err
	}
	health.Brands = stats

	tables := []struct {
		model any
		ttl   time.Duration
		out   *store.TableHealth
	}{
		{&models.ProductPageCache{}, a.cfg.ProductPageTTL, &health.ProductPages},
		{&models.PricePageCache{}, a.cfg.PricePageTTL, &health.PricePages},
		{&models.InventoryCache{}, a.cfg.InventoryTTL, &health.Inventory},
	}
	for _, t := range tables {
		th, err := a.deps.Store.CacheTableHealth(ctx, t.model, now.Add(-t.ttl))
		if err != nil {
			return nil, fmt.Errorf("health %T: %w", t.model, err)
		}
		*t.out = th
	}

	counts := []struct {
		model any
		out   *int64
	}{
		{&models.Product{}, &health.Products},
		{&models.ProductPrice{}, &health.Prices},
		{&models.BrandInventory{}, &health.InventoryRows},
	}
	for _, c := range counts {
		n, err := a.deps.Store.CountRows(ctx, c.model)
		if err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
		*c.out = n
	}

	ledger, err := a.deps.Store.SyncLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync ledger: %w", err)
	}
	for _, row := range ledger {
		health.LastSync[row.Entity] = row.LastSync
	}
	return health, nil
}

// ClearBrandCache drops every freshness row and the inventory of one brand, so
// the next read refetches it.
func (a *CacheAdmin) ClearBrandCache(ctx context.Context, brandID int64) error {
	if err := a.deps.Store.ClearBrandCache(ctx, brandID); err != nil {
		return fmt.Errorf("clear cache brand %d: %w", brandID, err)
	}
	a.deps.Logger.Info("brand cache cleared", "brand_id", brandID)
	return nil
}

// ClearAllCache drops every freshness row and all inventory.
func (a *CacheAdmin) ClearAllCache(ctx context.Context) error {
	if err := a.deps.Store.ClearAllCache(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	a.deps.Logger.Warn("all cache cleared")
	return nil
}
