package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/upstream"
)

// StockItem is the stock of one item as served to callers.
type StockItem struct {
	ItemID            string         `json:"item_id"`
	TotalStock        int            `json:"total_stock"`
	InStock           bool           `json:"in_stock"`
	Inventory         map[string]int `json:"inventory"`
	ManufacturerStock *int           `json:"manufacturer_stock,omitempty"`
	ManufacturerESD   *string        `json:"manufacturer_esd,omitempty"`
}

// BrandStock is the inventory of a whole brand.
type BrandStock struct {
	BrandID   int64       `json:"brand_id"`
	Items     []StockItem `json:"items"`
	CachedAt  time.Time   `json:"cached_at"`
	FromCache bool        `json:"from_cache"`
	Stale     bool        `json:"stale"`
}

// InventoryCache mirrors inventory per brand. All upstream pages of a brand
// are fetched together and cached as one unit.
type InventoryCache struct {
	deps Deps
	ttl  time.Duration
}

// NewInventoryCache constructs an InventoryCache.
func NewInventoryCache(deps Deps, ttl time.Duration) *InventoryCache {
	return &InventoryCache{deps: deps.withDefaults(), ttl: ttl}
}

// TotalStock sums every per-location quantity.
func TotalStock(inventory map[string]int) int {
	total := 0
	for _, qty := range inventory {
		total += qty
	}
	return total
}

// HasStock reports whether any location holds the item. Manufacturer
// backorder stock does not count.
func HasStock(inventory map[string]int) bool {
	return TotalStock(inventory) > 0
}

// GetBrandInventory returns a brand's inventory, refetching every page when the
// cache is missing or older than the TTL. When the refetch fails and stale rows
// exist, the stale rows are served instead of the error.
func (c *InventoryCache) GetBrandInventory(ctx context.Context, brandID int64) (*BrandStock, error) {
	entry, err := c.deps.Store.InventoryEntry(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("inventory cache brand %d: %w", brandID, err)
	}
	if entry != nil && fresh(entry.CachedAt, c.deps.now(), c.ttl) {
		return c.fromStore(ctx, entry, false)
	}

	unlock, err := c.deps.Locker.Lock(ctx, inventoryKey(brandID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err = c.deps.Store.InventoryEntry(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("inventory cache brand %d: %w", brandID, err)
	}
	if entry != nil && fresh(entry.CachedAt, c.deps.now(), c.ttl) {
		return c.fromStore(ctx, entry, false)
	}

	stock, err := c.refresh(ctx, brandID)
	if err != nil {
		if entry != nil {
			c.deps.Logger.Warn("inventory refresh failed, serving stale rows",
				"brand_id", brandID,
				"cached_at", entry.CachedAt,
				"err", err,
			)
			return c.fromStore(ctx, entry, true)
		}
		return nil, err
	}
	return stock, nil
}

// ForceRefreshInventory refetches a brand's inventory regardless of age.
func (c *InventoryCache) ForceRefreshInventory(ctx context.Context, brandID int64) (*BrandStock, error) {
	unlock, err := c.deps.Locker.Lock(ctx, inventoryKey(brandID))
	if err != nil {
		return nil, err
	}
	defer unlock()
	return c.refresh(ctx, brandID)
}

func (c *InventoryCache) fromStore(ctx context.Context, entry *models.InventoryCache, stale bool) (*BrandStock, error) {
	rows, err := c.deps.Store.BrandInventory(ctx, entry.BrandID)
	if err != nil {
		return nil, fmt.Errorf("read inventory brand %d: %w", entry.BrandID, err)
	}
	return &BrandStock{
		BrandID:   entry.BrandID,
		Items:     stockItems(rows),
		CachedAt:  entry.CachedAt,
		FromCache: true,
		Stale:     stale,
	}, nil
}

// refresh fetches every page, then swaps the brand's rows and freshness row in
// one transaction.
func (c *InventoryCache) refresh(ctx context.Context, brandID int64) (*BrandStock, error) {
	resources, totalPages, err := c.fetchAll(ctx, brandID)
	if err != nil {
		return nil, err
	}

	now := c.deps.now()
	rows := make([]models.BrandInventory, 0, len(resources))
	for _, res := range resources {
		rows = append(rows, inventoryFromResource(res, brandID, now))
	}

	err = c.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.DeleteBrandInventory(ctx, brandID); err != nil {
			return fmt.Errorf("invalidate inventory: %w", err)
		}
		if err := tx.UpsertInventory(ctx, rows); err != nil {
			return fmt.Errorf("upsert inventory: %w", err)
		}
		return tx.StampInventory(ctx, models.InventoryCache{
			BrandID:    brandID,
			TotalPages: totalPages,
			ItemCount:  len(rows),
			CachedAt:   now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store inventory brand %d: %w", brandID, err)
	}

	c.deps.Logger.Info("inventory refilled", "brand_id", brandID, "pages", totalPages, "items", len(rows))
	return &BrandStock{BrandID: brandID, Items: stockItems(rows), CachedAt: now}, nil
}

// fetchAll reads page 1 for the page count, then every remaining page in
// parallel, and merges the items by id.
func (c *InventoryCache) fetchAll(ctx context.Context, brandID int64) ([]upstream.InventoryResource, int, error) {
	first, err := c.deps.Vendor.ListBrandInventory(ctx, brandID, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch inventory brand %d page 1: %w", brandID, err)
	}

	totalPages := first.Meta.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	pages := make([][]upstream.InventoryResource, totalPages)
	pages[0] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	for page := 2; page <= totalPages; page++ {
		g.Go(func() error {
			resp, err := c.deps.Vendor.ListBrandInventory(gctx, brandID, page)
			if err != nil {
				return fmt.Errorf("fetch inventory brand %d page %d: %w", brandID, page, err)
			}
			pages[page-1] = resp.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	merged := map[string]upstream.InventoryResource{}
	for _, data := range pages {
		for _, res := range data {
			if res.ID != "" {
				merged[res.ID] = res
			}
		}
	}
	out := make([]upstream.InventoryResource, 0, len(merged))
	for _, res := range merged {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, totalPages, nil
}

func stockItems(rows []models.BrandInventory) []StockItem {
	items := make([]StockItem, 0, len(rows))
	for _, row := range rows {
		inventory := row.Inventory.Data()
		if inventory == nil {
			inventory = map[string]int{}
		}
		items = append(items, StockItem{
			ItemID:            row.ItemID,
			TotalStock:        row.TotalStock,
			InStock:           HasStock(inventory),
			Inventory:         inventory,
			ManufacturerStock: row.ManufacturerStock,
			ManufacturerESD:   row.ManufacturerESD,
		})
	}
	return items
}
