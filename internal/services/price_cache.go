package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
)

// PricePage is one upstream pricing page of a brand.
type PricePage struct {
	Prices     []models.ProductPrice `json:"prices"`
	APIPage    int                   `json:"api_page"`
	TotalPages int                   `json:"total_pages"`
	FromCache  bool                  `json:"from_cache"`
}

// PriceCache mirrors pricing by brand page and by individual product id.
type PriceCache struct {
	deps Deps
	cfg  config.Cache
}

// NewPriceCache constructs a PriceCache.
func NewPriceCache(deps Deps, cfg config.Cache) *PriceCache {
	if cfg.PriceBatchSize <= 0 {
		cfg.PriceBatchSize = 10
	}
	return &PriceCache{deps: deps.withDefaults(), cfg: cfg}
}

// GetBrandPricePage returns one upstream pricing page of a brand, refetching it
// when its freshness row is missing or expired.
func (p *PriceCache) GetBrandPricePage(ctx context.Context, brandID int64, apiPage int) (*PricePage, error) {
	if apiPage < 1 {
		apiPage = 1
	}

	entry, err := p.deps.Store.PricePageEntry(ctx, brandID, apiPage)
	if err != nil {
		return nil, fmt.Errorf("price cache brand %d page %d: %w", brandID, apiPage, err)
	}
	if entry != nil && fresh(entry.CachedAt, p.deps.now(), p.cfg.PricePageTTL) {
		return p.fromStore(ctx, entry)
	}

	unlock, err := p.deps.Locker.Lock(ctx, pricePageKey(brandID, apiPage))
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err = p.deps.Store.PricePageEntry(ctx, brandID, apiPage)
	if err != nil {
		return nil, fmt.Errorf("price cache brand %d page %d: %w", brandID, apiPage, err)
	}
	if entry != nil && fresh(entry.CachedAt, p.deps.now(), p.cfg.PricePageTTL) {
		return p.fromStore(ctx, entry)
	}

	if err := p.deps.Store.DeletePricePageEntry(ctx, brandID, apiPage); err != nil {
		return nil, fmt.Errorf("invalidate prices brand %d page %d: %w", brandID, apiPage, err)
	}

	page, err := p.deps.Vendor.ListBrandPricing(ctx, brandID, apiPage)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing brand %d page %d: %w", brandID, apiPage, err)
	}

	now := p.deps.now()
	prices := make([]models.ProductPrice, 0, len(page.Data))
	for _, res := range page.Data {
		if res.ID == "" {
			continue
		}
		prices = append(prices, priceFromResource(res, brandID, apiPage, now))
	}

	err = p.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpsertBrandPagePrices(ctx, prices); err != nil {
			return fmt.Errorf("upsert prices: %w", err)
		}
		return tx.StampPricePage(ctx, models.PricePageCache{
			BrandID:    brandID,
			APIPage:    apiPage,
			TotalPages: page.Meta.TotalPages,
			CachedAt:   now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store pricing brand %d page %d: %w", brandID, apiPage, err)
	}

	p.deps.Logger.Info("price page refilled", "brand_id", brandID, "api_page", apiPage, "prices", len(prices))
	return &PricePage{Prices: prices, APIPage: apiPage, TotalPages: page.Meta.TotalPages}, nil
}

func (p *PriceCache) fromStore(ctx context.Context, entry *models.PricePageCache) (*PricePage, error) {
	prices, err := p.deps.Store.BrandPagePrices(ctx, entry.BrandID, entry.APIPage)
	if err != nil {
		return nil, fmt.Errorf("read prices brand %d page %d: %w", entry.BrandID, entry.APIPage, err)
	}
	return &PricePage{Prices: prices, APIPage: entry.APIPage, TotalPages: entry.TotalPages, FromCache: true}, nil
}

// GetPricesForProducts returns prices for ids keyed by product id. Ids without
// a fresh stored price are fetched individually, at most PriceBatchSize at a
// time. A failed fetch leaves the id unpriced, or priced with its stale row
// when one exists.
func (p *PriceCache) GetPricesForProducts(ctx context.Context, ids []string) (map[string]models.ProductPrice, error) {
	ids = uniqueIDs(ids)
	result := make(map[string]models.ProductPrice, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	stored, err := p.deps.Store.FindPrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	now := p.deps.now()
	stale := map[string]models.ProductPrice{}
	for _, price := range stored {
		if fresh(price.PricedAt, now, p.cfg.PricePageTTL) {
			result[price.ProductID] = price
		} else {
			stale[price.ProductID] = price
		}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	var (
		mu      sync.Mutex
		fetched []models.ProductPrice
	)
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.PriceBatchSize)
	for _, id := range missing {
		g.Go(func() error {
			res, err := p.deps.Vendor.GetItemPricing(ctx, id)
			if err != nil {
				p.deps.Logger.Warn("item price fetch failed", "product_id", id, "err", err)
				return nil
			}
			if res.ID == "" {
				res.ID = id
			}
			price := priceFromResource(*res, 0, 0, now)
			if old, ok := stale[id]; ok {
				price.BrandID, price.APIPage = old.BrandID, old.APIPage
			}
			mu.Lock()
			fetched = append(fetched, price)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(fetched, func(i, j int) bool { return fetched[i].ProductID < fetched[j].ProductID })
	if err := p.deps.Store.UpsertItemPrices(ctx, fetched); err != nil {
		return nil, fmt.Errorf("store item prices: %w", err)
	}

	for _, price := range fetched {
		result[price.ProductID] = price
	}
	for id, price := range stale {
		if _, ok := result[id]; !ok {
			result[id] = price
		}
	}
	return result, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
