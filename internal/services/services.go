// Package services holds the cache controllers that sit between the storefront
// and the distributor API, the pagination remapper, and the bulk sync
// orchestrator.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/upstream"
)

// ErrNotFound is returned when a brand or product exists neither locally nor upstream.
var ErrNotFound = errors.New("not found")

// Vendor is the subset of the distributor API the controllers consume.
type Vendor interface {
	ListBrands(ctx context.Context) ([]upstream.BrandResource, error)
	GetBrand(ctx context.Context, brandID int64) (*upstream.BrandResource, error)
	ListBrandItems(ctx context.Context, brandID int64, page int) (*upstream.ItemsPage, error)
	ListItems(ctx context.Context, page int) (*upstream.ItemsPage, error)
	ListItemUpdates(ctx context.Context, page, days int) (*upstream.ItemsPage, error)
	ListBrandPricing(ctx context.Context, brandID int64, page int) (*upstream.PricingPage, error)
	GetItemPricing(ctx context.Context, itemID string) (*upstream.PricingResource, error)
	ListBrandInventory(ctx context.Context, brandID int64, page int) (*upstream.InventoryPage, error)
}

// Deps bundles the collaborators shared by every controller.
type Deps struct {
	Store  *store.Store
	Vendor Vendor
	Locker KeyLocker
	Logger *slog.Logger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) now() time.Time {
	return d.Now().UTC()
}

// fresh reports whether a row cached at cachedAt is still inside ttl.
func fresh(cachedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(cachedAt) < ttl
}
