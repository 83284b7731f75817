package services

import (
	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/store"
)

// Engine wires every controller over one set of dependencies so they share
// the store, the vendor client and the refill locks.
type Engine struct {
	Store     *store.Store
	Brands    *BrandCache
	Products  *ProductCache
	Prices    *PriceCache
	Inventory *InventoryCache
	Catalog   *CatalogSync
	Admin     *CacheAdmin
}

// NewEngine constructs an Engine. events may be nil.
func NewEngine(deps Deps, cache config.Cache, sync config.Sync, events EventPublisher) *Engine {
	deps = deps.withDefaults()
	brands := NewBrandCache(deps, cache.BrandSyncTTL)
	return &Engine{
		Store:     deps.Store,
		Brands:    brands,
		Products:  NewProductCache(deps, cache),
		Prices:    NewPriceCache(deps, cache),
		Inventory: NewInventoryCache(deps, cache.InventoryTTL),
		Catalog:   NewCatalogSync(deps, sync, brands, events),
		Admin:     NewCacheAdmin(deps, cache, brands),
	}
}
