package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/testutil"
	"github.com/example/partsmirror/internal/upstream"
)

func inventoryItems(prefix string, n int) []upstream.InventoryResource {
	out := make([]upstream.InventoryResource, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, upstream.InventoryResource{
			ID:   fmt.Sprintf("%s-%04d", prefix, i),
			Type: "InventoryItem",
			Attributes: upstream.InventoryAttributes{
				Inventory: map[string]int{"01": i % 3, "02": 0, "05": 1},
			},
		})
	}
	return out
}

func TestStockAggregation(t *testing.T) {
	inventory := map[string]int{"01": 3, "02": 0, "05": 7}
	if got := services.TotalStock(inventory); got != 10 {
		t.Fatalf("total stock = %d, want 10", got)
	}
	if !services.HasStock(inventory) {
		t.Fatalf("expected stock")
	}
	if services.HasStock(map[string]int{"01": 0, "02": 0}) {
		t.Fatalf("all-zero inventory must not count as in stock")
	}
}

func TestInventoryIgnoresManufacturerStock(t *testing.T) {
	h := newHarness(t)
	h.vendor.BrandInventory[4] = [][]upstream.InventoryResource{{{
		ID: "BACKORDER",
		Attributes: upstream.InventoryAttributes{
			Inventory:    map[string]int{"01": 0, "02": 0},
			Manufacturer: &upstream.ManufacturerStock{Stock: 40, ESD: "2026-05-01"},
		},
	}}}
	inventory := services.NewInventoryCache(h.deps, cacheCfg.InventoryTTL)

	stock, err := inventory.GetBrandInventory(context.Background(), 4)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	item := stock.Items[0]
	if item.InStock || item.TotalStock != 0 {
		t.Fatalf("backorder-only item reported in stock: %+v", item)
	}
	if item.ManufacturerStock == nil || *item.ManufacturerStock != 40 {
		t.Fatalf("manufacturer stock = %v, want 40", item.ManufacturerStock)
	}
}

func TestInventoryFetchesAllPages(t *testing.T) {
	h := newHarness(t)
	all := inventoryItems("INV", 250)
	h.vendor.BrandInventory[9] = [][]upstream.InventoryResource{all[:100], all[100:200], all[200:]}
	inventory := services.NewInventoryCache(h.deps, cacheCfg.InventoryTTL)
	ctx := context.Background()

	stock, err := inventory.GetBrandInventory(ctx, 9)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(stock.Items) != 250 || stock.FromCache {
		t.Fatalf("items = %d, from cache %v", len(stock.Items), stock.FromCache)
	}
	for page := 1; page <= 3; page++ {
		if calls := h.vendor.Calls(fmt.Sprintf("/v1/inventory/brand/9?page=%d", page)); calls != 1 {
			t.Fatalf("page %d calls = %d, want 1", page, calls)
		}
	}
	if stock.Items[2].TotalStock != 3 || !stock.Items[2].InStock {
		t.Fatalf("item 2 = %+v", stock.Items[2])
	}

	h.clock.Advance(47 * time.Hour)
	cached, err := inventory.GetBrandInventory(ctx, 9)
	if err != nil {
		t.Fatalf("cached inventory: %v", err)
	}
	if !cached.FromCache || len(cached.Items) != 250 {
		t.Fatalf("expected cache hit with 250 items")
	}
	if calls := h.vendor.CallsWithPrefix("/v1/inventory/brand/9"); calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestInventoryServesStaleRowsOnFailure(t *testing.T) {
	h := newHarness(t)
	h.vendor.BrandInventory[9] = [][]upstream.InventoryResource{inventoryItems("INV", 5)}
	inventory := services.NewInventoryCache(h.deps, cacheCfg.InventoryTTL)
	ctx := context.Background()

	if _, err := inventory.GetBrandInventory(ctx, 9); err != nil {
		t.Fatalf("prime: %v", err)
	}

	h.clock.Advance(11 * 24 * time.Hour)
	h.vendor.Fail("/v1/inventory/brand/9", 502)

	stock, err := inventory.GetBrandInventory(ctx, 9)
	if err != nil {
		t.Fatalf("stale read failed: %v", err)
	}
	if !stock.Stale || len(stock.Items) != 5 {
		t.Fatalf("expected 5 stale items, got %d (stale %v)", len(stock.Items), stock.Stale)
	}
}

func TestInventoryFailureWithoutCacheIsAnError(t *testing.T) {
	h := newHarness(t)
	h.vendor.Fail("/v1/inventory/brand/9", 502)
	inventory := services.NewInventoryCache(h.deps, cacheCfg.InventoryTTL)

	if _, err := inventory.GetBrandInventory(context.Background(), 9); err == nil {
		t.Fatalf("expected error without cached rows")
	}
}

func TestForceRefreshInventoryReplacesRows(t *testing.T) {
	h := newHarness(t)
	h.vendor.BrandInventory[9] = [][]upstream.InventoryResource{inventoryItems("OLD", 4)}
	inventory := services.NewInventoryCache(h.deps, cacheCfg.InventoryTTL)
	ctx := context.Background()

	if _, err := inventory.GetBrandInventory(ctx, 9); err != nil {
		t.Fatalf("prime: %v", err)
	}

	h.vendor.Update(func(f *testutil.FakeVendor) {
		f.BrandInventory[9] = [][]upstream.InventoryResource{inventoryItems("NEW", 2)}
	})
	stock, err := inventory.ForceRefreshInventory(ctx, 9)
	if err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if len(stock.Items) != 2 {
		t.Fatalf("items after refresh = %d, want 2", len(stock.Items))
	}
	rows, err := h.store.BrandInventory(ctx, 9)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[0].ItemID != "NEW-0000" {
		t.Fatalf("stored rows = %+v", rows)
	}
}
