package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/testutil"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testutil.NewDB(t))
}

func seedProducts(t *testing.T, s *store.Store, brandID int64, n int) {
	t.Helper()
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		category := "Brakes"
		if i%2 == 1 {
			category = "Exhaust"
		}
		products = append(products, models.Product{
			ID:          fmt.Sprintf("B%d-%04d", brandID, i),
			BrandID:     brandID,
			ProductName: fmt.Sprintf("Part %d", i%3),
			Category:    category,
			Subcategory: "Kits",
			APIPage:     i/100 + 1,
		})
	}
	if err := s.UpsertBrandPageProducts(context.Background(), products); err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func TestStampProductPageConvergesOnOneRow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	stamped := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.StampProductPage(ctx, models.ProductPageCache{BrandID: 3, APIPage: 1, TotalPages: 4, CachedAt: stamped})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("stamp: %v", err)
		}
	}

	count, err := s.CountRows(ctx, &models.ProductPageCache{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("cache rows = %d, want 1", count)
	}
	entry, err := s.ProductPageEntry(ctx, 3, 1)
	if err != nil || entry == nil {
		t.Fatalf("entry = %v, err = %v", entry, err)
	}
	if entry.TotalPages != 4 || !entry.CachedAt.Equal(stamped) {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestProductPageEntryMissingIsNil(t *testing.T) {
	s := newStore(t)
	entry, err := s.ProductPageEntry(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected no entry, got %+v", entry)
	}
}

func TestBrandPageProductsReadsOnePage(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProducts(t, s, 5, 237)

	// A product seen only through the global walk has no page marker.
	if err := s.UpsertCatalogProducts(ctx, []models.Product{{ID: "A-ORPHAN", BrandID: 5}}); err != nil {
		t.Fatalf("catalog upsert: %v", err)
	}

	page, err := s.BrandPageProducts(ctx, 5, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 37 {
		t.Fatalf("page size = %d, want 37", len(page))
	}
	if page[0].ID != "B5-0200" || page[len(page)-1].ID != "B5-0236" {
		t.Fatalf("page spans %s..%s, want B5-0200..B5-0236", page[0].ID, page[len(page)-1].ID)
	}

	orphans, err := s.BrandPageProducts(ctx, 5, 0)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != "A-ORPHAN" {
		t.Fatalf("orphans = %+v", orphans)
	}
}

func TestCatalogUpsertKeepsPageMarker(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProducts(t, s, 5, 150)

	if err := s.UpsertCatalogProducts(ctx, []models.Product{{ID: "B5-0120", BrandID: 5, ProductName: "Renamed"}}); err != nil {
		t.Fatalf("catalog upsert: %v", err)
	}
	product, err := s.FindProduct(ctx, "B5-0120")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if product.APIPage != 2 || product.ProductName != "Renamed" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestFilterBrandProducts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProducts(t, s, 9, 60)
	seedProducts(t, s, 10, 10)

	rows, total, err := s.FilterBrandProducts(ctx, 9, store.ProductFilter{Category: "Brakes"}, 0, 25)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if total != 30 {
		t.Fatalf("total = %d, want 30", total)
	}
	if len(rows) != 25 {
		t.Fatalf("rows = %d, want 25", len(rows))
	}
	for _, row := range rows {
		if row.Category != "Brakes" || row.BrandID != 9 {
			t.Fatalf("row escaped filter: %+v", row)
		}
	}

	_, total, err = s.FilterBrandProducts(ctx, 9, store.ProductFilter{Category: "Brakes", ProductName: "Part 0"}, 0, 25)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if total != 10 {
		t.Fatalf("total = %d, want 10", total)
	}
}

func TestFindProductNotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.FindProduct(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBrandsWithCategory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.UpsertBrandListings(ctx, []models.Brand{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Bravo"}, {ID: 3, Name: "Charlie"}}); err != nil {
		t.Fatalf("brands: %v", err)
	}
	seedProducts(t, s, 1, 4)
	if err := s.UpsertCatalogProducts(ctx, []models.Product{{ID: "X", BrandID: 2, Category: "Exhaust"}}); err != nil {
		t.Fatalf("products: %v", err)
	}

	rows, err := s.BrandsWithCategory(ctx, "brakes")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 || rows[0].ProductCount != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	rows, err = s.BrandsWithCategory(ctx, "Exhaust")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("brands with exhaust = %d, want 2", len(rows))
	}
}

func TestAddFacetsIgnoresKnownValues(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	facets := store.Facets{
		Categories:    []models.BrandCategory{{BrandID: 4, Category: "Brakes", LabelEN: "Brakes", LabelES: "Frenos"}},
		Subcategories: []models.BrandSubcategory{{BrandID: 4, Subcategory: "Kits"}},
		ProductNames:  []models.BrandProductName{{BrandID: 4, ProductName: "Pad"}},
	}
	for i := 0; i < 2; i++ {
		copyOf := store.Facets{
			Categories:    append([]models.BrandCategory(nil), facets.Categories...),
			Subcategories: append([]models.BrandSubcategory(nil), facets.Subcategories...),
			ProductNames:  append([]models.BrandProductName(nil), facets.ProductNames...),
		}
		if err := s.AddFacets(ctx, copyOf); err != nil {
			t.Fatalf("add facets (%d): %v", i, err)
		}
	}

	got, err := s.BrandFacets(ctx, 4)
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if len(got.Categories) != 1 || len(got.Subcategories) != 1 || len(got.ProductNames) != 1 {
		t.Fatalf("unexpected facets %+v", got)
	}
	if got.Categories[0].LabelES != "Frenos" {
		t.Fatalf("label = %q, want Frenos", got.Categories[0].LabelES)
	}
}

func TestSyncLedger(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	last, err := s.LastSync(ctx, models.SyncEntityBrands)
	if err != nil || last != nil {
		t.Fatalf("last = %v, err = %v", last, err)
	}

	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	for _, at := range []time.Time{first, second} {
		if err := s.StampSync(ctx, models.SyncEntityBrands, at); err != nil {
			t.Fatalf("stamp: %v", err)
		}
	}
	last, err = s.LastSync(ctx, models.SyncEntityBrands)
	if err != nil || last == nil || !last.Equal(second) {
		t.Fatalf("last = %v, err = %v", last, err)
	}

	if err := s.DeleteSync(ctx, models.SyncEntityBrands); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last, err = s.LastSync(ctx, models.SyncEntityBrands)
	if err != nil || last != nil {
		t.Fatalf("after delete last = %v, err = %v", last, err)
	}
}

func TestClearBrandCacheLeavesOtherBrands(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, brandID := range []int64{1, 2} {
		if err := s.StampProductPage(ctx, models.ProductPageCache{BrandID: brandID, APIPage: 1, CachedAt: now}); err != nil {
			t.Fatalf("stamp page: %v", err)
		}
		if err := s.StampPricePage(ctx, models.PricePageCache{BrandID: brandID, APIPage: 1, CachedAt: now}); err != nil {
			t.Fatalf("stamp price: %v", err)
		}
		if err := s.StampInventory(ctx, models.InventoryCache{BrandID: brandID, CachedAt: now}); err != nil {
			t.Fatalf("stamp inventory: %v", err)
		}
		if err := s.UpsertInventory(ctx, []models.BrandInventory{{BrandID: brandID, ItemID: "I", TotalStock: 1}}); err != nil {
			t.Fatalf("inventory: %v", err)
		}
	}

	if err := s.ClearBrandCache(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if entry, _ := s.ProductPageEntry(ctx, 1, 1); entry != nil {
		t.Fatalf("brand 1 page entry survived")
	}
	if entry, _ := s.InventoryEntry(ctx, 1); entry != nil {
		t.Fatalf("brand 1 inventory entry survived")
	}
	if entry, _ := s.ProductPageEntry(ctx, 2, 1); entry == nil {
		t.Fatalf("brand 2 page entry was cleared")
	}

	if err := s.ClearAllCache(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	for _, model := range []any{&models.ProductPageCache{}, &models.PricePageCache{}, &models.InventoryCache{}, &models.BrandInventory{}} {
		count, err := s.CountRows(ctx, model)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Fatalf("%T rows = %d, want 0", model, count)
		}
	}
}

func TestCacheTableHealth(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	if err := s.StampPricePage(ctx, models.PricePageCache{BrandID: 1, APIPage: 1, CachedAt: now.Add(-96 * time.Hour)}); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := s.StampPricePage(ctx, models.PricePageCache{BrandID: 1, APIPage: 2, CachedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("stamp: %v", err)
	}

	health, err := s.CacheTableHealth(ctx, &models.PricePageCache{}, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Rows != 2 || health.Stale != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
	if health.Oldest == nil || !health.Oldest.Equal(now.Add(-96*time.Hour)) {
		t.Fatalf("oldest = %v", health.Oldest)
	}
}
