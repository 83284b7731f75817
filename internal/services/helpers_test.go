package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/testutil"
	"github.com/example/partsmirror/internal/upstream"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var cacheCfg = config.Cache{
	UpstreamPageSize: 100,
	SitePageSize:     25,
	ProductPageTTL:   72 * time.Hour,
	PricePageTTL:     72 * time.Hour,
	InventoryTTL:     48 * time.Hour,
	BrandSyncTTL:     7 * 24 * time.Hour,
	PriceBatchSize:   10,
}

var syncCfg = config.Sync{
	FullInterval:           7 * 24 * time.Hour,
	MaxConsecutiveFailures: 3,
	UpdateDays:             1,
}

type harness struct {
	vendor *testutil.FakeVendor
	store  *store.Store
	clock  *fakeClock
	deps   services.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	vendor := testutil.NewFakeVendor(t)
	st := store.New(testutil.NewDB(t))
	clock := newClock()
	return &harness{
		vendor: vendor,
		store:  st,
		clock:  clock,
		deps: services.Deps{
			Store:  st,
			Vendor: vendor.Client(),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:    clock.Now,
		},
	}
}

func brandResource(id, name string) upstream.BrandResource {
	return upstream.BrandResource{
		ID:   id,
		Type: "Brand",
		Attributes: upstream.BrandAttributes{
			Name:     name,
			Dropship: true,
			Logo:     "https://cdn.example.com/" + id + ".png",
			AAIA:     []string{"BDKX"},
			PriceGroups: []upstream.PriceGroupItem{{
				ID:     10,
				Name:   name + " Standard",
				Prefix: "STD",
				PurchaseRestrictions: []upstream.PurchaseRestriction{{
					Program: "E-COMMERCE", Clearance: "N",
				}},
				LocationRules: []upstream.LocationRule{{Location: "01", Fee: 4.5}},
			}},
		},
	}
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
