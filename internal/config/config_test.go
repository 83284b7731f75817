package config

import (
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Cache.UpstreamPageSize != 100 || cfg.Cache.SitePageSize != 25 {
		t.Fatalf("page sizes = %d/%d, want 100/25", cfg.Cache.UpstreamPageSize, cfg.Cache.SitePageSize)
	}
	if cfg.Cache.ProductPageTTL != 72*time.Hour {
		t.Fatalf("product ttl = %s, want 72h", cfg.Cache.ProductPageTTL)
	}
	if cfg.Cache.InventoryTTL != 48*time.Hour {
		t.Fatalf("inventory ttl = %s, want 48h", cfg.Cache.InventoryTTL)
	}
	if cfg.Sync.MaxConsecutiveFailures != 3 {
		t.Fatalf("max failures = %d, want 3", cfg.Sync.MaxConsecutiveFailures)
	}
	if cfg.Cache.PriceBatchSize != 10 {
		t.Fatalf("price batch = %d, want 10", cfg.Cache.PriceBatchSize)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("SITE_PAGE_SIZE", "20")
	t.Setenv("UPSTREAM_PAGE_SIZE", "100")
	t.Setenv("SYNC_PAGE_DELAY", "250ms")
	t.Setenv("UPSTREAM_CLIENT_ID", "client")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Cache.SitePageSize != 20 {
		t.Fatalf("site page size = %d, want 20", cfg.Cache.SitePageSize)
	}
	if cfg.Sync.PageDelay != 250*time.Millisecond {
		t.Fatalf("page delay = %s, want 250ms", cfg.Sync.PageDelay)
	}
	if cfg.Upstream.ClientID != "client" {
		t.Fatalf("client id = %q, want %q", cfg.Upstream.ClientID, "client")
	}
}

func TestParse_RejectsMisalignedPageSizes(t *testing.T) {
	t.Setenv("SITE_PAGE_SIZE", "30")

	if _, err := Parse(); err == nil {
		t.Fatal("expected error for page sizes that do not divide evenly")
	}
}
