package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/handlers"
	"github.com/example/partsmirror/internal/routes"
	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/testutil"
	"github.com/example/partsmirror/internal/utils"
)

type fakeTrigger struct {
	mu   sync.Mutex
	full int
	days []int
}

func (f *fakeTrigger) TriggerFullSync(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full++
	return "task-full", nil
}

func (f *fakeTrigger) TriggerIncrementalSync(_ context.Context, days int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, days)
	return "task-updates", nil
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination map[string]int  `json:"pagination"`
	Error      string          `json:"error"`
	Token      string          `json:"token"`
}

type testApp struct {
	app     *fiber.App
	vendor  *testutil.FakeVendor
	trigger *fakeTrigger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	hash, err := utils.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		TokenExpires:      time.Hour,
		AdminUsername:     "ops",
		AdminPasswordHash: hash,
		Cache: config.Cache{
			UpstreamPageSize: 100,
			SitePageSize:     25,
			ProductPageTTL:   72 * time.Hour,
			PricePageTTL:     72 * time.Hour,
			InventoryTTL:     48 * time.Hour,
			BrandSyncTTL:     7 * 24 * time.Hour,
			PriceBatchSize:   10,
		},
		Sync: config.Sync{FullInterval: 7 * 24 * time.Hour, MaxConsecutiveFailures: 3, UpdateDays: 1},
	}

	vendor := testutil.NewFakeVendor(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := services.NewEngine(services.Deps{
		Store:  store.New(testutil.NewDB(t)),
		Vendor: vendor.Client(),
		Logger: logger,
	}, cfg.Cache, cfg.Sync, nil)

	trigger := &fakeTrigger{}
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Register(app, cfg, engine, trigger, logger)
	return &testApp{app: app, vendor: vendor, trigger: trigger}
}

func (a *testApp) do(t *testing.T, method, path, body, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	status, env := a.do(t, "POST", "/api/admin/login", `{"username":"ops","password":"hunter2"}`, "")
	if status != fiber.StatusOK || env.Token == "" {
		t.Fatalf("login status = %d, body = %+v", status, env)
	}
	return env.Token
}

func TestListBrandProducts(t *testing.T) {
	a := newTestApp(t)
	a.vendor.BrandItems[5] = testutil.Paginate(testutil.MakeItems(5, "B5", 237), 100)

	status, env := a.do(t, "GET", "/api/brands/5/products?page=4", "", "")
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("status = %d, body = %+v", status, env)
	}
	var products []map[string]any
	if err := json.Unmarshal(env.Data, &products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products) != 25 || products[0]["id"] != "B5-0075" {
		t.Fatalf("got %d products, first %v", len(products), products[0]["id"])
	}
	if env.Pagination["current_page"] != 4 || env.Pagination["total_pages"] != 12 {
		t.Fatalf("pagination = %v", env.Pagination)
	}

	status, env = a.do(t, "GET", "/api/brands/5/products?page=1&category=Brakes", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("filtered status = %d", status)
	}
	if env.Pagination["matched_items"] != 50 {
		t.Fatalf("matched = %v, want 50", env.Pagination)
	}

	status, env = a.do(t, "GET", "/api/categories/brakes/brands", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("category brands status = %d", status)
	}
	var brands []store.BrandSummary
	if err := json.Unmarshal(env.Data, &brands); err != nil {
		t.Fatalf("decode brands: %v", err)
	}
	// The brand row itself is only created by the brand sync.
	if len(brands) != 0 {
		t.Fatalf("brands = %+v", brands)
	}
}

func TestErrorsUseEnvelope(t *testing.T) {
	a := newTestApp(t)

	status, env := a.do(t, "GET", "/api/brands/404", "", "")
	if status != fiber.StatusNotFound || env.Success || env.Error != "brand not found" {
		t.Fatalf("status = %d, body = %+v", status, env)
	}

	status, env = a.do(t, "GET", "/api/brands/abc", "", "")
	if status != fiber.StatusBadRequest || env.Error != "invalid id" {
		t.Fatalf("status = %d, body = %+v", status, env)
	}

	a.vendor.Fail("/v1/items/brand/7", 503)
	status, env = a.do(t, "GET", "/api/brands/7/products", "", "")
	if status != fiber.StatusBadGateway || env.Success {
		t.Fatalf("status = %d, body = %+v", status, env)
	}

	status, _ = a.do(t, "POST", "/api/prices/lookup", `{"ids":[" "]}`, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("empty lookup status = %d", status)
	}
}

func TestLookupPrices(t *testing.T) {
	a := newTestApp(t)
	items := testutil.MakeItems(5, "B5", 2)
	for _, price := range testutil.MakePricing(items) {
		a.vendor.ItemPricing[price.ID] = price
	}

	status, env := a.do(t, "POST", "/api/prices/lookup", `{"ids":["B5-0000","B5-0001","MISSING"]}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body = %+v", status, env)
	}
	var prices map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &prices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("prices = %d, want 2", len(prices))
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	if status, _ := a.do(t, "GET", "/api/admin/cache/health", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("status without token = %d", status)
	}
	if status, _ := a.do(t, "GET", "/api/admin/cache/health", "", "garbage"); status != fiber.StatusUnauthorized {
		t.Fatalf("status with bad token = %d", status)
	}
	if status, _ := a.do(t, "POST", "/api/admin/login", `{"username":"ops","password":"wrong"}`, ""); status != fiber.StatusUnauthorized {
		t.Fatalf("bad password status = %d", status)
	}

	token := a.login(t)
	status, env := a.do(t, "GET", "/api/admin/cache/health", "", token)
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("health status = %d, body = %+v", status, env)
	}
}

func TestAdminSyncTriggers(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)

	status, _ := a.do(t, "POST", "/api/admin/sync/full", "", token)
	if status != fiber.StatusAccepted {
		t.Fatalf("full status = %d", status)
	}
	status, env := a.do(t, "POST", "/api/admin/sync/updates?days=40", "", token)
	if status != fiber.StatusAccepted {
		t.Fatalf("updates status = %d", status)
	}
	var data struct {
		Days int `json:"days"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Days != 15 {
		t.Fatalf("days = %d, err = %v", data.Days, err)
	}
	if status, _ := a.do(t, "POST", "/api/admin/sync/updates?days=x", "", token); status != fiber.StatusBadRequest {
		t.Fatalf("bad days status = %d", status)
	}

	a.trigger.mu.Lock()
	defer a.trigger.mu.Unlock()
	if a.trigger.full != 1 || len(a.trigger.days) != 1 || a.trigger.days[0] != 15 {
		t.Fatalf("trigger calls: full %d days %v", a.trigger.full, a.trigger.days)
	}
}

func TestAdminCacheClear(t *testing.T) {
	a := newTestApp(t)
	a.vendor.BrandItems[5] = testutil.Paginate(testutil.MakeItems(5, "B5", 30), 100)
	token := a.login(t)

	if status, _ := a.do(t, "GET", "/api/brands/5/products", "", ""); status != fiber.StatusOK {
		t.Fatalf("prime status = %d", status)
	}
	if status, _ := a.do(t, "DELETE", "/api/admin/cache/brands/5", "", token); status != fiber.StatusNoContent {
		t.Fatalf("clear status = %d", status)
	}
	if status, _ := a.do(t, "GET", "/api/brands/5/products", "", ""); status != fiber.StatusOK {
		t.Fatalf("refill status = %d", status)
	}
	if calls := a.vendor.Calls("/v1/items/brand/5?page=1"); calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", calls)
	}
	if status, _ := a.do(t, "DELETE", "/api/admin/cache", "", token); status != fiber.StatusNoContent {
		t.Fatalf("clear all status = %d", status)
	}
}
