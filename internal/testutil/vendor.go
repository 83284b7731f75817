package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/partsmirror/internal/upstream"
)

// FakeVendor is an in-process stand-in for the distributor catalog API. It
// counts every request by path and by path+page.
type FakeVendor struct {
	Server *httptest.Server

	mu             sync.Mutex
	calls          map[string]int
	failures       map[string]int
	tokenStatus    int
	tokenExpiresIn int
	tokensIssued   int

	Brands         []upstream.BrandResource
	BrandDetails   map[int64]upstream.BrandResource
	BrandItems     map[int64][][]upstream.ItemResource
	Items          [][]upstream.ItemResource
	Updates        [][]upstream.ItemResource
	BrandPricing   map[int64][][]upstream.PricingResource
	ItemPricing    map[string]upstream.PricingResource
	BrandInventory map[int64][][]upstream.InventoryResource
}

// NewFakeVendor starts a fake vendor API that is closed when the test ends.
func NewFakeVendor(t *testing.T) *FakeVendor {
	t.Helper()

	f := &FakeVendor{
		calls:          map[string]int{},
		failures:       map[string]int{},
		tokenStatus:    http.StatusOK,
		tokenExpiresIn: 3600,
		BrandDetails:   map[int64]upstream.BrandResource{},
		BrandItems:     map[int64][][]upstream.ItemResource{},
		BrandPricing:   map[int64][][]upstream.PricingResource{},
		ItemPricing:    map[string]upstream.PricingResource{},
		BrandInventory: map[int64][][]upstream.InventoryResource{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns an upstream client authenticated against the fake token endpoint.
func (f *FakeVendor) Client() *upstream.Client {
	tokens := upstream.NewTokenProvider(f.Server.URL+"/v1/token", "client", "secret", f.Server.Client())
	return upstream.NewClient(f.Server.URL, tokens, f.Server.Client())
}

// Calls returns how many requests hit the key, either a bare path or "path?page=N".
func (f *FakeVendor) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// CallsWithPrefix sums the bare-path counters starting with prefix.
func (f *FakeVendor) CallsWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for key, n := range f.calls {
		if strings.HasPrefix(key, prefix) && !strings.Contains(key, "?") {
			total += n
		}
	}
	return total
}

// TokensIssued returns how many tokens the token endpoint handed out.
func (f *FakeVendor) TokensIssued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokensIssued
}

// Fail makes requests to key (bare path or "path?page=N") answer with status.
func (f *FakeVendor) Fail(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = status
}

// Recover clears a failure registered with Fail.
func (f *FakeVendor) Recover(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, key)
}

// Update mutates the vendor data while no request is being served.
func (f *FakeVendor) Update(fn func(f *FakeVendor)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// SetTokenResponse controls the token endpoint status and token lifetime.
func (f *FakeVendor) SetTokenResponse(status, expiresIn int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
	f.tokenExpiresIn = expiresIn
}

func (f *FakeVendor) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	pageKey := fmt.Sprintf("%s?page=%d", path, page)
	f.calls[path]++
	f.calls[pageKey]++

	if path == "/v1/token" {
		f.serveToken(w, r)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer"})
		return
	}
	if status, ok := f.failures[pageKey]; ok {
		writeJSON(w, status, map[string]string{"error": "forced failure"})
		return
	}
	if status, ok := f.failures[path]; ok {
		writeJSON(w, status, map[string]string{"error": "forced failure"})
		return
	}

	switch {
	case path == "/v1/brands":
		writeJSON(w, http.StatusOK, map[string]any{"data": f.Brands})
	case strings.HasPrefix(path, "/v1/brands/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/v1/brands/"), 10, 64)
		brand, ok := f.BrandDetails[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "brand not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": brand})
	case strings.HasPrefix(path, "/v1/items/brand/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/v1/items/brand/"), 10, 64)
		writePage(w, f.BrandItems[id], page)
	case path == "/v1/items/updates":
		writePage(w, f.Updates, page)
	case path == "/v1/items":
		writePage(w, f.Items, page)
	case strings.HasPrefix(path, "/v1/pricing/brand/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/v1/pricing/brand/"), 10, 64)
		writePage(w, f.BrandPricing[id], page)
	case strings.HasPrefix(path, "/v1/pricing/"):
		price, ok := f.ItemPricing[strings.TrimPrefix(path, "/v1/pricing/")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": price})
	case strings.HasPrefix(path, "/v1/inventory/brand/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/v1/inventory/brand/"), 10, 64)
		writePage(w, f.BrandInventory[id], page)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown path"})
	}
}

func (f *FakeVendor) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if f.tokenStatus != http.StatusOK {
		writeJSON(w, f.tokenStatus, map[string]string{"error": "invalid_client"})
		return
	}
	f.tokensIssued++
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("token-%d", f.tokensIssued),
		"token_type":   "Bearer",
		"expires_in":   f.tokenExpiresIn,
	})
}

func writePage[T any](w http.ResponseWriter, pages [][]T, page int) {
	data := []T{}
	if page >= 1 && page <= len(pages) {
		data = pages[page-1]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]int{"total_pages": len(pages)},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// MakeItems builds n items of a brand with ids "<prefix>-<i>" cycling through two categories.
func MakeItems(brandID int64, prefix string, n int) []upstream.ItemResource {
	categories := []string{"Brakes", "Exhaust"}
	items := make([]upstream.ItemResource, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, upstream.ItemResource{
			ID:   fmt.Sprintf("%s-%04d", prefix, i),
			Type: "Item",
			Attributes: upstream.ItemAttributes{
				ProductName:   fmt.Sprintf("Part %d", i%3),
				PartNumber:    fmt.Sprintf("PN%04d", i),
				MfrPartNumber: fmt.Sprintf("MFR-%04d", i),
				Category:      categories[i%len(categories)],
				Subcategory:   "Kits",
				BrandID:       brandID,
				Brand:         fmt.Sprintf("Brand %d", brandID),
				Active:        true,
				RegularStock:  true,
				Dimensions:    []upstream.ItemDimension{{BoxNumber: 1, Length: 10, Width: 5, Height: 2, Weight: 1.5}},
			},
		})
	}
	return items
}

// MakePricing builds pricing for the given items with MAP and Retail pricelists.
func MakePricing(items []upstream.ItemResource) []upstream.PricingResource {
	out := make([]upstream.PricingResource, 0, len(items))
	for i, item := range items {
		out = append(out, upstream.PricingResource{
			ID:   item.ID,
			Type: "PricingItem",
			Attributes: upstream.PricingAttributes{
				PurchaseCost: decimal.NewFromInt(int64(10 + i)),
				HasMap:       true,
				CanPurchase:  true,
				Pricelists: []upstream.PriceList{
					{Name: "MAP", Price: decimal.NewFromInt(int64(15 + i))},
					{Name: "Retail", Price: decimal.NewFromInt(int64(20 + i))},
				},
			},
		})
	}
	return out
}

// Paginate splits items into pages of size.
func Paginate[T any](items []T, size int) [][]T {
	var pages [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, items[start:end])
	}
	return pages
}
