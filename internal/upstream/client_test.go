package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/example/partsmirror/internal/testutil"
	"github.com/example/partsmirror/internal/upstream"
)

func TestClient_ListBrandItemsReadsPageMetadata(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	vendor.BrandItems[7] = testutil.Paginate(testutil.MakeItems(7, "B7", 250), 100)

	client := vendor.Client()
	page, err := client.ListBrandItems(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if page.Meta.TotalPages != 3 {
		t.Fatalf("total pages = %d, want 3", page.Meta.TotalPages)
	}
	if len(page.Data) != 50 {
		t.Fatalf("items on page 3 = %d, want 50", len(page.Data))
	}
	if page.Data[0].Attributes.BrandID != 7 {
		t.Fatalf("brand id = %d, want 7", page.Data[0].Attributes.BrandID)
	}
	if vendor.Calls("/v1/items/brand/7?page=3") != 1 {
		t.Fatalf("expected one call for page 3")
	}
}

func TestClient_ReusesTokenAcrossRequests(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	client := vendor.Client()

	for i := 0; i < 3; i++ {
		if _, err := client.ListBrands(context.Background()); err != nil {
			t.Fatalf("list brands: %v", err)
		}
	}
	if got := vendor.TokensIssued(); got != 1 {
		t.Fatalf("tokens issued = %d, want 1", got)
	}
}

func TestClient_RefreshesTokenInsideBuffer(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	// Two minutes of lifetime is already inside the five minute refresh buffer.
	vendor.SetTokenResponse(http.StatusOK, 120)
	client := vendor.Client()

	for i := 0; i < 2; i++ {
		if _, err := client.ListBrands(context.Background()); err != nil {
			t.Fatalf("list brands: %v", err)
		}
	}
	if got := vendor.TokensIssued(); got != 2 {
		t.Fatalf("tokens issued = %d, want 2", got)
	}
}

func TestClient_CredentialFailureIsFatal(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	vendor.SetTokenResponse(http.StatusUnauthorized, 0)

	_, err := vendor.Client().ListBrands(context.Background())
	if !errors.Is(err, upstream.ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	if vendor.Calls("/v1/brands") != 0 {
		t.Fatalf("catalog endpoint should not be called without a credential")
	}
}

func TestClient_NotFoundIsTyped(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)

	_, err := vendor.Client().GetBrand(context.Background(), 404)
	if !errors.Is(err, upstream.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusNotFound {
		t.Fatalf("expected StatusError with 404, got %v", err)
	}
}

func TestClient_ServerErrorCarriesPath(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	vendor.Fail("/v1/items", http.StatusBadGateway)

	_, err := vendor.Client().ListItems(context.Background(), 1)
	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Path != "/v1/items" || statusErr.Status != http.StatusBadGateway {
		t.Fatalf("status error = %+v", statusErr)
	}
	if errors.Is(err, upstream.ErrNotFound) {
		t.Fatal("502 must not match ErrNotFound")
	}
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	client := vendor.Client()
	if _, err := client.ListBrands(context.Background()); err != nil {
		t.Fatalf("warm up: %v", err)
	}

	vendor.Fail("/v1/brands", http.StatusUnauthorized)
	_, err := client.ListBrands(context.Background())
	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after retry, got %v", err)
	}
	if got := vendor.TokensIssued(); got != 2 {
		t.Fatalf("tokens issued = %d, want 2 (one forced refresh)", got)
	}
	if got := vendor.Calls("/v1/brands"); got != 3 {
		t.Fatalf("brand calls = %d, want 3", got)
	}
}
