package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is matched by errors for upstream 404 responses.
var ErrNotFound = errors.New("upstream resource not found")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s: status %d, body: %s", e.Method, e.Path, e.Status, e.Body)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client performs authenticated requests against the vendor catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	tracer     trace.Tracer
}

// NewClient builds a Client. A nil httpClient gets a 30s timeout default.
func NewClient(baseURL string, creds Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		creds:      creds,
		tracer:     otel.Tracer("github.com/example/partsmirror/internal/upstream"),
	}
}

// ListBrands returns every brand. The brand list is not paginated.
func (c *Client) ListBrands(ctx context.Context) ([]BrandResource, error) {
	var resp struct {
		Data []BrandResource `json:"data"`
	}
	if err := c.get(ctx, "/v1/brands", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetBrand returns the detail of one brand.
func (c *Client) GetBrand(ctx context.Context, brandID int64) (*BrandResource, error) {
	var resp struct {
		Data BrandResource `json:"data"`
	}
	if err := c.get(ctx, "/v1/brands/"+strconv.FormatInt(brandID, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListBrandItems returns one page of a brand's items.
func (c *Client) ListBrandItems(ctx context.Context, brandID int64, page int) (*ItemsPage, error) {
	var resp ItemsPage
	if err := c.get(ctx, "/v1/items/brand/"+strconv.FormatInt(brandID, 10), pageQuery(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListItems returns one page of the full catalog.
func (c *Client) ListItems(ctx context.Context, page int) (*ItemsPage, error) {
	var resp ItemsPage
	if err := c.get(ctx, "/v1/items", pageQuery(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListItemUpdates returns one page of items changed within the last days.
func (c *Client) ListItemUpdates(ctx context.Context, page, days int) (*ItemsPage, error) {
	query := pageQuery(page)
	query.Set("days", strconv.Itoa(days))

	var resp ItemsPage
	if err := c.get(ctx, "/v1/items/updates", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBrandPricing returns one page of a brand's pricing.
func (c *Client) ListBrandPricing(ctx context.Context, brandID int64, page int) (*PricingPage, error) {
	var resp PricingPage
	if err := c.get(ctx, "/v1/pricing/brand/"+strconv.FormatInt(brandID, 10), pageQuery(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetItemPricing returns the pricing of one item.
func (c *Client) GetItemPricing(ctx context.Context, itemID string) (*PricingResource, error) {
	var resp struct {
		Data PricingResource `json:"data"`
	}
	if err := c.get(ctx, "/v1/pricing/"+url.PathEscape(itemID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListBrandInventory returns one page of a brand's inventory.
func (c *Client) ListBrandInventory(ctx context.Context, brandID int64, page int) (*InventoryPage, error) {
	var resp InventoryPage
	if err := c.get(ctx, "/v1/inventory/brand/"+strconv.FormatInt(brandID, 10), pageQuery(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": []string{strconv.Itoa(page)}}
}

// get performs a GET request, retrying once with a fresh credential on 401.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, span := c.tracer.Start(ctx, "upstream GET "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("upstream.path", path))
	if page := query.Get("page"); page != "" {
		span.SetAttributes(attribute.String("upstream.page", page))
	}

	authorization, err := c.creds.AuthorizationHeader(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential")
		return err
	}

	status, body, err := c.do(ctx, path, query, authorization)
	if err == nil && status == http.StatusUnauthorized {
		// Token likely revoked before its advertised expiry; refresh and retry once.
		token, refreshErr := c.creds.RefreshToken(ctx)
		if refreshErr != nil {
			span.RecordError(refreshErr)
			span.SetStatus(codes.Error, "credential")
			return refreshErr
		}
		status, body, err = c.do(ctx, path, query, token.Type+" "+token.Value)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status < 200 || status >= 300 {
		statusErr := &StatusError{Method: http.MethodGet, Path: path, Status: status, Body: truncate(string(body), 512)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, http.StatusText(status))
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode upstream %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values, authorization string) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute upstream %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read upstream %s: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
