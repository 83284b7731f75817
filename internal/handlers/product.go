package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/utils"
)

// maxLookupIDs caps one price lookup request.
const maxLookupIDs = 200

// ProductHandler serves brand products, prices and inventory through the cache controllers.
type ProductHandler struct {
	products  *services.ProductCache
	prices    *services.PriceCache
	inventory *services.InventoryCache
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(products *services.ProductCache, prices *services.PriceCache, inventory *services.InventoryCache) *ProductHandler {
	return &ProductHandler{products: products, prices: prices, inventory: inventory}
}

// ListBrandProducts returns one site page of a brand. Any filter query
// switches to a read over the mirrored rows only.
func (h *ProductHandler) ListBrandProducts(c *fiber.Ctx) error {
	brandID, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}
	page := utils.ParsePage(c)

	filter := store.ProductFilter{
		Category:    strings.TrimSpace(c.Query("category")),
		Subcategory: strings.TrimSpace(c.Query("subcategory")),
		ProductName: strings.TrimSpace(c.Query("product_name")),
	}

	var result *services.ProductPage
	if filter.Active() {
		result, err = h.products.GetFilteredBrandProducts(c.UserContext(), brandID, filter, page)
	} else {
		result, err = h.products.GetBrandProducts(c.UserContext(), brandID, page)
	}
	if err != nil {
		return err
	}

	pagination := fiber.Map{
		"current_page":   result.Page,
		"items_per_page": result.PageSize,
		"total_items":    result.TotalProducts,
		"total_pages":    result.TotalPages,
	}
	if filter.Active() {
		pagination["matched_items"] = result.Matched
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result.Products,
		"pagination": pagination,
		"from_cache": result.FromCache,
	})
}

// ListBrandPrices returns one upstream pricing page of a brand.
func (h *ProductHandler) ListBrandPrices(c *fiber.Ctx) error {
	brandID, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.prices.GetBrandPricePage(c.UserContext(), brandID, utils.ParsePage(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.Prices,
		"pagination": fiber.Map{
			"current_page": result.APIPage,
			"total_pages":  result.TotalPages,
		},
		"from_cache": result.FromCache,
	})
}

type priceLookupRequest struct {
	IDs []string `json:"ids"`
}

// LookupPrices returns prices keyed by product id. Ids the vendor does not
// price are left out of the result.
func (h *ProductHandler) LookupPrices(c *fiber.Ctx) error {
	var req priceLookupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "ids are required")
	}
	if len(ids) > maxLookupIDs {
		return fiber.NewError(fiber.StatusBadRequest, "too many ids")
	}

	prices, err := h.prices.GetPricesForProducts(c.UserContext(), ids)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": prices})
}

// BrandInventory returns the stock of every item of a brand.
func (h *ProductHandler) BrandInventory(c *fiber.Ctx) error {
	brandID, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	stock, err := h.inventory.GetBrandInventory(c.UserContext(), brandID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stock})
}
