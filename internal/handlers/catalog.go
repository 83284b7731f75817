package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/utils"
)

// CatalogHandler serves brands and the filter facets derived from their products.
type CatalogHandler struct {
	brands *services.BrandCache
	store  *store.Store
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(brands *services.BrandCache, st *store.Store) *CatalogHandler {
	return &CatalogHandler{brands: brands, store: st}
}

// ListBrands returns every mirrored brand.
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	brands, err := h.brands.ListBrands(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brands})
}

// GetBrand returns a brand with its detail attributes, fetching them on first view.
func (h *CatalogHandler) GetBrand(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	brand, err := h.brands.GetBrandByID(c.UserContext(), id)
	if err != nil {
		return notFound(err, "brand not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": brand})
}

func (h *CatalogHandler) GetBrandBySlug(c *fiber.Ctx) error {
	slug := strings.ToLower(strings.TrimSpace(c.Params("slug")))
	if slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid slug")
	}

	brand, err := h.brands.GetBrandBySlug(c.UserContext(), slug)
	if err != nil {
		return notFound(err, "brand not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": brand})
}

// BrandFacets returns the categories, subcategories and product names of a brand.
func (h *CatalogHandler) BrandFacets(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	facets, err := h.store.BrandFacets(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": facets})
}

// CategoryBrands lists the brands carrying products in a category.
func (h *CatalogHandler) CategoryBrands(c *fiber.Ctx) error {
	category := strings.TrimSpace(c.Params("name"))
	if category == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category")
	}

	brands, err := h.store.BrandsWithCategory(c.UserContext(), category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brands})
}
