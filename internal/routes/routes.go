package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/handlers"
	"github.com/example/partsmirror/internal/middleware"
	"github.com/example/partsmirror/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, engine *services.Engine, trigger handlers.SyncTrigger, logger *slog.Logger) {
	authHandler := handlers.NewAuthHandler(cfg)
	catalogHandler := handlers.NewCatalogHandler(engine.Brands, engine.Store)
	productHandler := handlers.NewProductHandler(engine.Products, engine.Prices, engine.Inventory)
	adminHandler := handlers.NewAdminHandler(engine, trigger, logger)

	api := app.Group("/api")

	// Storefront reads
	brands := api.Group("/brands")
	brands.Get("/", catalogHandler.ListBrands)
	brands.Get("/slug/:slug", catalogHandler.GetBrandBySlug)
	brands.Get("/:id", catalogHandler.GetBrand)
	brands.Get("/:id/facets", catalogHandler.BrandFacets)
	brands.Get("/:id/products", productHandler.ListBrandProducts)
	brands.Get("/:id/prices", productHandler.ListBrandPrices)
	brands.Get("/:id/inventory", productHandler.BrandInventory)

	api.Get("/categories/:name/brands", catalogHandler.CategoryBrands)
	api.Post("/prices/lookup", productHandler.LookupPrices)

	// Admin
	api.Post("/admin/login", authHandler.Login)

	admin := api.Group("/admin", middleware.AuthMiddleware(cfg))
	admin.Post("/brands/sync", adminHandler.SyncBrands)
	admin.Post("/brands/:id/refresh", adminHandler.RefreshBrand)
	admin.Delete("/cache/brands/:id", adminHandler.ClearBrandCache)
	admin.Delete("/cache", adminHandler.ClearAllCache)
	admin.Get("/cache/health", adminHandler.CacheHealth)
	admin.Post("/inventory/:id/refresh", adminHandler.RefreshInventory)
	admin.Post("/sync/full", adminHandler.StartFullSync)
	admin.Post("/sync/updates", adminHandler.StartIncrementalSync)
	admin.Get("/sync/runs", adminHandler.SyncRuns)
}
