package handlers

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/middleware"
	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/utils"
)

// SyncTrigger starts a bulk sync without waiting for it to finish.
type SyncTrigger interface {
	TriggerFullSync(ctx context.Context) (string, error)
	TriggerIncrementalSync(ctx context.Context, days int) (string, error)
}

// AdminHandler exposes operator tools over the cache controllers.
type AdminHandler struct {
	engine  *services.Engine
	trigger SyncTrigger
	log     *slog.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(engine *services.Engine, trigger SyncTrigger, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{engine: engine, trigger: trigger, log: logger}
}

// SyncBrands refreshes the brand list regardless of its weekly gate.
func (h *AdminHandler) SyncBrands(c *fiber.Ctx) error {
	count, err := h.engine.Brands.ForceSync(c.UserContext())
	if err != nil {
		return err
	}
	h.audit(c, "brands synced", "count", count)
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"brands_synced": count}})
}

// RefreshBrand refetches the detail attributes of one brand.
func (h *AdminHandler) RefreshBrand(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	brand, err := h.engine.Brands.ForceRefreshBrandDetails(c.UserContext(), id)
	if err != nil {
		return notFound(err, "brand not found")
	}
	h.audit(c, "brand details refreshed", "brand_id", id)
	return c.JSON(fiber.Map{"success": true, "data": brand})
}

func (h *AdminHandler) ClearBrandCache(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.engine.Admin.ClearBrandCache(c.UserContext(), id); err != nil {
		return err
	}
	h.audit(c, "brand cache cleared", "brand_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ClearAllCache(c *fiber.Ctx) error {
	if err := h.engine.Admin.ClearAllCache(c.UserContext()); err != nil {
		return err
	}
	h.audit(c, "all cache cleared")
	return c.SendStatus(fiber.StatusNoContent)
}

// RefreshInventory refetches every inventory page of a brand.
func (h *AdminHandler) RefreshInventory(c *fiber.Ctx) error {
	id, err := utils.ParseID(c, "id")
	if err != nil {
		return err
	}

	stock, err := h.engine.Inventory.ForceRefreshInventory(c.UserContext(), id)
	if err != nil {
		return err
	}
	h.audit(c, "inventory refreshed", "brand_id", id, "items", len(stock.Items))
	return c.JSON(fiber.Map{"success": true, "data": stock})
}

// StartFullSync queues a full catalog sync.
func (h *AdminHandler) StartFullSync(c *fiber.Ctx) error {
	taskID, err := h.trigger.TriggerFullSync(c.UserContext())
	if err != nil {
		return err
	}
	h.audit(c, "full sync requested", "task_id", taskID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"task_id": taskID, "kind": "full"},
	})
}

// StartIncrementalSync queues an incremental sync; days defaults to 1 and is
// clamped to the vendor window.
func (h *AdminHandler) StartIncrementalSync(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "1"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid days")
	}
	days = services.ClampUpdateDays(days)

	taskID, err := h.trigger.TriggerIncrementalSync(c.UserContext(), days)
	if err != nil {
		return err
	}
	h.audit(c, "incremental sync requested", "task_id", taskID, "days", days)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"task_id": taskID, "kind": "incremental", "days": days},
	})
}

func (h *AdminHandler) CacheHealth(c *fiber.Ctx) error {
	health, err := h.engine.Admin.CacheHealth(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": health})
}

// SyncRuns lists the latest full and incremental runs.
func (h *AdminHandler) SyncRuns(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	runs, err := h.engine.Catalog.RecentRuns(c.UserContext(), pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": runs})
}

func (h *AdminHandler) audit(c *fiber.Ctx, msg string, args ...any) {
	admin, _ := middleware.GetCurrentAdmin(c)
	h.log.Info(msg, append([]any{"admin", admin}, args...)...)
}
