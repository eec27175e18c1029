package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/observability"
	"github.com/spec-kit/service-desk/internal/service"
)

// SweepRunner runs one bounded, lease-guarded breach sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (service.SweepReport, bool, error)
}

// CatalogInvalidator reloads the configuration snapshot everywhere.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, reason string) (*catalog.Snapshot, error)
}

// OperationsHandler exposes manual sweeps, catalog reloads and engine counters.
type OperationsHandler struct {
	sweeper SweepRunner
	catalog CatalogInvalidator
	metrics *observability.Metrics
}

// NewOperationsHandler constructs handler.
func NewOperationsHandler(sweeper SweepRunner, invalidator CatalogInvalidator, metrics *observability.Metrics) *OperationsHandler {
	return &OperationsHandler{sweeper: sweeper, catalog: invalidator, metrics: metrics}
}

// RunSweep POST /sweeps.
func (h *OperationsHandler) RunSweep(c *fiber.Ctx) error {
	report, ran, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		return err
	}
	if !ran {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": fiber.Map{
			"code":    "SWEEP_IN_PROGRESS",
			"message": "another instance holds the sweep lease",
		}})
	}
	return c.JSON(fiber.Map{"data": report})
}

// ReloadCatalog POST /catalog/reload.
func (h *OperationsHandler) ReloadCatalog(c *fiber.Ctx) error {
	snapshot, err := h.catalog.Invalidate(c.UserContext(), "api")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"version":   snapshot.Version(),
		"loaded_at": snapshot.LoadedAt(),
		"counts":    snapshot.Counts(),
	}})
}

// Metrics GET /metrics.
func (h *OperationsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
