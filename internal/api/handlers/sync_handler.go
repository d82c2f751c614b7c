package handlers

import (
	"net/http"

	"github.com/gmailish/syncd/internal/api/response"
	"github.com/gmailish/syncd/internal/repository"
	"github.com/gmailish/syncd/internal/sync"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SyncHandler exposes the reconciliation trigger and queue status. The
// external scheduler (connectivity watcher, cron) calls these; the handler
// itself never schedules anything.
type SyncHandler struct {
	reconciler *sync.Reconciler
	pending    repository.PendingOpRepository
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(reconciler *sync.Reconciler, pending repository.PendingOpRepository) *SyncHandler {
	return &SyncHandler{reconciler: reconciler, pending: pending}
}

// Trigger handles POST /api/sync: runs one reconciliation pass and reports
// its outcome tally.
func (h *SyncHandler) Trigger(c echo.Context) error {
	stats, err := h.reconciler.RunPass(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "reconciliation pass failed")
	}
	return response.Success(c, stats)
}

// Queue handles GET /api/queue: reports queue depth per status.
func (h *SyncHandler) Queue(c echo.Context) error {
	counts, err := h.pending.CountByStatus(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to read queue state")
	}
	return response.Success(c, counts)
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
