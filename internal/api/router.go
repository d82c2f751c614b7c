package api

import (
	"log/slog"
	"time"

	"github.com/gmailish/syncd/internal/api/handlers"
	"github.com/gmailish/syncd/internal/repository"
	"github.com/gmailish/syncd/internal/sync"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB         *gorm.DB
	Reconciler *sync.Reconciler
	Logger     *slog.Logger
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	if cfg.Logger != nil {
		e.Use(requestLogger(cfg.Logger))
	}

	pendingRepo := repository.NewPendingOpRepository(cfg.DB)

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	syncHandler := handlers.NewSyncHandler(cfg.Reconciler, pendingRepo)

	e.GET("/health", healthHandler.Health)
	e.POST("/api/sync", syncHandler.Trigger)
	e.GET("/api/queue", syncHandler.Queue)

	return e
}

// requestLogger returns a middleware that logs HTTP requests
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			logger.Info("request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
			)

			return err
		}
	}
}
