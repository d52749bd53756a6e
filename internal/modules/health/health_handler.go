package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/syonosuke743/portfolio/internal/logging"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response is the body of both probes.
type Response struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Handler serves liveness and readiness probes.
type Handler struct {
	db      Pinger
	timeout time.Duration
}

// NewHandler creates a new health handler.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db, timeout: 2 * time.Second}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Liveness)
	e.GET("/readyz", h.Readiness)
}

// Liveness reports that the process is serving.
func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: "ok"})
}

// Readiness additionally checks database connectivity.
func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("readiness check failed")
		return c.JSON(http.StatusServiceUnavailable, Response{
			Status:  "degraded",
			Details: map[string]string{"db": err.Error()},
		})
	}
	return c.JSON(http.StatusOK, Response{
		Status:  "ready",
		Details: map[string]string{"db": "ok"},
	})
}
