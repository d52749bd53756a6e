package adventure

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/models"
)

// Handler handles HTTP requests for adventures.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new adventure handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the adventure endpoints on g, which must already be
// behind the JWT middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateAdventure)
	g.GET("/stats", h.GetStats)
	g.GET("/user/:userId", h.ListUserAdventures)
	g.GET("/:id", h.GetAdventure)
	g.DELETE("/:id", h.DeleteAdventure)
	g.PATCH("/:id/status", h.UpdateStatus)
}

func currentUser(c echo.Context) string {
	userID, _ := c.Get("userID").(string)
	return userID
}

// errorResponse maps service errors onto HTTP statuses.
func errorResponse(c echo.Context, op string, err error, fallback string) error {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: vErr.Error()})
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Adventure not found"})
	case errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
	case errors.Is(err, models.ErrInvalidStatusTransition):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error()})
	}
	logging.Error().Err(err).Str("op", op).Msg("adventure request failed")
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: fallback + ": " + err.Error()})
}

func (h *Handler) CreateAdventure(c echo.Context) error {
	userID := currentUser(c)

	var req models.CreateAdventureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = userID
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}
	if req.UserID != userID {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Cannot create adventures for another user"})
	}

	adv, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, "Handler.CreateAdventure", err, "Failed to create adventure")
	}
	return c.JSON(http.StatusCreated, adv)
}

func (h *Handler) GetAdventure(c echo.Context) error {
	adv, err := h.svc.FindOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, "Handler.GetAdventure", err, "Failed to retrieve adventure")
	}
	// Other users' adventures look like missing ones.
	if adv.UserID != currentUser(c) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Adventure not found"})
	}
	return c.JSON(http.StatusOK, adv)
}

func (h *Handler) ListUserAdventures(c echo.Context) error {
	userID := c.Param("userId")
	if userID != currentUser(c) {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
	}

	adventures, err := h.svc.FindByUser(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, "Handler.ListUserAdventures", err, "Failed to retrieve adventures")
	}
	return c.JSON(http.StatusOK, adventures)
}

func (h *Handler) DeleteAdventure(c echo.Context) error {
	ctx := c.Request().Context()
	adventureID := c.Param("id")

	adv, err := h.svc.FindOne(ctx, adventureID)
	if err != nil {
		return errorResponse(c, "Handler.DeleteAdventure", err, "Failed to delete adventure")
	}
	if adv.UserID != currentUser(c) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Adventure not found"})
	}

	if err := h.svc.Remove(ctx, adventureID); err != nil {
		return errorResponse(c, "Handler.DeleteAdventure", err, "Failed to delete adventure")
	}
	return c.JSON(http.StatusOK, models.DeleteAdventureResponse{
		Message:            "Adventure deleted successfully",
		DeletedAdventureID: adventureID,
	})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	adventureID := c.Param("id")

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	adv, err := h.svc.FindOne(ctx, adventureID)
	if err != nil {
		return errorResponse(c, "Handler.UpdateStatus", err, "Failed to update adventure status")
	}
	if adv.UserID != currentUser(c) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Adventure not found"})
	}

	updated, err := h.svc.UpdateStatus(ctx, adventureID, req)
	if err != nil {
		return errorResponse(c, "Handler.UpdateStatus", err, "Failed to update adventure status")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) GetStats(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		userID = currentUser(c)
	}
	if userID != currentUser(c) {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
	}

	stats, err := h.svc.GetStats(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, "Handler.GetStats", err, "Failed to retrieve stats")
	}
	return c.JSON(http.StatusOK, stats)
}
