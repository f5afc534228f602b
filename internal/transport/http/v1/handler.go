// Package v1 provides the HTTP handlers of the assistant API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service     *service.Service
	connections ConnectionCounter
	logger      zerolog.Logger
}

// ConnectionCounter reports open streaming connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// WithConnections makes /health report the open WebSocket connections.
func (h *Handler) WithConnections(c ConnectionCounter) *Handler {
	h.connections = c
	return h
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/reply", h.Reply)
	e.POST("/transcribe", h.Transcribe)
	e.POST("/speak", h.Speak)
	e.POST("/search", h.Search)
	e.POST("/searchGuarded", h.SearchGuarded)

	// Trace replay
	e.GET("/turns/:turn_id", h.GetTurn)
	e.GET("/turns/:turn_id/events", h.GetTurnEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status":  "healthy",
		"version": "0.1.0",
	}
	if h.connections != nil {
		body["ws_connections"] = h.connections.ConnectionCount()
	}
	return c.JSON(http.StatusOK, body)
}

// locale resolves the request locale from an explicit value or the
// Accept-Language header.
func locale(c echo.Context, explicit string) domain.Locale {
	return domain.ResolveLocale(explicit, c.Request().Header.Get("Accept-Language"))
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
