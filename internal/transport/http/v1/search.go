package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Search runs an ungated web search.
// POST /search
func (h *Handler) Search(c echo.Context) error {
	var req domain.SearchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return errorJSON(c, http.StatusBadRequest, "Query is required")
	}

	results := h.service.Search(c.Request().Context(), req.Query, locale(c, req.Locale))
	return c.JSON(http.StatusOK, domain.SearchResponse{Results: results})
}

// SearchGuarded runs a web search only when the classifier and search
// policy agree that results help. A missing query is not an error.
// POST /searchGuarded
func (h *Handler) SearchGuarded(c echo.Context) error {
	var req domain.SearchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	resp := h.service.SearchGuarded(c.Request().Context(), req.Query, locale(c, req.Locale))
	return c.JSON(http.StatusOK, resp)
}
