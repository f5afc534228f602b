package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetTurn returns a turn trace record.
// GET /turns/:turn_id
func (h *Handler) GetTurn(c echo.Context) error {
	turn, err := h.service.GetTurn(c.Request().Context(), c.Param("turn_id"))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if turn == nil {
		return errorJSON(c, http.StatusNotFound, "turn not found")
	}
	return c.JSON(http.StatusOK, turn)
}

// GetTurnEvents retrieves trace events for a turn.
// GET /turns/:turn_id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetTurnEvents(c echo.Context) error {
	turnID := c.Param("turn_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				types = append(types, s)
			}
		}
	}

	ctx := c.Request().Context()
	turn, err := h.service.GetTurn(ctx, turnID)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if turn == nil {
		return errorJSON(c, http.StatusNotFound, "turn not found")
	}

	events, err := h.service.GetTurnEvents(ctx, turnID, afterTs, types, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"turn":     turn,
		"events":   events,
		"has_more": len(events) == limit,
	})
}
