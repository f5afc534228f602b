package v1

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/service"
)

// Reply streams a reply turn as Server-Sent Events.
// POST /reply
func (h *Handler) Reply(c echo.Context) error {
	var req domain.ReplyRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if err := service.ValidateReply(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	req.Locale = string(locale(c, req.Locale))

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, "streaming not supported")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.service.GenerateReply(c.Request().Context(), &req, func(evt domain.StreamEvent) error {
		data, err := sonic.Marshal(evt.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", evt.Type, err)
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Status is already sent; the error event carries the failure.
		h.logger.Warn().Err(err).Str("message_id", req.MessageID).Msg("reply stream ended with error")
	}
	return nil
}
