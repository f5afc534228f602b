package v1

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/infernodragon456/travel-chat-app/internal/audio"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Transcribe converts an uploaded recording to text.
// POST /transcribe (multipart: audio, locale)
func (h *Handler) Transcribe(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "No audio file provided")
	}
	if file.Size > audio.MaxClipBytes {
		return errorJSON(c, http.StatusBadRequest, "recording exceeds 25 MiB")
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to read audio")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, audio.MaxClipBytes+1))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to read audio")
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	loc := locale(c, c.FormValue("locale"))

	text, err := h.service.Transcribe(c.Request().Context(), data, file.Filename, contentType, loc)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, domain.TranscribeResponse{Text: strings.TrimSpace(text)})
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, domain.TranscribeResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotConfigured):
		return c.JSON(http.StatusInternalServerError, domain.TranscribeResponse{Error: "Transcription service not configured"})
	case domain.IsProvider(err):
		return c.JSON(http.StatusBadGateway, domain.TranscribeResponse{Error: "Transcription failed"})
	default:
		return c.JSON(http.StatusInternalServerError, domain.TranscribeResponse{Error: "Transcription failed"})
	}
}

// Speak synthesizes speech for an assistant message.
// POST /speak
func (h *Handler) Speak(c echo.Context) error {
	var req domain.SpeakRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Speak(c.Request().Context(), req.Text, locale(c, req.Locale))
	if err != nil {
		if domain.IsValidation(err) {
			return errorJSON(c, http.StatusBadRequest, "No text provided")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
