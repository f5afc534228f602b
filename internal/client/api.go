package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Transcribe uploads a recording to POST /transcribe.
func (c *Client) Transcribe(ctx context.Context, clip []byte, filename, contentType string, locale domain.Locale) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := part.Write(clip); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := mw.WriteField("locale", string(locale)); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp domain.TranscribeResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Speech is decoded cloud audio, or a request to fall back to the local
// voice.
type Speech struct {
	Audio    []byte
	Fallback bool
	Reason   string
}

// Speak requests cloud speech from POST /speak.
func (c *Client) Speak(ctx context.Context, text string, locale domain.Locale) (*Speech, error) {
	var resp domain.SpeakResponse
	if err := c.postJSON(ctx, "/speak", domain.SpeakRequest{Text: text, Locale: string(locale)}, &resp); err != nil {
		return nil, err
	}
	if resp.Fallback || resp.AudioContent == "" {
		reason := resp.Error
		if reason == "" {
			reason = "no audio content"
		}
		return &Speech{Fallback: true, Reason: reason}, nil
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return &Speech{Fallback: true, Reason: "invalid audio content"}, nil
	}
	return &Speech{Audio: audio}, nil
}

// Search calls POST /search.
func (c *Client) Search(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error) {
	var resp domain.SearchResponse
	if err := c.postJSON(ctx, "/search", domain.SearchRequest{Query: query, Locale: string(locale)}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchGuarded calls POST /searchGuarded.
func (c *Client) SearchGuarded(ctx context.Context, query string, locale domain.Locale) (*domain.GuardedSearchResponse, error) {
	var resp domain.GuardedSearchResponse
	if err := c.postJSON(ctx, "/searchGuarded", domain.SearchRequest{Query: query, Locale: string(locale)}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
