// Package search queries DuckDuckGo and normalizes the hits to web results.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// MaxResults is the number of results kept per query.
const MaxResults = 3

const ddgBase = "https://duckduckgo.com"

// Provider looks up web results for a query.
type Provider interface {
	Search(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error)
}

// Client searches the DuckDuckGo Instant Answer API and falls back to
// scraping the HTML results page when the answer is thin.
type Client struct {
	httpClient *http.Client
	apiURL     string
	htmlURL    string
	userAgent  string
	logger     zerolog.Logger
}

// NewClient creates a new DuckDuckGo client. An empty htmlURL disables the
// HTML fallback.
func NewClient(apiURL, htmlURL, userAgent string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		htmlURL:    htmlURL,
		userAgent:  userAgent,
		logger:     logger.With().Str("provider", "duckduckgo").Logger(),
	}
}

var _ Provider = (*Client)(nil)

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	Abstract      string         `json:"Abstract"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Image         string         `json:"Image"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Icon     *topicIcon     `json:"Icon"`
	Topics   []relatedTopic `json:"Topics"`
}

type topicIcon struct {
	URL string `json:"URL"`
}

// Search returns at most MaxResults normalized results.
// An empty result set is not an error.
func (c *Client) Search(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.WebResult{}, nil
	}

	results, err := c.instant(ctx, query, locale)
	if err != nil {
		return nil, err
	}

	if len(results) < MaxResults && c.htmlURL != "" {
		extra, err := c.html(ctx, query, locale)
		if err != nil {
			c.logger.Warn().Err(err).Msg("html fallback failed")
		}
		results = merge(results, extra)
	}

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

func (c *Client) instant(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	q.Set("kl", region(locale))

	body, err := c.get(ctx, c.apiURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var answer instantAnswer
	if err := sonic.Unmarshal(body, &answer); err != nil {
		return nil, domain.NewProviderError("search", 0, fmt.Errorf("failed to decode response: %w", err))
	}
	return normalizeInstant(&answer), nil
}

func normalizeInstant(a *instantAnswer) []domain.WebResult {
	var results []domain.WebResult

	abstract := a.AbstractText
	if abstract == "" {
		abstract = a.Abstract
	}
	if abstract != "" && a.AbstractURL != "" {
		title := a.Heading
		if title == "" {
			title = abstract
		}
		results = append(results, domain.WebResult{
			Title:   title,
			URL:     a.AbstractURL,
			Snippet: abstract,
			Image:   absoluteURL(a.Image),
		})
	}

	for _, t := range flattenTopics(a.RelatedTopics) {
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(t.Text, " - ")
		r := domain.WebResult{Title: title, URL: t.FirstURL, Snippet: t.Text}
		if t.Icon != nil {
			r.Image = absoluteURL(t.Icon.URL)
		}
		results = append(results, r)
	}
	return results
}

// flattenTopics expands grouped topics into a single list.
func flattenTopics(topics []relatedTopic) []relatedTopic {
	var out []relatedTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c *Client) html(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("kl", region(locale))

	body, err := c.get(ctx, c.htmlURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseHTMLResults(body)
}

func parseHTMLResults(body []byte) ([]domain.WebResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []domain.WebResult
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		title := strings.TrimSpace(link.Text())
		target := resolveRedirect(href)
		if title == "" || target == "" {
			return true
		}
		results = append(results, domain.WebResult{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < MaxResults
	})
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(absoluteURL(href))
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("search", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, domain.NewProviderError("search", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("search", resp.StatusCode, fmt.Errorf("unexpected status"))
	}
	return body, nil
}

func merge(base, extra []domain.WebResult) []domain.WebResult {
	seen := make(map[string]bool, len(base))
	for _, r := range base {
		seen[r.URL] = true
	}
	for _, r := range extra {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		base = append(base, r)
	}
	return base
}

func absoluteURL(u string) string {
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return ddgBase + u
	}
	return u
}

func region(locale domain.Locale) string {
	if locale == domain.LocaleJapanese {
		return "jp-jp"
	}
	return "us-en"
}
