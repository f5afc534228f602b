package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

const instantJSON = `{
  "Heading": "Mount Fuji",
  "AbstractText": "Mount Fuji is the highest mountain in Japan.",
  "AbstractURL": "https://en.wikipedia.org/wiki/Mount_Fuji",
  "Image": "/i/fuji.png",
  "RelatedTopics": [
    {"Text": "Fujiyoshida - A city at the foot of the mountain", "FirstURL": "https://duckduckgo.com/Fujiyoshida"},
    {"Name": "Places", "Topics": [
      {"Text": "Lake Kawaguchi - One of the Fuji Five Lakes", "FirstURL": "https://duckduckgo.com/Lake_Kawaguchi"},
      {"Text": "Hakone - Hot spring town", "FirstURL": "https://duckduckgo.com/Hakone"}
    ]}
  ]
}`

const resultsHTML = `<html><body>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Ffuji">Fuji guide</a>
<a class="result__snippet">Everything about climbing.</a></div>
<div class="result"><a class="result__a" href="https://example.org/weather">Fuji weather</a>
<a class="result__snippet">Forecast for the summit.</a></div>
</body></html>`

func TestSearchInstantAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "jp-jp", r.URL.Query().Get("kl"))
		fmt.Fprint(w, instantJSON)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "ua", time.Second, zerolog.Nop())
	results, err := c.Search(context.Background(), "Mount Fuji", domain.LocaleJapanese)
	require.NoError(t, err)
	require.Len(t, results, MaxResults)

	assert.Equal(t, "Mount Fuji", results[0].Title)
	assert.Equal(t, "https://duckduckgo.com/i/fuji.png", results[0].Image)
	assert.Equal(t, "Fujiyoshida", results[1].Title)
	assert.Equal(t, "Lake Kawaguchi", results[2].Title)
}

func TestSearchHTMLFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Heading":"","RelatedTopics":[]}`)
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fuji", r.URL.Query().Get("q"))
		fmt.Fprint(w, resultsHTML)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL+"/api", server.URL+"/html", "ua", time.Second, zerolog.Nop())
	results, err := c.Search(context.Background(), "fuji", domain.LocaleEnglish)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com/fuji", results[0].URL)
	assert.Equal(t, "Everything about climbing.", results[0].Snippet)
	assert.Equal(t, "https://example.org/weather", results[1].URL)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "", "ua", time.Second, zerolog.Nop())
	results, err := c.Search(context.Background(), "   ", domain.LocaleEnglish)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "ua", time.Second, zerolog.Nop())
	_, err := c.Search(context.Background(), "fuji", domain.LocaleEnglish)
	assert.True(t, domain.IsProvider(err))
}
