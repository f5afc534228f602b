package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

var fujiResults = []domain.WebResult{
	{Title: "Mount Fuji", URL: "https://example.com/fuji", Snippet: "Tallest mountain in Japan"},
	{Title: "Fuji Five Lakes", URL: "https://example.com/lakes"},
}

func TestSearchGuarded(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		verdict   string
		wantShow  bool
		wantCount int
	}{
		{"classifier approves", "Mount Fuji climbing season", `{"shouldShowResults": true}`, true, 2},
		{"classifier declines", "tell me a joke", `{"shouldShowResults": false}`, false, 0},
		{"acknowledgement", "thank you so much!", `{"shouldShowResults": true}`, false, 0},
		{"japanese acknowledgement", "ありがとうございます", `{"shouldShowResults": true}`, false, 0},
		{"verdict wrapped in prose", "best ramen in Sapporo", "Sure: {\"shouldShowResults\": true}", true, 2},
		{"unparseable verdict", "best ramen in Sapporo", "yes", false, 0},
		{"empty query", "   ", `{"shouldShowResults": true}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.llm.Answers[llm.PurposeClassifySearch] = tt.verdict
			f.search.Results = fujiResults

			got := f.svc.SearchGuarded(context.Background(), tt.query, domain.LocaleEnglish)

			require.NotNil(t, got)
			assert.Equal(t, tt.wantShow, got.ShouldShowResults)
			assert.Len(t, got.Results, tt.wantCount)
			assert.NotNil(t, got.Results)
		})
	}
}

func TestSearchGuardedClassifierFailureHides(t *testing.T) {
	f := newFixture(t)
	f.llm.AnswerErrors[llm.PurposeClassifySearch] = errors.New("rate limited")
	f.search.Results = fujiResults

	got := f.svc.SearchGuarded(context.Background(), "Mount Fuji", domain.LocaleEnglish)

	assert.False(t, got.ShouldShowResults)
	assert.Empty(t, got.Results)
	assert.Zero(t, f.search.CallCount())
}

func TestSearchGuardedProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.Answers[llm.PurposeClassifySearch] = `{"shouldShowResults": true}`
	f.search.Err = errors.New("upstream down")

	got := f.svc.SearchGuarded(context.Background(), "Mount Fuji", domain.LocaleEnglish)

	assert.True(t, got.ShouldShowResults)
	assert.Empty(t, got.Results)
	assert.NotNil(t, got.Results)
}

func TestSearchUngated(t *testing.T) {
	f := newFixture(t)
	f.search.Results = fujiResults

	assert.Len(t, f.svc.Search(context.Background(), "thanks", domain.LocaleEnglish), 2)
	assert.Empty(t, f.llm.RequestsFor(llm.PurposeClassifySearch))

	f.search.Err = errors.New("down")
	got := f.svc.Search(context.Background(), "thanks", domain.LocaleEnglish)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseVerdict(t *testing.T) {
	assert.True(t, parseVerdict(`{"shouldShowResults": true}`))
	assert.True(t, parseVerdict("```json\n{\"shouldShowResults\":true}\n```"))
	assert.False(t, parseVerdict(`{"shouldShowResults": false}`))
	assert.False(t, parseVerdict(`{"other": true}`))
	assert.False(t, parseVerdict(`{broken`))
	assert.False(t, parseVerdict(""))
}
