package service

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/metrics"
	"github.com/infernodragon456/travel-chat-app/internal/policy"
)

// Search runs an ungated web search. Provider failures yield no results.
func (s *Service) Search(ctx context.Context, query string, locale domain.Locale) []domain.WebResult {
	results, err := s.search.Search(ctx, query, locale)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("search").Inc()
		s.logger.Warn().Err(err).Msg("web search failed")
		return []domain.WebResult{}
	}
	if results == nil {
		results = []domain.WebResult{}
	}
	return results
}

// SearchGuarded classifies the query first and only searches when the
// search policy allows showing results.
func (s *Service) SearchGuarded(ctx context.Context, query string, locale domain.Locale) *domain.GuardedSearchResponse {
	out := s.guardedSearch(ctx, "", query, locale)
	results := out.results
	if results == nil {
		results = []domain.WebResult{}
	}
	return &domain.GuardedSearchResponse{ShouldShowResults: out.show, Results: results}
}

func (s *Service) guardedSearch(ctx context.Context, turnID, message string, locale domain.Locale) searchOutcome {
	start := time.Now()
	outcome := "hidden"
	defer func() {
		metrics.EnrichmentDuration.WithLabelValues("search", outcome).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(message) == "" {
		return searchOutcome{}
	}

	classified, classifyErr := s.classifySearch(ctx, message, locale)
	if classifyErr != nil {
		s.degrade(ctx, "classify_search", classifyErr)
	}

	decision := policy.DecisionHide
	if s.policyEngine != nil {
		var err error
		decision, err = s.policyEngine.Evaluate(ctx, policy.NewInput(message, string(locale), classified))
		if err != nil {
			s.logger.Warn().Err(err).Msg("search policy evaluation failed")
			decision = policy.DecisionHide
		}
	} else if classified {
		decision = policy.DecisionShow
	}
	metrics.SearchDecisions.WithLabelValues(decision).Inc()
	s.trace(ctx, turnID, domain.EventTypeSearchDecision, domain.SearchDecisionPayload{
		Classified: classified,
		Decision:   decision,
		Error:      errString(classifyErr),
	})

	if decision != policy.DecisionShow {
		return searchOutcome{}
	}

	results, err := s.search.Search(ctx, message, locale)
	s.trace(ctx, turnID, domain.EventTypeSearchResults, domain.SearchResultsPayload{Count: len(results), Error: errString(err)})
	if err != nil {
		outcome = s.degrade(ctx, "search", err)
		return searchOutcome{show: true}
	}
	outcome = "shown"
	return searchOutcome{show: true, results: results}
}

type classifierVerdict struct {
	ShouldShowResults *bool `json:"shouldShowResults"`
}

// classifySearch asks the fast model whether the message warrants web
// results. Unparseable answers count as false.
func (s *Service) classifySearch(ctx context.Context, message string, locale domain.Locale) (bool, error) {
	text, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Purpose: llm.PurposeClassifySearch,
		Model:   s.config.LLMFastModel,
		Messages: []llm.Message{
			{Role: "system", Content: s.composer.ClassifySearchInstruction(locale)},
			{Role: "user", Content: message},
		},
		Temperature: 0,
		MaxTokens:   32,
	})
	if err != nil {
		return false, err
	}
	return parseVerdict(text), nil
}

// parseVerdict extracts the first JSON object from the model output.
func parseVerdict(text string) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	var v classifierVerdict
	if err := sonic.UnmarshalString(text[start:end+1], &v); err != nil {
		return false
	}
	return v.ShouldShowResults != nil && *v.ShouldShowResults
}
