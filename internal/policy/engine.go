// Package policy decides whether web search results may be shown, using OPA.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the search policy.
const (
	DecisionShow = "show"
	DecisionHide = "hide"
)

// Input is the document evaluated by the search policy.
type Input struct {
	Message    string `json:"message"`
	Normalized string `json:"normalized"`
	Locale     string `json:"locale"`
	Classified bool   `json:"classified"`
}

// NewInput builds a policy input from a raw user message.
func NewInput(message, locale string, classified bool) Input {
	return Input{
		Message:    message,
		Normalized: Normalize(message),
		Locale:     locale,
		Classified: classified,
	}
}

// Normalize lowercases a message and strips surrounding punctuation so
// acknowledgements like "Thanks!" match the policy list.
func Normalize(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	return strings.Trim(s, " \t\r\n.!?,。！？、〜~")
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.search_policy.decision"),
		rego.Module("search_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the search display decision. Anything other than an
// explicit "show" is treated as hide.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return DecisionHide, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionHide, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok && s == DecisionShow {
		return DecisionShow, nil
	}
	return DecisionHide, nil
}

// DefaultPolicy is the default search display policy.
const DefaultPolicy = `
package search_policy

import rego.v1

default decision := "hide"

acknowledgements := {
	"thanks", "thank you", "thank you so much", "thanks so much", "thanks a lot",
	"many thanks", "thx", "ty", "ok", "okay", "k", "cool", "great",
	"nice", "got it", "sounds good", "perfect", "awesome", "bye", "goodbye",
	"yes", "no", "sure",
	"ありがとう", "ありがとうございます", "どうも", "了解", "わかった",
	"わかりました", "はい", "いいえ", "うん", "オッケー", "さようなら",
}

decision := "show" if {
	input.classified
	not is_acknowledgement
	count(trim_space(input.normalized)) > 0
}

is_acknowledgement if {
	acknowledgements[input.normalized]
}
`
