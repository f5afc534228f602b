package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/metrics"
)

// replyTemperature is used for the final, user-facing generation.
const replyTemperature = 0.7

// Emitter receives the events of a reply stream in order.
type Emitter func(evt domain.StreamEvent) error

// ValidateReply checks a reply request before any stream is opened.
func ValidateReply(req *domain.ReplyRequest) error {
	if len(req.Messages) == 0 {
		return domain.NewValidationError("messages", "is required")
	}
	if strings.TrimSpace(req.LastUserContent()) == "" {
		return domain.NewValidationError("messages", "must contain a non-empty user message")
	}
	return nil
}

// GenerateReply runs one turn: enrichment, composition and the streamed
// model call. Every event carries the turn's message id. Search results are
// emitted as a side channel only after the token stream has closed.
func (s *Service) GenerateReply(ctx context.Context, req *domain.ReplyRequest, emit Emitter) error {
	if err := ValidateReply(req); err != nil {
		return err
	}

	turnID := req.MessageID
	if turnID == "" {
		turnID = uuid.New().String()
	}
	locale := domain.ParseLocale(req.Locale)
	userMessage := req.LastUserContent()
	start := time.Now()

	s.startTurn(ctx, turnID, locale, req)

	if err := emit(domain.StreamEvent{Type: domain.StreamEventTurn, Data: &domain.TurnEventData{MessageID: turnID}}); err != nil {
		s.failTurn(ctx, turnID, domain.ErrorCodeInternal, err)
		return err
	}

	enrichment := s.Enrich(ctx, turnID, userMessage, locale)
	directive := s.composer.Compose(locale, &enrichment)

	llmReq := &llm.ChatCompletionRequest{
		Purpose:     llm.PurposeReply,
		Model:       s.config.LLMModel,
		Messages:    s.composer.BuildMessages(directive, req.Messages),
		Temperature: replyTemperature,
	}

	requestID := "llm_" + uuid.New().String()[:8]
	s.trace(ctx, turnID, domain.EventTypeLLMCallStarted, domain.LLMCallStartedPayload{
		RequestID: requestID,
		Model:     llmReq.Model,
		Purpose:   string(llmReq.Purpose),
	})

	llmStart := time.Now()
	chars := 0
	var emitErr error
	usage, err := s.llmClient.CreateChatCompletionStream(ctx, llmReq, func(delta string) error {
		if chars == 0 {
			metrics.FirstTokenLatency.Observe(time.Since(start).Seconds())
		}
		chars += len(delta)
		emitErr = emit(domain.StreamEvent{
			Type: domain.StreamEventDelta,
			Data: &domain.DeltaEventData{MessageID: turnID, Text: delta},
		})
		return emitErr
	})

	done := domain.LLMCallDonePayload{
		RequestID: requestID,
		Model:     llmReq.Model,
		LatencyMs: time.Since(llmStart).Milliseconds(),
		Error:     errString(err),
	}
	if usage != nil {
		done.PromptTokens = usage.PromptTokens
		done.CompletionTokens = usage.CompletionTokens
		done.TotalTokens = usage.TotalTokens
	}
	s.trace(ctx, turnID, domain.EventTypeLLMCallDone, done)

	if err != nil {
		if ctx.Err() != nil {
			s.cancelTurn(ctx, turnID, err)
			return err
		}
		if emitErr != nil && errors.Is(err, emitErr) {
			s.failTurn(ctx, turnID, domain.ErrorCodeInternal, err)
			return err
		}
		metrics.ProviderFailures.WithLabelValues("llm").Inc()
		s.failTurn(ctx, turnID, domain.ErrorCodeUpstream, err)
		_ = emit(domain.StreamEvent{
			Type: domain.StreamEventError,
			Data: &domain.ErrorEventData{MessageID: turnID, Code: domain.ErrorCodeUpstream, Message: "failed to generate a reply"},
		})
		return err
	}

	if enrichment.HasResults() {
		if err := emit(domain.StreamEvent{
			Type: domain.StreamEventSideChannel,
			Data: &domain.SideChannelEventData{MessageID: turnID, WebSearchResults: enrichment.WebResults},
		}); err != nil {
			s.failTurn(ctx, turnID, domain.ErrorCodeInternal, err)
			return err
		}
	}

	doneEvt := &domain.DoneEventData{MessageID: turnID, Usage: &domain.UsageData{DurationMs: int(time.Since(start).Milliseconds())}}
	if usage != nil {
		doneEvt.Usage.PromptTokens = usage.PromptTokens
		doneEvt.Usage.CompletionTokens = usage.CompletionTokens
		doneEvt.Usage.TotalTokens = usage.TotalTokens
	}
	if err := emit(domain.StreamEvent{Type: domain.StreamEventDone, Data: doneEvt}); err != nil {
		s.failTurn(ctx, turnID, domain.ErrorCodeInternal, err)
		return err
	}

	s.completeTurn(ctx, turnID, domain.TurnDonePayload{
		Chars:      chars,
		Results:    len(enrichment.WebResults),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return nil
}

func (s *Service) startTurn(ctx context.Context, turnID string, locale domain.Locale, req *domain.ReplyRequest) {
	err := s.store.CreateTurn(ctx, &domain.Turn{
		TurnID:    turnID,
		Locale:    string(locale),
		Status:    domain.TurnStatusRunning,
		StartedAt: time.Now(),
	})
	if err != nil {
		// A retried message id already has a turn record.
		s.logger.Warn().Err(err).Str("turn_id", turnID).Msg("failed to create turn")
	}
	s.trace(ctx, turnID, domain.EventTypeTurnStarted, domain.TurnStartedPayload{Locale: string(locale), Messages: len(req.Messages)})
	s.trace(ctx, turnID, domain.EventTypeUserInput, domain.UserInputPayload{Content: req.LastUserContent()})
}

func (s *Service) completeTurn(ctx context.Context, turnID string, payload domain.TurnDonePayload) {
	metrics.TurnsTotal.WithLabelValues("done").Inc()
	s.trace(ctx, turnID, domain.EventTypeTurnDone, payload)
	if err := s.store.UpdateTurnCompleted(context.WithoutCancel(ctx), turnID, domain.TurnStatusDone, nil); err != nil {
		s.logger.Warn().Err(err).Str("turn_id", turnID).Msg("failed to complete turn")
	}
}

// cancelTurn records a turn abandoned by its caller. It is neither a
// provider failure nor reported to the gone client.
func (s *Service) cancelTurn(ctx context.Context, turnID string, cause error) {
	metrics.TurnsTotal.WithLabelValues("cancelled").Inc()
	s.trace(ctx, turnID, domain.EventTypeTurnCancelled, domain.TurnFailedPayload{Code: "cancelled", Message: cause.Error()})
	if err := s.store.UpdateTurnCompleted(context.WithoutCancel(ctx), turnID, domain.TurnStatusCancelled, nil); err != nil {
		s.logger.Warn().Err(err).Str("turn_id", turnID).Msg("failed to mark turn cancelled")
	}
	s.logger.Info().Str("turn_id", turnID).Msg("turn cancelled by client")
}

func (s *Service) failTurn(ctx context.Context, turnID, code string, cause error) {
	metrics.TurnsTotal.WithLabelValues("failed").Inc()
	payload := domain.TurnFailedPayload{Code: code, Message: cause.Error()}
	s.trace(ctx, turnID, domain.EventTypeTurnFailed, payload)

	errData, _ := json.Marshal(payload)
	if err := s.store.UpdateTurnCompleted(context.WithoutCancel(ctx), turnID, domain.TurnStatusFailed, errData); err != nil {
		s.logger.Warn().Err(err).Str("turn_id", turnID).Msg("failed to mark turn failed")
	}
	s.logger.Error().Err(cause).Str("turn_id", turnID).Str("code", code).Msg("turn failed")
}
