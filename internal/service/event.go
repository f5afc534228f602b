package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, turnID string, eventType domain.EventType, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		TurnID:  turnID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// trace records an event for a turn and only logs failures. Standalone
// calls without a turn are not traced.
func (s *Service) trace(ctx context.Context, turnID string, eventType domain.EventType, payload any) {
	if turnID == "" {
		return
	}
	// Tracing must outlive an expired enrichment budget.
	ctx = context.WithoutCancel(ctx)
	if err := s.recordEvent(ctx, turnID, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("turn_id", turnID).Str("type", string(eventType)).Msg("failed to record event")
	}
}

// GetTurn returns a turn trace record.
func (s *Service) GetTurn(ctx context.Context, turnID string) (*domain.Turn, error) {
	return s.store.GetTurn(ctx, turnID)
}

// GetTurnEvents returns the trace events of a turn.
func (s *Service) GetTurnEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	return s.store.GetEvents(ctx, turnID, afterTs, types, limit)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
