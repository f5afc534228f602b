// Package repository persists the server-side trace of reply turns.
package repository

import (
	"context"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Store is the persistence interface for turn traces.
type Store interface {
	CreateTurn(ctx context.Context, turn *domain.Turn) error
	GetTurn(ctx context.Context, turnID string) (*domain.Turn, error)
	UpdateTurnCompleted(ctx context.Context, turnID string, status domain.TurnStatus, errData []byte) error

	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
