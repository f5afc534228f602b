// Package conversation persists chat history and cached speech per locale.
package conversation

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/kvstore"
)

const (
	historyPrefix = "chat_history:"
	audioPrefix   = "audio:"
)

// HistoryKey returns the history key of a locale.
func HistoryKey(locale domain.Locale) string {
	return historyPrefix + string(locale)
}

// AudioKey returns the cached audio key of a message.
func AudioKey(locale domain.Locale, messageID string) string {
	return audioPrefix + string(locale) + ":" + messageID
}

// Store keeps one conversation per locale.
type Store struct {
	kv kvstore.KV
}

// NewStore creates a store over kv.
func NewStore(kv kvstore.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the persisted conversation. Missing or unreadable history is
// an empty conversation.
func (s *Store) Load(ctx context.Context, locale domain.Locale) ([]domain.Message, error) {
	raw, ok, err := s.kv.Get(ctx, HistoryKey(locale))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []domain.Message{}, nil
	}

	var msgs []domain.Message
	if err := sonic.Unmarshal(raw, &msgs); err != nil {
		return []domain.Message{}, nil
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// Save persists the conversation. An empty list never overwrites.
func (s *Store) Save(ctx context.Context, locale domain.Locale, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	raw, err := sonic.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Set(ctx, HistoryKey(locale), raw); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Clear removes the history and cached audio of a locale.
func (s *Store) Clear(ctx context.Context, locale domain.Locale) error {
	keys, err := s.kv.Keys(ctx, audioPrefix+string(locale)+":")
	if err != nil {
		return fmt.Errorf("failed to list audio cache: %w", err)
	}
	keys = append(keys, HistoryKey(locale))
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Audio returns cached speech for a message.
func (s *Store) Audio(ctx context.Context, locale domain.Locale, messageID string) ([]byte, bool, error) {
	return s.kv.Get(ctx, AudioKey(locale, messageID))
}

// PutAudio caches speech for a message.
func (s *Store) PutAudio(ctx context.Context, locale domain.Locale, messageID string, audio []byte) error {
	return s.kv.Set(ctx, AudioKey(locale, messageID), audio)
}
