// Package chat drives one conversation: it submits turns, reconciles the
// reply stream into the message list and persists every change.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/client"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/speech"
	"github.com/infernodragon456/travel-chat-app/internal/transcription"
)

// State is the controller's turn state.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingInput  State = "awaiting_input"
	StateSubmitting     State = "submitting"
	StateStreaming      State = "streaming"
	StateSettledSuccess State = "settled_success"
	StateSettledError   State = "settled_error"
)

// ErrTurnAbandoned is returned by Submit when the turn was discarded by a
// locale switch or a clear before it settled.
var ErrTurnAbandoned = errors.New("turn abandoned")

// ErrMessageIncomplete is returned when speaking a message that is still
// streaming or has no text.
var ErrMessageIncomplete = errors.New("message is not complete")

// Streamer delivers a reply as stream events.
type Streamer interface {
	StreamReply(ctx context.Context, req *domain.ReplyRequest, handler client.EventHandler) error
}

// History persists messages per locale.
type History interface {
	Load(ctx context.Context, locale domain.Locale) ([]domain.Message, error)
	Save(ctx context.Context, locale domain.Locale, msgs []domain.Message) error
	Clear(ctx context.Context, locale domain.Locale) error
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip transcription.Clip, locale domain.Locale) (string, error)
}

// Speaker prepares spoken output for a message.
type Speaker interface {
	Synthesize(ctx context.Context, messageID, text string, locale domain.Locale) (*speech.Playback, error)
}

// Options tune a controller.
type Options struct {
	Locale    domain.Locale
	AutoSpeak bool
	// OnEvent observes every applied stream event.
	OnEvent func(domain.StreamEvent)
	// OnPlayback observes playbacks started by auto-speak.
	OnPlayback func(*speech.Playback)
	NewID      func() string
	Now        func() time.Time
}

// Controller owns the active locale's message list.
type Controller struct {
	streamer    Streamer
	history     History
	transcriber Transcriber
	speaker     Speaker
	opts        Options
	logger      zerolog.Logger

	mu       sync.Mutex
	locale   domain.Locale
	messages []domain.Message
	state    State
	err      error

	turnID     string
	turnCancel context.CancelFunc
	turnFailed error

	playback *speech.Playback
}

// NewController creates a controller. transcriber and speaker may be nil.
func NewController(streamer Streamer, history History, transcriber Transcriber, speaker Speaker, opts Options, logger zerolog.Logger) *Controller {
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !opts.Locale.Valid() {
		opts.Locale = domain.DefaultLocale
	}
	return &Controller{
		streamer:    streamer,
		history:     history,
		transcriber: transcriber,
		speaker:     speaker,
		opts:        opts,
		logger:      logger.With().Str("component", "chat").Logger(),
		locale:      opts.Locale,
		messages:    []domain.Message{},
		state:       StateIdle,
	}
}

// Open loads the saved history for the current locale.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, err := c.history.Load(ctx, c.locale)
	if err != nil {
		return err
	}
	c.messages = msgs
	c.state = StateAwaitingInput
	return nil
}

// Submit sends text as a new user turn and blocks until it settles. It
// returns the assistant message id. Blank input is ignored.
func (c *Controller) Submit(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	c.mu.Lock()
	if c.inFlightLocked() {
		c.mu.Unlock()
		return "", domain.ErrTurnInFlight
	}

	now := c.opts.Now()
	id := c.opts.NewID()
	c.messages = append(c.messages,
		domain.Message{ID: c.opts.NewID(), Role: domain.RoleUser, Content: text, CreatedAt: now},
	)
	req := &domain.ReplyRequest{
		Messages:  historyOf(c.messages),
		Locale:    string(c.locale),
		MessageID: id,
	}
	c.messages = append(c.messages,
		domain.Message{ID: id, Role: domain.RoleAssistant, CreatedAt: now},
	)

	turnCtx, cancel := context.WithCancel(ctx)
	c.turnID = id
	c.turnCancel = cancel
	c.turnFailed = nil
	c.err = nil
	c.state = StateSubmitting
	c.saveLocked(ctx)
	c.mu.Unlock()

	c.logger.Debug().Str("message_id", id).Msg("turn submitted")
	err := c.streamer.StreamReply(turnCtx, req, c.handler(id))
	return id, c.settle(ctx, id, err)
}

// SubmitAudio transcribes clip and submits the text. Transcription errors
// are returned without starting a turn.
func (c *Controller) SubmitAudio(ctx context.Context, clip transcription.Clip) (string, error) {
	if c.transcriber == nil {
		return "", domain.ErrTranscriptionUnavailable
	}
	c.mu.Lock()
	if c.inFlightLocked() {
		c.mu.Unlock()
		return "", domain.ErrTurnInFlight
	}
	locale := c.locale
	c.mu.Unlock()

	text, err := c.transcriber.Transcribe(ctx, clip, locale)
	if err != nil {
		return "", err
	}
	return c.Submit(ctx, text)
}

func (c *Controller) handler(id string) client.EventHandler {
	return func(evt domain.StreamEvent) error {
		applied := c.apply(id, evt)
		if applied && c.opts.OnEvent != nil {
			c.opts.OnEvent(evt)
		}
		return nil
	}
}

// apply reconciles one event. Events for any id other than the active
// turn's are dropped.
func (c *Controller) apply(id string, evt domain.StreamEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	got := domain.MessageIDOf(evt.Data)
	if c.turnID != id || got != id {
		err := &domain.StateError{Expected: c.turnID, Got: got}
		c.logger.Debug().Err(err).Str("event", string(evt.Type)).Msg("dropping stale event")
		return false
	}

	if c.state == StateSubmitting {
		c.state = StateStreaming
	}

	ctx := context.Background()
	switch d := evt.Data.(type) {
	case *domain.DeltaEventData:
		if m := c.findLocked(id); m != nil && d.Text != "" {
			m.Content += d.Text
			c.saveLocked(ctx)
		}
	case *domain.SideChannelEventData:
		if m := c.findLocked(id); m != nil && len(d.WebSearchResults) > 0 {
			m.SideChannel = &domain.SideChannel{WebSearchResults: d.WebSearchResults}
			c.saveLocked(ctx)
		}
	case *domain.ErrorEventData:
		c.turnFailed = domain.NewProviderError("reply", 0, errors.New(d.Message))
	}
	return true
}

// settle moves the turn to a terminal state unless it was abandoned.
func (c *Controller) settle(ctx context.Context, id string, streamErr error) error {
	c.mu.Lock()
	if c.turnID != id {
		c.mu.Unlock()
		return ErrTurnAbandoned
	}
	if c.turnCancel != nil {
		c.turnCancel()
	}
	c.turnID = ""
	c.turnCancel = nil

	err := streamErr
	if err == nil {
		err = c.turnFailed
	}
	c.turnFailed = nil

	var speakText string
	if err != nil {
		c.state = StateSettledError
		c.err = err
		if m := c.findLocked(id); m != nil && m.Content == "" {
			m.Content = failureText(c.locale)
		}
		c.saveLocked(ctx)
		c.logger.Warn().Err(err).Str("message_id", id).Msg("turn failed")
	} else {
		c.state = StateSettledSuccess
		if m := c.findLocked(id); m != nil {
			speakText = m.Content
		}
	}
	autoSpeak := c.opts.AutoSpeak && err == nil && speakText != ""
	c.mu.Unlock()

	if autoSpeak {
		pb, serr := c.Speak(ctx, id)
		if serr != nil {
			c.logger.Warn().Err(serr).Str("message_id", id).Msg("auto-speak failed")
		} else if c.opts.OnPlayback != nil {
			c.opts.OnPlayback(pb)
		}
	}
	return err
}

// Speak starts spoken output for a finished message and replaces any
// playback already running.
func (c *Controller) Speak(ctx context.Context, messageID string) (*speech.Playback, error) {
	if c.speaker == nil {
		return nil, speech.ErrNoVoice
	}
	c.mu.Lock()
	m := c.findLocked(messageID)
	if m == nil {
		c.mu.Unlock()
		return nil, domain.NewValidationError("message", "not found")
	}
	if messageID == c.turnID || strings.TrimSpace(m.Content) == "" {
		c.mu.Unlock()
		return nil, ErrMessageIncomplete
	}
	text, locale := m.Content, c.locale
	c.mu.Unlock()

	pb, err := c.speaker.Synthesize(ctx, messageID, text, locale)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	prev := c.playback
	c.playback = pb
	c.mu.Unlock()
	if prev != nil {
		_ = prev.Cancel()
	}
	if err := pb.Start(ctx); err != nil {
		return nil, err
	}
	return pb, nil
}

// StopSpeaking cancels the current playback, if any.
func (c *Controller) StopSpeaking() {
	c.mu.Lock()
	pb := c.playback
	c.playback = nil
	c.mu.Unlock()
	if pb != nil {
		_ = pb.Cancel()
	}
}

// SwitchLocale abandons any running turn and loads the history saved for
// locale. A locale with no history yields an empty list.
func (c *Controller) SwitchLocale(ctx context.Context, locale domain.Locale) error {
	if !locale.Valid() {
		return domain.NewValidationError("locale", "unsupported")
	}
	c.StopSpeaking()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
	msgs, err := c.history.Load(ctx, locale)
	if err != nil {
		return err
	}
	c.locale = locale
	c.messages = msgs
	c.state = StateAwaitingInput
	c.err = nil
	return nil
}

// Clear abandons any running turn and removes the locale's history and
// cached audio.
func (c *Controller) Clear(ctx context.Context) error {
	c.StopSpeaking()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
	if err := c.history.Clear(ctx, c.locale); err != nil {
		return err
	}
	c.messages = []domain.Message{}
	c.state = StateAwaitingInput
	c.err = nil
	return nil
}

// Close abandons any running turn and stops playback.
func (c *Controller) Close() {
	c.StopSpeaking()
	c.mu.Lock()
	c.abandonLocked()
	c.mu.Unlock()
}

func (c *Controller) abandonLocked() {
	if c.turnCancel != nil {
		c.turnCancel()
	}
	if c.turnID != "" {
		c.logger.Debug().Str("message_id", c.turnID).Msg("turn abandoned")
	}
	c.turnID = ""
	c.turnCancel = nil
	c.turnFailed = nil
}

func (c *Controller) inFlightLocked() bool {
	return c.state == StateSubmitting || c.state == StateStreaming
}

func (c *Controller) findLocked(id string) *domain.Message {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return &c.messages[i]
		}
	}
	return nil
}

func (c *Controller) saveLocked(ctx context.Context) {
	if err := c.history.Save(ctx, c.locale, c.messages); err != nil {
		c.logger.Warn().Err(err).Str("locale", string(c.locale)).Msg("failed to save history")
	}
}

// Messages returns a copy of the active message list.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.messages...)
}

// State returns the current turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Locale returns the active locale.
func (c *Controller) Locale() domain.Locale {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locale
}

// InputEnabled reports whether a new turn can be submitted.
func (c *Controller) InputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlightLocked()
}

// Err returns the failure of the last settled turn.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// historyOf converts messages to the reply wire shape. Empty entries are
// skipped.
func historyOf(msgs []domain.Message) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == domain.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func failureText(locale domain.Locale) string {
	if locale == domain.LocaleJapanese {
		return "申し訳ありません。エラーが発生しました。もう一度お試しください。"
	}
	return "Sorry, something went wrong. Please try again."
}
