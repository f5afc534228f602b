package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/client"
	"github.com/infernodragon456/travel-chat-app/internal/conversation"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/kvstore"
	"github.com/infernodragon456/travel-chat-app/internal/speech"
	"github.com/infernodragon456/travel-chat-app/internal/transcription"
)

type streamFunc func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error

func (f streamFunc) StreamReply(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
	return f(ctx, req, h)
}

// replyWith streams the given chunks for the request's message id.
func replyWith(results []domain.WebResult, chunks ...string) streamFunc {
	return func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		id := req.MessageID
		_ = h(domain.StreamEvent{Type: domain.StreamEventTurn, Data: &domain.TurnEventData{MessageID: id}})
		for _, c := range chunks {
			_ = h(domain.StreamEvent{Type: domain.StreamEventDelta, Data: &domain.DeltaEventData{MessageID: id, Text: c}})
		}
		if len(results) > 0 {
			_ = h(domain.StreamEvent{Type: domain.StreamEventSideChannel, Data: &domain.SideChannelEventData{MessageID: id, WebSearchResults: results}})
		}
		return h(domain.StreamEvent{Type: domain.StreamEventDone, Data: &domain.DoneEventData{MessageID: id}})
	}
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

func fixedNow() time.Time {
	return time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
}

func newController(t *testing.T, s Streamer, opts Options) (*Controller, *conversation.Store) {
	t.Helper()
	store := conversation.NewStore(kvstore.NewMemory())
	if opts.NewID == nil {
		opts.NewID = sequentialIDs()
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	c := NewController(s, store, nil, nil, opts, zerolog.Nop())
	require.NoError(t, c.Open(context.Background()))
	return c, store
}

func TestSubmitCreatesOneAssistantMessage(t *testing.T) {
	ctx := context.Background()
	c, store := newController(t, replyWith(nil, "Hello", " there"), Options{})

	id, err := c.Submit(ctx, "  hi  ")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, id, msgs[1].ID)
	assert.Equal(t, "Hello there", msgs[1].Content)
	assert.Equal(t, StateSettledSuccess, c.State())
	assert.True(t, c.InputEnabled())

	saved, err := store.Load(ctx, domain.LocaleEnglish)
	require.NoError(t, err)
	assert.Equal(t, msgs, saved)
}

func TestBlankInputIgnored(t *testing.T) {
	var calls int
	c, _ := newController(t, streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		calls++
		return nil
	}), Options{})

	id, err := c.Submit(context.Background(), " \n\t")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Zero(t, calls)
	assert.Empty(t, c.Messages())
}

func TestRequestCarriesHistoryAndPregeneratedID(t *testing.T) {
	var got *domain.ReplyRequest
	c, _ := newController(t, streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		got = req
		return replyWith(nil, "ok")(ctx, req, h)
	}), Options{Locale: domain.LocaleJapanese})

	_, err := c.Submit(context.Background(), "first")
	require.NoError(t, err)
	id, err := c.Submit(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, id, got.MessageID)
	assert.Equal(t, "ja", got.Locale)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "ok"},
		{Role: domain.RoleUser, Content: "second"},
	}, got.Messages)
}

func TestSideChannelAttachesByID(t *testing.T) {
	results := []domain.WebResult{{Title: "Kinkaku-ji", URL: "https://example.com/k"}}
	c, _ := newController(t, replyWith(results, "Golden pavilion."), Options{})

	first, err := c.Submit(context.Background(), "temples in Kyoto?")
	require.NoError(t, err)

	c.streamer = replyWith(nil, "You're welcome!")
	second, err := c.Submit(context.Background(), "thanks!")
	require.NoError(t, err)

	for _, m := range c.Messages() {
		switch m.ID {
		case first:
			require.NotNil(t, m.SideChannel)
			assert.Equal(t, results, m.SideChannel.WebSearchResults)
		case second:
			assert.Nil(t, m.SideChannel)
		default:
			assert.Nil(t, m.SideChannel)
		}
	}
}

func TestStaleEventsDropped(t *testing.T) {
	c, _ := newController(t, streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		_ = h(domain.StreamEvent{Type: domain.StreamEventDelta, Data: &domain.DeltaEventData{MessageID: "other", Text: "WRONG"}})
		_ = h(domain.StreamEvent{Type: domain.StreamEventSideChannel, Data: &domain.SideChannelEventData{MessageID: "other", WebSearchResults: []domain.WebResult{{Title: "x"}}}})
		return replyWith(nil, "right")(ctx, req, h)
	}), Options{})

	_, err := c.Submit(context.Background(), "hi")
	require.NoError(t, err)

	msgs := c.Messages()
	assert.Equal(t, "right", msgs[1].Content)
	assert.Nil(t, msgs[1].SideChannel)
}

func TestConcurrentSubmitRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c, _ := newController(t, streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		_ = h(domain.StreamEvent{Type: domain.StreamEventTurn, Data: &domain.TurnEventData{MessageID: req.MessageID}})
		close(started)
		<-release
		return replyWith(nil, "done")(ctx, req, h)
	}), Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Submit(context.Background(), "first")
		assert.NoError(t, err)
	}()

	<-started
	assert.Equal(t, StateStreaming, c.State())
	assert.False(t, c.InputEnabled())

	_, err := c.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, domain.ErrTurnInFlight)

	close(release)
	wg.Wait()
	assert.Len(t, c.Messages(), 2)
	assert.Equal(t, StateSettledSuccess, c.State())
}

func TestStreamFailureSettlesWithError(t *testing.T) {
	tests := []struct {
		name   string
		stream streamFunc
	}{
		{"transport error", func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
			return domain.NewProviderError("server", 0, errors.New("connection refused"))
		}},
		{"error event", func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
			return h(domain.StreamEvent{Type: domain.StreamEventError, Data: &domain.ErrorEventData{
				MessageID: req.MessageID, Code: domain.ErrorCodeUpstream, Message: "model unavailable",
			}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newController(t, tt.stream, Options{})

			_, err := c.Submit(context.Background(), "hi")
			assert.Error(t, err)
			assert.Equal(t, StateSettledError, c.State())
			assert.Error(t, c.Err())
			assert.True(t, c.InputEnabled())

			msgs := c.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, failureText(domain.LocaleEnglish), msgs[1].Content)
		})
	}
}

func TestLocaleSwitchRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t, replyWith(nil, "reply"), Options{})

	_, err := c.Submit(ctx, "one")
	require.NoError(t, err)
	c.streamer = streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		return nil
	})
	_, err = c.Submit(ctx, "two")
	require.NoError(t, err)
	english := c.Messages()
	require.Len(t, english, 4)

	require.NoError(t, c.SwitchLocale(ctx, domain.LocaleJapanese))
	assert.Empty(t, c.Messages())
	assert.Equal(t, domain.LocaleJapanese, c.Locale())

	require.NoError(t, c.SwitchLocale(ctx, domain.LocaleEnglish))
	assert.Equal(t, english, c.Messages())

	assert.True(t, domain.IsValidation(c.SwitchLocale(ctx, domain.Locale("fr"))))
}

func TestSwitchLocaleAbandonsTurn(t *testing.T) {
	started := make(chan struct{})
	c, store := newController(t, streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		close(started)
		<-ctx.Done()
		_ = h(domain.StreamEvent{Type: domain.StreamEventDelta, Data: &domain.DeltaEventData{MessageID: req.MessageID, Text: "late"}})
		return ctx.Err()
	}), Options{})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "hello")
		errc <- err
	}()
	<-started

	require.NoError(t, c.SwitchLocale(context.Background(), domain.LocaleJapanese))
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrTurnAbandoned)
	case <-time.After(time.Second):
		t.Fatal("abandoned turn did not return")
	}

	assert.Empty(t, c.Messages())
	assert.True(t, c.InputEnabled())

	saved, err := store.Load(context.Background(), domain.LocaleEnglish)
	require.NoError(t, err)
	for _, m := range saved {
		assert.NotContains(t, m.Content, "late")
	}
}

func TestClearRemovesHistoryAndAudio(t *testing.T) {
	ctx := context.Background()
	c, store := newController(t, replyWith(nil, "reply"), Options{})
	id, err := c.Submit(ctx, "hi")
	require.NoError(t, err)
	require.NoError(t, store.PutAudio(ctx, domain.LocaleEnglish, id, []byte("mp3")))

	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Messages())

	saved, err := store.Load(ctx, domain.LocaleEnglish)
	require.NoError(t, err)
	assert.Empty(t, saved)
	_, ok, err := store.Audio(ctx, domain.LocaleEnglish, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip transcription.Clip, locale domain.Locale) (string, error) {
	return f.text, f.err
}

func TestSubmitAudio(t *testing.T) {
	store := conversation.NewStore(kvstore.NewMemory())
	c := NewController(replyWith(nil, "Sure."), store, &fakeTranscriber{text: "what's the weather in Osaka"}, nil, Options{NewID: sequentialIDs()}, zerolog.Nop())
	require.NoError(t, c.Open(context.Background()))

	_, err := c.SubmitAudio(context.Background(), transcription.Clip{Data: []byte("wav")})
	require.NoError(t, err)
	assert.Equal(t, "what's the weather in Osaka", c.Messages()[0].Content)

	c.transcriber = &fakeTranscriber{err: domain.ErrTranscriptionUnavailable}
	_, err = c.SubmitAudio(context.Background(), transcription.Clip{Data: []byte("wav")})
	assert.ErrorIs(t, err, domain.ErrTranscriptionUnavailable)
	assert.Len(t, c.Messages(), 2)
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSpeaker) Synthesize(ctx context.Context, messageID, text string, locale domain.Locale) (*speech.Playback, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return speech.NewAdapter(nil, nil, nil, silentVoice{}, zerolog.Nop()).Synthesize(ctx, messageID, text, locale)
}

type silentVoice struct{}

func (silentVoice) Say(ctx context.Context, text string, locale domain.Locale) error { return nil }

func TestAutoSpeakAfterSuccess(t *testing.T) {
	spk := &fakeSpeaker{}
	var played *speech.Playback
	store := conversation.NewStore(kvstore.NewMemory())
	c := NewController(replyWith(nil, "Hello!"), store, nil, spk, Options{
		AutoSpeak:  true,
		NewID:      sequentialIDs(),
		OnPlayback: func(pb *speech.Playback) { played = pb },
	}, zerolog.Nop())
	require.NoError(t, c.Open(context.Background()))

	id, err := c.Submit(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello!"}, spk.texts)
	require.NotNil(t, played)
	assert.Equal(t, id, played.MessageID())
	assert.Equal(t, speech.SourceLocal, played.Source())
}

func TestSpeakRefusesIncompleteMessage(t *testing.T) {
	started := make(chan string)
	release := make(chan struct{})
	spk := &fakeSpeaker{}
	store := conversation.NewStore(kvstore.NewMemory())
	c := NewController(streamFunc(func(ctx context.Context, req *domain.ReplyRequest, h client.EventHandler) error {
		_ = h(domain.StreamEvent{Type: domain.StreamEventDelta, Data: &domain.DeltaEventData{MessageID: req.MessageID, Text: "partial"}})
		started <- req.MessageID
		<-release
		return nil
	}), store, nil, spk, Options{NewID: sequentialIDs()}, zerolog.Nop())
	require.NoError(t, c.Open(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Submit(context.Background(), "hi")
	}()
	id := <-started

	_, err := c.Speak(context.Background(), id)
	assert.ErrorIs(t, err, ErrMessageIncomplete)

	close(release)
	<-done
	pb, err := c.Speak(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, pb.MessageID())

	_, err = c.Speak(context.Background(), "missing")
	assert.True(t, domain.IsValidation(err))
}
