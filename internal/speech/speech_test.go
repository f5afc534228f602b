package speech

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/client"
	"github.com/infernodragon456/travel-chat-app/internal/conversation"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/kvstore"
)

type fakeCloud struct {
	speech *client.Speech
	err    error
	calls  int
}

func (f *fakeCloud) Speak(ctx context.Context, text string, locale domain.Locale) (*client.Speech, error) {
	f.calls++
	return f.speech, f.err
}

// blockingSink plays until cancelled or finish is closed.
type blockingSink struct {
	mu     sync.Mutex
	plays  []PlayOptions
	finish chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{finish: make(chan struct{})}
}

func (s *blockingSink) Play(ctx context.Context, audio []byte, opts PlayOptions) error {
	s.mu.Lock()
	s.plays = append(s.plays, opts)
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.finish:
		return nil
	}
}

func (s *blockingSink) runs() []PlayOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlayOptions(nil), s.plays...)
}

type fakeVoice struct {
	mu    sync.Mutex
	said  []string
	block bool
}

func (v *fakeVoice) Say(ctx context.Context, text string, locale domain.Locale) error {
	v.mu.Lock()
	v.said = append(v.said, string(locale)+":"+text)
	v.mu.Unlock()
	if v.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func newCache() *conversation.Store {
	return conversation.NewStore(kvstore.NewMemory())
}

func TestSynthesizeCachesCloudAudio(t *testing.T) {
	ctx := context.Background()
	cache := newCache()
	cloud := &fakeCloud{speech: &client.Speech{Audio: []byte("ID3mp3")}}
	a := NewAdapter(cloud, cache, newBlockingSink(), &fakeVoice{}, zerolog.Nop())

	pb, err := a.Synthesize(ctx, "m1", "こんにちは", domain.LocaleJapanese)
	require.NoError(t, err)
	assert.Equal(t, SourceCloud, pb.Source())
	assert.Equal(t, []byte("ID3mp3"), pb.Audio())

	stored, ok, err := cache.Audio(ctx, domain.LocaleJapanese, "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("ID3mp3"), stored)

	pb, err = a.Synthesize(ctx, "m1", "こんにちは", domain.LocaleJapanese)
	require.NoError(t, err)
	assert.Equal(t, SourceCloud, pb.Source())
	assert.Equal(t, 1, cloud.calls, "second request served from cache")
}

func TestSynthesizeFallsBackToLocalVoice(t *testing.T) {
	tests := []struct {
		name  string
		cloud *fakeCloud
	}{
		{"fallback flag", &fakeCloud{speech: &client.Speech{Fallback: true, Reason: "TTS service not configured"}}},
		{"empty audio", &fakeCloud{speech: &client.Speech{}}},
		{"transport error", &fakeCloud{err: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newCache()
			a := NewAdapter(tt.cloud, cache, newBlockingSink(), &fakeVoice{}, zerolog.Nop())

			pb, err := a.Synthesize(context.Background(), "m1", "Hello", domain.LocaleEnglish)
			require.NoError(t, err)
			assert.Equal(t, SourceLocal, pb.Source())
			assert.Nil(t, pb.Audio())

			_, ok, _ := cache.Audio(context.Background(), domain.LocaleEnglish, "m1")
			assert.False(t, ok)
		})
	}
}

func TestSynthesizeWithoutVoice(t *testing.T) {
	a := NewAdapter(&fakeCloud{err: errors.New("down")}, nil, newBlockingSink(), nil, zerolog.Nop())
	_, err := a.Synthesize(context.Background(), "m1", "Hello", domain.LocaleEnglish)
	assert.ErrorIs(t, err, ErrNoVoice)
}

func TestSynthesizeRejectsBlankText(t *testing.T) {
	cloud := &fakeCloud{}
	a := NewAdapter(cloud, nil, newBlockingSink(), &fakeVoice{}, zerolog.Nop())
	_, err := a.Synthesize(context.Background(), "m1", "  ", domain.LocaleEnglish)
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, cloud.calls)
}

func TestCapabilities(t *testing.T) {
	cloud := newCloudPlayback("m1", []byte("a"), newBlockingSink())
	local := newLocalPlayback("m1", "hi", domain.LocaleEnglish, &fakeVoice{})

	assert.Len(t, cloud.Capabilities(), 6)
	assert.Equal(t, []Control{ControlStart, ControlCancel}, local.Capabilities())
	assert.True(t, cloud.Supports(ControlSeek))
	assert.False(t, local.Supports(ControlPause))
}

func TestLocalPlaybackRejectsRichControls(t *testing.T) {
	pb := newLocalPlayback("m1", "hi", domain.LocaleEnglish, &fakeVoice{block: true})
	require.NoError(t, pb.Start(context.Background()))

	assert.ErrorIs(t, pb.Pause(), domain.ErrUnsupportedControl)
	assert.ErrorIs(t, pb.Resume(), domain.ErrUnsupportedControl)
	assert.ErrorIs(t, pb.Seek(time.Second), domain.ErrUnsupportedControl)
	assert.ErrorIs(t, pb.SetMuted(true), domain.ErrUnsupportedControl)

	require.NoError(t, pb.Cancel())
	select {
	case <-pb.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not finish playback")
	}
}

func TestLocalPlaybackCompletes(t *testing.T) {
	voice := &fakeVoice{}
	pb := newLocalPlayback("m1", "こんにちは", domain.LocaleJapanese, voice)
	require.NoError(t, pb.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pb.Wait(ctx))
	assert.Equal(t, []string{"ja:こんにちは"}, voice.said)
}

func TestCloudPauseResumeKeepsPosition(t *testing.T) {
	sink := newBlockingSink()
	pb := newCloudPlayback("m1", []byte("a"), sink)
	require.NoError(t, pb.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, pb.Pause())
	assert.True(t, pb.Paused())
	paused := pb.Position()
	assert.GreaterOrEqual(t, paused, 30*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused, pb.Position(), "position frozen while paused")

	require.NoError(t, pb.Resume())
	require.Eventually(t, func() bool { return len(sink.runs()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, paused, sink.runs()[1].Offset)
}

func TestCloudSeekAndMuteRestartSink(t *testing.T) {
	sink := newBlockingSink()
	pb := newCloudPlayback("m1", []byte("a"), sink)
	require.NoError(t, pb.Start(context.Background()))
	require.Eventually(t, func() bool { return len(sink.runs()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, pb.Seek(2*time.Second))
	require.Eventually(t, func() bool { return len(sink.runs()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2*time.Second, sink.runs()[1].Offset)

	require.NoError(t, pb.SetMuted(true))
	require.Eventually(t, func() bool { return len(sink.runs()) == 3 }, time.Second, 5*time.Millisecond)
	run := sink.runs()[2]
	assert.True(t, run.Muted)
	assert.GreaterOrEqual(t, run.Offset, 2*time.Second)

	select {
	case <-pb.Done():
		t.Fatal("restarts must not finish playback")
	default:
	}

	close(sink.finish)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, pb.Wait(ctx))
}

func TestSeekBeforeStart(t *testing.T) {
	sink := newBlockingSink()
	pb := newCloudPlayback("m1", []byte("a"), sink)
	require.NoError(t, pb.Seek(-time.Second))
	assert.Zero(t, pb.Position())

	require.NoError(t, pb.Seek(1500*time.Millisecond))
	require.NoError(t, pb.Start(context.Background()))
	require.Eventually(t, func() bool { return len(sink.runs()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, sink.runs()[0].Offset)
	require.NoError(t, pb.Cancel())
}

func TestCancelBeforeStart(t *testing.T) {
	sink := newBlockingSink()
	pb := newCloudPlayback("m1", []byte("a"), sink)
	require.NoError(t, pb.Cancel())
	require.NoError(t, pb.Start(context.Background()))

	<-pb.Done()
	assert.Empty(t, sink.runs())
}

func TestExecVoiceReadsTextFromStdin(t *testing.T) {
	tests := []struct {
		name   string
		voice  *ExecVoice
		locale domain.Locale
		args   []string
	}{
		{"say ja", &ExecVoice{Binary: "say", darwin: true}, domain.LocaleJapanese, []string{"-v", "Kyoko", "-f", "-"}},
		{"say en", &ExecVoice{Binary: "say", darwin: true}, domain.LocaleEnglish, []string{"-f", "-"}},
		{"espeak ja", &ExecVoice{Binary: "espeak-ng"}, domain.LocaleJapanese, []string{"-v", "ja", "--stdin"}},
		{"espeak en", &ExecVoice{Binary: "espeak-ng"}, domain.LocaleEnglish, []string{"-v", "en", "--stdin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "-3°C in Sapporo tonight"
			cmd := tt.voice.command(context.Background(), text, tt.locale)

			assert.Equal(t, tt.args, cmd.Args[1:])
			assert.NotContains(t, cmd.Args, text)
			require.NotNil(t, cmd.Stdin)
			data, err := io.ReadAll(cmd.Stdin)
			require.NoError(t, err)
			assert.Equal(t, text, string(data))
		})
	}
}
