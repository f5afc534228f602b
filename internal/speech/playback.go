// Package speech speaks assistant messages with cloud audio or the local
// system voice.
package speech

import (
	"context"
	"sync"
	"time"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Source identifies where a playback's audio comes from.
type Source string

const (
	SourceCloud Source = "cloud"
	SourceLocal Source = "local"
)

// Control is a playback operation.
type Control string

const (
	ControlStart  Control = "start"
	ControlCancel Control = "cancel"
	ControlPause  Control = "pause"
	ControlResume Control = "resume"
	ControlSeek   Control = "seek"
	ControlMute   Control = "mute"
)

var (
	cloudControls = []Control{ControlStart, ControlCancel, ControlPause, ControlResume, ControlSeek, ControlMute}
	localControls = []Control{ControlStart, ControlCancel}
)

// PlayOptions positions cloud audio output.
type PlayOptions struct {
	Offset time.Duration
	Muted  bool
}

// Sink renders cloud audio. Play blocks until the audio ends or ctx is
// cancelled.
type Sink interface {
	Play(ctx context.Context, audio []byte, opts PlayOptions) error
}

// LocalVoice speaks text with an on-device voice. Say blocks until speech
// ends or ctx is cancelled.
type LocalVoice interface {
	Say(ctx context.Context, text string, locale domain.Locale) error
}

// Playback is one spoken message. Cloud playbacks support every control;
// local playbacks only start and cancel.
type Playback struct {
	source    Source
	messageID string
	audio     []byte
	text      string
	locale    domain.Locale
	sink      Sink
	voice     LocalVoice

	mu        sync.Mutex
	started   bool
	finished  bool
	paused    bool
	muted     bool
	position  time.Duration
	resumedAt time.Time
	gen       int
	cancel    context.CancelFunc
	parent    context.Context
	err       error
	done      chan struct{}
}

func newCloudPlayback(messageID string, audio []byte, sink Sink) *Playback {
	return &Playback{source: SourceCloud, messageID: messageID, audio: audio, sink: sink, done: make(chan struct{})}
}

func newLocalPlayback(messageID, text string, locale domain.Locale, voice LocalVoice) *Playback {
	return &Playback{source: SourceLocal, messageID: messageID, text: text, locale: locale, voice: voice, done: make(chan struct{})}
}

// Source reports whether the audio is cloud or local.
func (p *Playback) Source() Source { return p.source }

// MessageID returns the spoken message id.
func (p *Playback) MessageID() string { return p.messageID }

// Audio returns the cloud audio bytes, or nil for local playbacks.
func (p *Playback) Audio() []byte { return p.audio }

// Capabilities lists the supported controls.
func (p *Playback) Capabilities() []Control {
	if p.source == SourceCloud {
		return append([]Control(nil), cloudControls...)
	}
	return append([]Control(nil), localControls...)
}

// Supports reports whether c is available.
func (p *Playback) Supports(c Control) bool {
	for _, have := range p.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// Start begins output. It returns immediately; use Done or Wait.
func (p *Playback) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.finished {
		return nil
	}
	p.started = true
	p.parent = context.WithoutCancel(ctx)

	if p.source == SourceLocal {
		runCtx, cancel := context.WithCancel(p.parent)
		p.cancel = cancel
		go func() {
			err := p.voice.Say(runCtx, p.text, p.locale)
			p.mu.Lock()
			defer p.mu.Unlock()
			if runCtx.Err() == nil {
				p.finishLocked(err)
			}
		}()
		return nil
	}

	p.playLocked()
	return nil
}

// playLocked starts the sink at the current position.
func (p *Playback) playLocked() {
	p.gen++
	gen := p.gen
	runCtx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	p.resumedAt = time.Now()
	opts := PlayOptions{Offset: p.position, Muted: p.muted}

	go func() {
		err := p.sink.Play(runCtx, p.audio, opts)
		p.mu.Lock()
		defer p.mu.Unlock()
		// A newer generation or a stop replaced this run.
		if gen != p.gen || runCtx.Err() != nil {
			return
		}
		p.finishLocked(err)
	}()
}

// stopLocked halts the sink and banks the elapsed position.
func (p *Playback) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if !p.paused && !p.resumedAt.IsZero() {
		p.position += time.Since(p.resumedAt)
	}
	p.resumedAt = time.Time{}
}

func (p *Playback) finishLocked(err error) {
	if p.finished {
		return
	}
	p.finished = true
	p.err = err
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	close(p.done)
}

func (p *Playback) require(c Control) error {
	if !p.Supports(c) {
		return domain.ErrUnsupportedControl
	}
	return nil
}

// Cancel stops output for good.
func (p *Playback) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.finishLocked(nil)
	return nil
}

// Pause holds output at the current position.
func (p *Playback) Pause() error {
	if err := p.require(ControlPause); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.finished || p.paused {
		return nil
	}
	p.gen++
	p.stopLocked()
	p.paused = true
	return nil
}

// Resume continues from the paused position.
func (p *Playback) Resume() error {
	if err := p.require(ControlResume); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.finished || !p.paused {
		return nil
	}
	p.paused = false
	p.playLocked()
	return nil
}

// Seek moves to pos. Negative positions clamp to zero.
func (p *Playback) Seek(pos time.Duration) error {
	if err := p.require(ControlSeek); err != nil {
		return err
	}
	if pos < 0 {
		pos = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return nil
	}
	if !p.started || p.paused {
		p.position = pos
		return nil
	}
	p.gen++
	p.stopLocked()
	p.position = pos
	p.playLocked()
	return nil
}

// SetMuted silences or restores output without losing position.
func (p *Playback) SetMuted(muted bool) error {
	if err := p.require(ControlMute); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted == muted {
		return nil
	}
	p.muted = muted
	if !p.started || p.finished || p.paused {
		return nil
	}
	p.gen++
	p.stopLocked()
	p.playLocked()
	return nil
}

// Position returns the current playback offset.
func (p *Playback) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.resumedAt.IsZero() {
		return p.position
	}
	return p.position + time.Since(p.resumedAt)
}

// Paused reports whether output is paused.
func (p *Playback) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Muted reports whether output is muted.
func (p *Playback) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Done is closed when playback ends or is cancelled.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Wait blocks until playback ends and returns its error.
func (p *Playback) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
