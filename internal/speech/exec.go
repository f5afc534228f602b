package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// ErrNoPlayer is returned when no audio player binary is installed.
var ErrNoPlayer = errors.New("no audio player found")

// ExecSink plays audio through ffplay.
type ExecSink struct {
	Binary string
}

// NewExecSink finds ffplay on PATH.
func NewExecSink() (*ExecSink, error) {
	path, err := exec.LookPath("ffplay")
	if err != nil {
		return nil, ErrNoPlayer
	}
	return &ExecSink{Binary: path}, nil
}

func (s *ExecSink) Play(ctx context.Context, audio []byte, opts PlayOptions) error {
	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	if opts.Offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(opts.Offset.Seconds(), 'f', 3, 64))
	}
	if opts.Muted {
		args = append(args, "-volume", "0")
	}
	args = append(args, "-i", "pipe:0")

	cmd := exec.CommandContext(ctx, s.Binary, args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}

// ExecVoice speaks with the platform text-to-speech command.
type ExecVoice struct {
	Binary string
	darwin bool
}

// NewExecVoice finds say on macOS, otherwise espeak-ng or espeak.
func NewExecVoice() (*ExecVoice, error) {
	candidates := []string{"espeak-ng", "espeak"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"say"}
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return &ExecVoice{Binary: path, darwin: name == "say"}, nil
		}
	}
	return nil, ErrNoVoice
}

func (v *ExecVoice) Say(ctx context.Context, text string, locale domain.Locale) error {
	if err := v.command(ctx, text, locale).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("local voice: %w", err)
	}
	return nil
}

// command feeds text on stdin so replies starting with "-" are not read as
// flags.
func (v *ExecVoice) command(ctx context.Context, text string, locale domain.Locale) *exec.Cmd {
	cmd := exec.CommandContext(ctx, v.Binary, v.args(locale)...)
	cmd.Stdin = strings.NewReader(text)
	return cmd
}

func (v *ExecVoice) args(locale domain.Locale) []string {
	if v.darwin {
		if locale == domain.LocaleJapanese {
			return []string{"-v", "Kyoko", "-f", "-"}
		}
		return []string{"-f", "-"}
	}
	voice := "en"
	if locale == domain.LocaleJapanese {
		voice = "ja"
	}
	return []string{"-v", voice, "--stdin"}
}
