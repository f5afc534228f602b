package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrNoRecorder is returned when no recording binary is installed.
	ErrNoRecorder = errors.New("no audio recorder found")
	// ErrRecording is returned by Start while a recording is running.
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop without a running recording.
	ErrNotRecording = errors.New("not recording")
)

// ExecMicrophone records 16 kHz mono WAV through arecord, sox or ffmpeg.
type ExecMicrophone struct {
	Binary string
	name   string
	goos   string

	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
}

// NewExecMicrophone finds the first recorder on PATH.
func NewExecMicrophone() (*ExecMicrophone, error) {
	for _, name := range []string{"arecord", "rec", "ffmpeg"} {
		if path, err := exec.LookPath(name); err == nil {
			return &ExecMicrophone{Binary: path, name: name, goos: runtime.GOOS}, nil
		}
	}
	return nil, ErrNoRecorder
}

// Start begins recording into a temporary file.
func (m *ExecMicrophone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return ErrRecording
	}

	f, err := os.CreateTemp("", "sora-*.wav")
	if err != nil {
		return err
	}
	path := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, m.Binary, m.args(path)...)
	// Recorders finalize the WAV header on interrupt.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%s: %w", m.name, err)
	}
	m.cmd, m.path = cmd, path
	return nil
}

// Stop interrupts the recorder and returns the captured WAV.
func (m *ExecMicrophone) Stop() (Clip, error) {
	m.mu.Lock()
	cmd, path := m.cmd, m.path
	m.cmd, m.path = nil, ""
	m.mu.Unlock()
	if cmd == nil {
		return Clip{}, ErrNotRecording
	}
	defer os.Remove(path)

	_ = cmd.Process.Signal(os.Interrupt)
	waitErr := cmd.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}
	if len(data) == 0 {
		if waitErr != nil {
			return Clip{}, fmt.Errorf("%s captured no audio: %w", m.name, waitErr)
		}
		return Clip{}, fmt.Errorf("%s captured no audio", m.name)
	}
	return Clip{Data: data, ContentType: "audio/wav", Filename: "recording.wav"}, nil
}

func (m *ExecMicrophone) args(out string) []string {
	switch m.name {
	case "arecord":
		return []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", out}
	case "rec":
		return []string{"-q", "-r", "16000", "-c", "1", "-b", "16", out}
	}
	input := []string{"-f", "alsa", "-i", "default"}
	if m.goos == "darwin" {
		input = []string{"-f", "avfoundation", "-i", ":0"}
	}
	args := append([]string{"-loglevel", "quiet", "-nostdin"}, input...)
	return append(args, "-ac", "1", "-ar", "16000", "-y", out)
}
