package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/infernodragon456/travel-chat-app/internal/chat"
	"github.com/infernodragon456/travel-chat-app/internal/client"
	"github.com/infernodragon456/travel-chat-app/internal/config"
	"github.com/infernodragon456/travel-chat-app/internal/conversation"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/kvstore"
	"github.com/infernodragon456/travel-chat-app/internal/logging"
	"github.com/infernodragon456/travel-chat-app/internal/speech"
	"github.com/infernodragon456/travel-chat-app/internal/transcription"
)

var (
	chatServer    string
	chatState     string
	chatLocale    string
	chatUseWS     bool
	chatAutoSpeak bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server from the terminal",
	Long: `Chat with a running Sora server.

Commands inside the chat:
  /lang en|ja     switch conversation language
  /clear          delete this language's history and cached audio
  /speak [id]     speak the last (or given) assistant reply
  /stop           stop speaking
  /audio <file>   transcribe a recording and send it
  /record         record from the microphone until Enter, then send it
  /history        print the conversation
  /quit           exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "", "server URL (overrides SORA_SERVER_URL)")
	chatCmd.Flags().StringVar(&chatState, "state", "", "history store: sqlite path, memory:// or redis:// URL (overrides SORA_STATE_URL)")
	chatCmd.Flags().StringVarP(&chatLocale, "lang", "l", "en", "conversation language (en or ja)")
	chatCmd.Flags().BoolVar(&chatUseWS, "ws", false, "stream replies over WebSocket instead of SSE")
	chatCmd.Flags().BoolVar(&chatAutoSpeak, "speak", false, "speak replies when they finish")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if chatServer != "" {
		cfg.ServerURL = chatServer
	}
	if chatState != "" {
		cfg.StateURL = chatState
	}
	logger := logging.New(level("warn"), true)

	kv, err := kvstore.Open(cfg.StateURL)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer kv.Close()
	store := conversation.NewStore(kv)

	api := client.NewClient(cfg.ServerURL, cfg.LLMTimeout, logger)
	var streamer chat.Streamer = api
	if chatUseWS {
		streamer = client.NewWSStreamer(cfg.ServerURL, logger)
	}

	out := cmd.OutOrStdout()
	ctrl := chat.NewController(
		streamer,
		store,
		transcription.NewAdapter(api, nil, logger),
		newSpeaker(api, store, logger),
		chat.Options{
			Locale:    domain.ParseLocale(chatLocale),
			AutoSpeak: chatAutoSpeak,
			OnEvent:   printEvent(out),
		},
		logger,
	)
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Open(ctx); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	fmt.Fprintf(out, "Connected to %s (%s). Type /quit to exit.\n", api.BaseURL(), ctrl.Locale())
	printHistory(out, ctrl.Messages())

	return chatLoop(ctx, cmd.InOrStdin(), out, ctrl)
}

// newSpeaker wires cloud speech with the system player and voice. Either
// half may be missing on a given machine.
func newSpeaker(api *client.Client, cache *conversation.Store, logger zerolog.Logger) chat.Speaker {
	var sink speech.Sink
	if s, err := speech.NewExecSink(); err == nil {
		sink = s
	}
	var voice speech.LocalVoice
	if v, err := speech.NewExecVoice(); err == nil {
		voice = v
	}
	if sink == nil && voice == nil {
		return nil
	}
	return speech.NewAdapter(api, cache, sink, voice, logger)
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, ctrl *chat.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, errc := readLines(ctx, in)

	for {
		fmt.Fprintf(out, "\n[%s] > ", ctrl.Locale())
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, out, ctrl, line, lines)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if _, err := ctrl.Submit(ctx, line); err != nil {
			reportTurnError(out, err)
		}
		fmt.Fprintln(out)
	}
}

// readLines scans in until EOF or ctx ends. errc holds the scan error once
// lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func runCommand(ctx context.Context, out io.Writer, ctrl *chat.Controller, line string, lines <-chan string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/lang":
		if len(fields) < 2 {
			return false, errors.New("usage: /lang en|ja")
		}
		if err := ctrl.SwitchLocale(ctx, domain.Locale(fields[1])); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Switched to %s.\n", ctrl.Locale())
		printHistory(out, ctrl.Messages())

	case "/clear":
		if err := ctrl.Clear(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "History cleared.")

	case "/history":
		printHistory(out, ctrl.Messages())

	case "/speak":
		id := lastAssistantID(ctrl.Messages())
		if len(fields) > 1 {
			id = fields[1]
		}
		if id == "" {
			return false, errors.New("nothing to speak")
		}
		pb, err := ctrl.Speak(ctx, id)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Speaking (%s voice).\n", pb.Source())

	case "/stop":
		ctrl.StopSpeaking()

	case "/audio":
		if len(fields) < 2 {
			return false, errors.New("usage: /audio <file>")
		}
		clip, err := readClip(fields[1])
		if err != nil {
			return false, err
		}
		if _, err := ctrl.SubmitAudio(ctx, clip); err != nil {
			reportTurnError(out, err)
		}
		fmt.Fprintln(out)

	case "/record":
		clip, err := record(ctx, out, lines)
		if err != nil {
			return false, err
		}
		if _, err := ctrl.SubmitAudio(ctx, clip); err != nil {
			reportTurnError(out, err)
		}
		fmt.Fprintln(out)

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

// newMicrophone opens the system recorder.
var newMicrophone = func() (transcription.Microphone, error) {
	mic, err := transcription.NewExecMicrophone()
	if err != nil {
		return nil, err
	}
	return mic, nil
}

type recording struct {
	clip transcription.Clip
	err  error
}

// record captures from the microphone until the next line of input.
func record(ctx context.Context, out io.Writer, lines <-chan string) (transcription.Clip, error) {
	mic, err := newMicrophone()
	if err != nil {
		return transcription.Clip{}, err
	}

	stop := make(chan struct{})
	done := make(chan recording, 1)
	go func() {
		clip, err := transcription.NewSession(mic, nil).Record(ctx, stop)
		done <- recording{clip, err}
	}()
	fmt.Fprintln(out, "Recording. Press Enter to stop.")

	select {
	case <-lines:
	case r := <-done:
		return r.clip, r.err
	}
	close(stop)
	r := <-done
	return r.clip, r.err
}

func readClip(path string) (transcription.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcription.Clip{}, fmt.Errorf("failed to read recording: %w", err)
	}
	return transcription.Clip{
		Data:        data,
		ContentType: contentTypeOf(path),
		Filename:    filepath.Base(path),
	}, nil
}

func contentTypeOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	}
	return "application/octet-stream"
}

func printEvent(out io.Writer) func(domain.StreamEvent) {
	return func(evt domain.StreamEvent) {
		switch d := evt.Data.(type) {
		case *domain.DeltaEventData:
			fmt.Fprint(out, d.Text)
		case *domain.SideChannelEventData:
			printResults(out, d.WebSearchResults)
		}
	}
}

func printResults(out io.Writer, results []domain.WebResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(out, "\n\nSources:")
	for i, r := range results {
		fmt.Fprintf(out, "  %d. %s\n     %s\n", i+1, r.Title, r.URL)
	}
}

func printHistory(out io.Writer, msgs []domain.Message) {
	for _, m := range msgs {
		fmt.Fprintf(out, "%s: %s\n", m.Role, m.Content)
		if m.SideChannel != nil {
			printResults(out, m.SideChannel.WebSearchResults)
		}
	}
}

func reportTurnError(out io.Writer, err error) {
	switch {
	case errors.Is(err, chat.ErrTurnAbandoned), errors.Is(err, context.Canceled):
	case errors.Is(err, domain.ErrTurnInFlight):
		fmt.Fprintln(out, "\nStill answering the previous message.")
	case domain.IsValidation(err):
		fmt.Fprintf(out, "\n%v\n", err)
	case errors.Is(err, domain.ErrTranscriptionUnavailable):
		fmt.Fprintln(out, "\nCould not transcribe the recording.")
	default:
		fmt.Fprintf(out, "\nerror: %v\n", err)
	}
}

func lastAssistantID(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant {
			return msgs[i].ID
		}
	}
	return ""
}
