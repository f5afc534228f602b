package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/geo"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/search"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/stt"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/tts"
	"github.com/infernodragon456/travel-chat-app/internal/config"
	"github.com/infernodragon456/travel-chat-app/internal/logging"
	"github.com/infernodragon456/travel-chat-app/internal/policy"
	"github.com/infernodragon456/travel-chat-app/internal/prompt"
	"github.com/infernodragon456/travel-chat-app/internal/repository"
	"github.com/infernodragon456/travel-chat-app/internal/service"
	httptransport "github.com/infernodragon456/travel-chat-app/internal/transport/http"
	"github.com/infernodragon456/travel-chat-app/internal/transport/ws"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides HTTP_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if servePort != 0 {
		cfg.HTTPPort = servePort
	}
	logger := logging.New(level(cfg.LogLevel), cfg.LogConsole)

	logger.Info().
		Int("port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Str("llm_base_url", cfg.LLMBaseURL).
		Str("model", cfg.LLMModel).
		Msg("starting sora server")

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize providers
	providers := service.Providers{
		LLM:    llm.NewLLMClient(cfg, logger),
		Geo:    geo.NewClient(cfg.GeocoderURL, cfg.WeatherURL, cfg.UserAgent, cfg.EnrichmentTimeout),
		Search: search.NewClient(cfg.SearchURL, cfg.SearchHTMLURL, cfg.UserAgent, cfg.EnrichmentTimeout, logger),
		STT:    stt.NewWhisperClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.STTModel, cfg.LLMTimeout, logger),
		TTS:    tts.NewElevenLabsProvider(cfg.ElevenLabsURL, cfg.ElevenLabsAPIKey, cfg.TTSModel, cfg.LLMTimeout, logger),
	}
	if cfg.ElevenLabsAPIKey == "" {
		logger.Warn().Msg("no ElevenLabs API key configured, /speak will signal fallback")
	}

	composer, err := prompt.NewComposer()
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	svc := service.New(db, providers, composer, policyEngine, cfg, logger)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	wsServer := ws.NewServer(cfg, hub, svc, logger)

	e := httptransport.NewServer(svc, wsServer, logger)

	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	logger.Info().Int("port", cfg.HTTPPort).Msg("server started")

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	logger.Info().Msg("server stopped")
	return nil
}
