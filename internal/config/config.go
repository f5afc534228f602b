// Package config provides configuration for the Sora server and chat client.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ModeMock selects the scripted LLM client instead of a hosted model.
	ModeMock = "MOCK"

	// DefaultGroqBaseURL is the OpenAI-compatible Groq endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
)

// Config holds the server and client configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	DatabaseURL string
	Mode        string

	// Language model
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	LLMFastModel string
	LLMTimeout   time.Duration

	// Enrichment
	EnrichmentTimeout time.Duration
	GeocoderURL       string
	WeatherURL        string
	SearchURL         string
	SearchHTMLURL     string
	UserAgent         string

	// Speech
	STTModel         string
	ElevenLabsAPIKey string
	ElevenLabsURL    string
	TTSModel         string

	// WebSocket settings
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Client settings
	ServerURL string
	StateURL  string

	// Logging
	LogLevel   string
	LogConsole bool
}

// Load loads configuration from .env files and environment variables.
// Values already present in the environment win over .env files.
func Load() *Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	apiKey := v.GetString("GROQ_API_KEY")
	if apiKey == "" {
		apiKey = v.GetString("LLM_API_KEY")
	}

	return &Config{
		HTTPPort:          v.GetInt("HTTP_PORT"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		Mode:              strings.ToUpper(v.GetString("SORA_MODE")),
		LLMAPIKey:         apiKey,
		LLMBaseURL:        v.GetString("LLM_BASE_URL"),
		LLMModel:          v.GetString("LLM_MODEL"),
		LLMFastModel:      v.GetString("LLM_FAST_MODEL"),
		LLMTimeout:        millis(v, "LLM_TIMEOUT_MS"),
		EnrichmentTimeout: millis(v, "ENRICHMENT_TIMEOUT_MS"),
		GeocoderURL:       v.GetString("GEOCODER_URL"),
		WeatherURL:        v.GetString("WEATHER_URL"),
		SearchURL:         v.GetString("SEARCH_URL"),
		SearchHTMLURL:     v.GetString("SEARCH_HTML_URL"),
		UserAgent:         v.GetString("HTTP_USER_AGENT"),
		STTModel:          v.GetString("STT_MODEL"),
		ElevenLabsAPIKey:  v.GetString("ELEVENLABS_API_KEY"),
		ElevenLabsURL:     v.GetString("ELEVENLABS_URL"),
		TTSModel:          v.GetString("TTS_MODEL"),
		WSPingInterval:    millis(v, "WS_PING_INTERVAL_MS"),
		WSWriteTimeout:    millis(v, "WS_WRITE_TIMEOUT_MS"),
		WSReadTimeout:     millis(v, "WS_READ_TIMEOUT_MS"),
		WSMaxMessageSize:  v.GetInt64("WS_MAX_MESSAGE_SIZE"),
		ServerURL:         v.GetString("SORA_SERVER_URL"),
		StateURL:          v.GetString("SORA_STATE_URL"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogConsole:        v.GetBool("LOG_CONSOLE"),
	}
}

// MockMode reports whether the scripted LLM client should be used.
func (c *Config) MockMode() bool {
	return c.Mode == ModeMock
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 3000)
	v.SetDefault("DATABASE_URL", "file:sora.db?cache=shared&mode=rwc")
	v.SetDefault("SORA_MODE", "")
	v.SetDefault("LLM_BASE_URL", DefaultGroqBaseURL)
	v.SetDefault("LLM_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("LLM_FAST_MODEL", "llama-3.1-8b-instant")
	v.SetDefault("LLM_TIMEOUT_MS", 60000)
	v.SetDefault("ENRICHMENT_TIMEOUT_MS", 4000)
	v.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("WEATHER_URL", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("SEARCH_URL", "https://api.duckduckgo.com/")
	v.SetDefault("SEARCH_HTML_URL", "https://html.duckduckgo.com/html/")
	v.SetDefault("HTTP_USER_AGENT", "SoraAIApp/1.0")
	v.SetDefault("STT_MODEL", "whisper-large-v3-turbo")
	v.SetDefault("ELEVENLABS_URL", "https://api.elevenlabs.io/v1")
	v.SetDefault("TTS_MODEL", "eleven_multilingual_v2")
	v.SetDefault("WS_PING_INTERVAL_MS", 30000)
	v.SetDefault("WS_WRITE_TIMEOUT_MS", 10000)
	v.SetDefault("WS_READ_TIMEOUT_MS", 60000)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 1<<20)
	v.SetDefault("SORA_SERVER_URL", "http://localhost:3000")
	v.SetDefault("SORA_STATE_URL", "sora-client.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_CONSOLE", true)
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Millisecond
}
