package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the call agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	// PublicHost is the externally reachable host used in NCCO socket URLs.
	PublicHost string

	LogLevel     string
	LogFormat    string
	LogRedactPII bool

	EngineProvider string

	DeepgramAPIKey         string
	DeepgramWSURL          string
	DeepgramLanguage       string
	DeepgramUtteranceEndMS int
	DeepgramEndpointingMS  int

	OpenAIAPIKey  string
	OpenAIBaseURL string

	ElevenLabsAPIKey       string
	ElevenLabsBaseURL      string
	ElevenLabsOutputFormat string

	VonageApplicationID   string
	VonagePrivateKeyPath  string
	VonageSignatureSecret string
	VonageAPIURL          string
	VonagePhoneNumber     string

	CallMaxDuration     time.Duration
	EnforceMaxDuration  bool
	EgressFrameInterval time.Duration

	AgentsFile  string
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "callagent"),
		PublicHost:             trimmedEnv("PUBLIC_HOST"),
		LogLevel:               strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		EngineProvider:         strings.ToLower(envOrDefault("ENGINE_PROVIDER", "auto")),
		DeepgramAPIKey:         trimmedEnv("DEEPGRAM_API_KEY"),
		DeepgramWSURL:          envOrDefault("DEEPGRAM_WS_URL", "wss://api.deepgram.com/v1/listen"),
		DeepgramLanguage:       envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
		DeepgramUtteranceEndMS: 1000,
		DeepgramEndpointingMS:  300,
		OpenAIAPIKey:           trimmedEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:          trimmedEnv("OPENAI_BASE_URL"),
		ElevenLabsAPIKey:       trimmedEnv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:      envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		// Raw 16 kHz PCM matches the telephony websocket, so no transcoding is needed.
		ElevenLabsOutputFormat: envOrDefault("ELEVENLABS_OUTPUT_FORMAT", "pcm_16000"),
		VonageApplicationID:    trimmedEnv("VONAGE_APPLICATION_ID"),
		VonagePrivateKeyPath:   trimmedEnv("VONAGE_PRIVATE_KEY_PATH"),
		VonageSignatureSecret:  trimmedEnv("VONAGE_SIGNATURE_SECRET"),
		VonageAPIURL:           envOrDefault("VONAGE_API_URL", "https://api.nexmo.com"),
		VonagePhoneNumber:      trimmedEnv("VONAGE_PHONE_NUMBER"),
		AgentsFile:             trimmedEnv("AGENTS_FILE"),
		DatabaseURL:            trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:        15 * time.Second,
		CallMaxDuration:        180 * time.Second,
		EnforceMaxDuration:     true,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallMaxDuration, err = durationFromEnv("CALL_MAX_DURATION", cfg.CallMaxDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.EgressFrameInterval, err = durationFromEnv("EGRESS_FRAME_INTERVAL", cfg.EgressFrameInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.LogRedactPII, err = boolFromEnv("LOG_REDACT_PII", cfg.LogRedactPII)
	if err != nil {
		return Config{}, err
	}
	cfg.EnforceMaxDuration, err = boolFromEnv("ENFORCE_MAX_DURATION", cfg.EnforceMaxDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.DeepgramUtteranceEndMS, err = intFromEnv("DEEPGRAM_UTTERANCE_END_MS", cfg.DeepgramUtteranceEndMS)
	if err != nil {
		return Config{}, err
	}
	cfg.DeepgramEndpointingMS, err = intFromEnv("DEEPGRAM_ENDPOINTING_MS", cfg.DeepgramEndpointingMS)
	if err != nil {
		return Config{}, err
	}

	switch cfg.EngineProvider {
	case "auto", "live", "mock":
	default:
		return Config{}, fmt.Errorf("ENGINE_PROVIDER must be one of auto, live, mock")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console")
	}
	if cfg.CallMaxDuration <= 0 {
		return Config{}, fmt.Errorf("CALL_MAX_DURATION must be positive")
	}
	if cfg.EgressFrameInterval < 0 {
		return Config{}, fmt.Errorf("EGRESS_FRAME_INTERVAL must be >= 0")
	}
	if cfg.DeepgramUtteranceEndMS < 1000 {
		// Deepgram rejects utterance_end_ms below 1000.
		return Config{}, fmt.Errorf("DEEPGRAM_UTTERANCE_END_MS must be at least 1000")
	}
	if cfg.DeepgramEndpointingMS < 0 {
		return Config{}, fmt.Errorf("DEEPGRAM_ENDPOINTING_MS must be >= 0")
	}

	return cfg, nil
}

// LiveEnginesConfigured reports whether every external engine has a key.
func (c Config) LiveEnginesConfigured() bool {
	return c.DeepgramAPIKey != "" && c.OpenAIAPIKey != "" && c.ElevenLabsAPIKey != ""
}

func envOrDefault(key, fallback string) string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
