package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5",
}

var providerKeyEnv = map[string]string{
	ProviderGemini:    "GOOGLE_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	LogFormat       string
	CORSAllowOrigin []string
	LLMProvider     string
	LLMModel        string
	LLMAPIKey       string
	LLMBaseURL      string
	LLMTimeout      time.Duration
	PromptVersion   string
	MaxUploadBytes  int64
	SessionSecret   string
	SessionTTL      time.Duration
	RedisURL        string
	DatabaseURL     string
	RateLimitPerMin float64
	RateLimitBurst  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	provider := normalizeProvider(getEnv("LLM_PROVIDER", ProviderGemini))

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LLMProvider:     provider,
		LLMModel:        getEnv("LLM_MODEL", defaultModels[provider]),
		LLMAPIKey:       credentialFromEnv(provider),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		LLMTimeout:      time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		PromptVersion:   getEnv("PROMPT_VERSION", "v1"),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionTTL:      getEnvDuration("SESSION_TTL", 12*time.Hour),
		RedisURL:        getEnv("REDIS_URL", ""),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RateLimitPerMin: float64(getEnvInt("RATE_LIMIT_PER_MINUTE", 6)),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 3),
	}
}

// DefaultModel returns the model used for a provider when LLM_MODEL is unset.
func DefaultModel(provider string) string {
	return defaultModels[normalizeProvider(provider)]
}

// HasServerCredential reports whether an API key was configured for the deployment.
func (c Config) HasServerCredential() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

// credentialFromEnv prefers the provider specific variable, then LLM_API_KEY.
func credentialFromEnv(provider string) string {
	if key := strings.TrimSpace(os.Getenv(providerKeyEnv[provider])); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("LLM_API_KEY"))
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// normalizeProvider resolves aliases. Unknown names are kept so the client
// factory can reject them at startup.
func normalizeProvider(raw string) string {
	switch name := strings.ToLower(strings.TrimSpace(raw)); name {
	case "", ProviderGemini:
		return ProviderGemini
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderAnthropic, "claude":
		return ProviderAnthropic
	default:
		return name
	}
}
