package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// knob has a development default so the binary runs with no environment.
type Server struct {
	Addr string

	// AdminJWTKey signs the bearer tokens that guard admin endpoints.
	AdminJWTKey string

	OpenAI OpenAIConfig
	Redis  RedisConfig

	// BroadcastBuffer bounds the per-client websocket send queue.
	BroadcastBuffer int

	// MaxConcurrentModerations caps in-flight pipeline runs started by the
	// webhook/simulate endpoints.
	MaxConcurrentModerations int
}

// OpenAIConfig configures the classification/scoring oracle client. An empty
// APIKey disables the real client; the pipeline then fails safe on every
// event, which is the correct degraded behavior for a moderation system.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// RedisConfig configures the optional pub/sub broadcast mirror. Empty URL
// means Redis is not wired in.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Channel      string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:        envOr("ARBITER_ADDR", ":8080"),
		AdminJWTKey: envOr("ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: envDurationOr("OPENAI_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
			Channel:      envOr("REDIS_BROADCAST_CHANNEL", "arbiter:events"),
		},
		BroadcastBuffer:          envIntOr("BROADCAST_BUFFER", 64),
		MaxConcurrentModerations: envIntOr("MAX_CONCURRENT_MODERATIONS", 32),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
