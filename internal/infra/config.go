package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DashScopeAPIKey  string
	DashScopeBaseURL string
	DashScopeChatURL string
	ChatModel        string
	ImageModel       string
	ImageDefaultSize string
	NegativePrompt   string
	PollInterval     time.Duration
	MaxPollAttempts  int
	TransformURL     string
	HistoryBackend   string
	HistoryPath      string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	GeoIPDBPath      string
	DefaultLocale    string
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	UpstreamTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/api/v1"),
		DashScopeChatURL: getEnv("DASHSCOPE_CHAT_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		ChatModel:        getEnv("CHAT_MODEL", "qwen-plus"),
		ImageModel:       getEnv("IMAGE_MODEL", "wanx2.1-t2i-turbo"),
		ImageDefaultSize: getEnv("IMAGE_DEFAULT_SIZE", "1024*1024"),
		NegativePrompt:   getEnv("IMAGE_NEGATIVE_PROMPT", "人物"),
		PollInterval:     time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 3000)),
		MaxPollAttempts:  getEnvInt("MAX_POLL_ATTEMPTS", 30),
		TransformURL:     getEnv("TRANSFORM_API_URL", "https://aa.jstang.cn/api/ai/call"),
		HistoryBackend:   getEnv("HISTORY_BACKEND", "file"),
		HistoryPath:      getEnv("HISTORY_PATH", "./data/history"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", "http://localhost:3000"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		UpstreamTimeout:  time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 45)),
	}

	if cfg.DashScopeAPIKey == "" {
		return nil, fmt.Errorf("DASHSCOPE_API_KEY is required")
	}

	switch cfg.HistoryBackend {
	case "file", "memory", "bolt", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unsupported HISTORY_BACKEND %q", cfg.HistoryBackend)
	}

	if cfg.HistoryBackend == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when HISTORY_BACKEND=postgres")
	}

	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 30
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
