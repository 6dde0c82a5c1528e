package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port       string
	Env        string
	BackendURL string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Identity provider (OAuth2 authorization code flow)
	AuthClientID     string
	AuthClientSecret string
	AuthAuthorizeURL string
	AuthTokenURL     string
	AuthUserInfoURL  string
	AuthLogoutURL    string

	// Generation providers
	ArkAPIKey            string
	ArkBaseURL           string
	RunwareAPIKey        string
	RunwareBaseURL       string
	PollinationsImageURL string
	PollinationsAudioURL string
	ProviderCatalogPath  string

	// Polling
	PollInterval time.Duration
	MaxPolls     int

	// Gemini AI
	GeminiAPIKey string
	GeminiModel  string

	// Logging
	LogLevel  string
	LogFormat string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8000"),
		Env:         getEnvOrDefault("ENV", "development"),
		BackendURL:  getEnvOrDefault("BACKEND_URL", "http://localhost:8000"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		AuthClientID:     getEnvOrDefault("AUTH_CLIENT_ID", ""),
		AuthClientSecret: getEnvOrDefault("AUTH_CLIENT_SECRET", ""),
		AuthAuthorizeURL: getEnvOrDefault("AUTH_AUTHORIZE_URL", "https://api.workos.com/user_management/authorize"),
		AuthTokenURL:     getEnvOrDefault("AUTH_TOKEN_URL", "https://api.workos.com/user_management/authenticate"),
		AuthUserInfoURL:  getEnvOrDefault("AUTH_USERINFO_URL", ""),
		AuthLogoutURL:    getEnvOrDefault("AUTH_LOGOUT_URL", ""),

		ArkAPIKey:            getEnvOrDefault("ARK_API_KEY", ""),
		ArkBaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.ap-southeast.bytepluses.com/api/v3"),
		RunwareAPIKey:        getEnvOrDefault("RUNWARE_API_KEY", ""),
		RunwareBaseURL:       getEnvOrDefault("RUNWARE_BASE_URL", "https://api.runware.ai/v1"),
		PollinationsImageURL: getEnvOrDefault("POLLINATIONS_IMAGE_URL", "https://image.pollinations.ai"),
		PollinationsAudioURL: getEnvOrDefault("POLLINATIONS_AUDIO_URL", "https://text.pollinations.ai"),
		ProviderCatalogPath:  getEnvOrDefault("PROVIDER_CATALOG_PATH", ""),

		PollInterval: getEnvAsDurationOrDefault("GENERATION_POLL_INTERVAL", 5*time.Second),
		MaxPolls:     getEnvAsIntOrDefault("GENERATION_MAX_POLLS", 60),

		GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg
}

// MaxGenerationWait is the longest a single generation request may block.
func (c *Config) MaxGenerationWait() time.Duration {
	return c.PollInterval * time.Duration(c.MaxPolls)
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
