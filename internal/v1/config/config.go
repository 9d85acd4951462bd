package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Persistence backend switches recognised by PERSISTENCE_BACKEND.
const (
	BackendFilesystem    = "filesystem"
	BackendDocumentStore = "document_store"
)

// Config holds validated environment configuration
type Config struct {
	// Server
	Port           string
	FrontendOrigin string

	// Heartbeat
	PingInterval time.Duration
	PongTimeout  time.Duration

	// Buzzer timing
	TieWindow time.Duration
	TieBuffer time.Duration

	// Final Jeopardy
	FinalAnswerTimeout time.Duration

	// Room lifecycle
	RoomGrace time.Duration

	// Generator
	GeneratorEndpoint string
	GeneratorAPIKey   string

	// Persistence
	PersistenceBackend string
	GamesDir           string
	RedisAddr          string
	RedisPassword      string

	// Environment
	GoEnv           string
	DevelopmentMode bool

	// Rate limits (ulule/limiter formatted, e.g. "100-M")
	RateLimitAPI    string
	RateLimitWsIP   string

	// Tracing
	OtelEndpoint string
}

// ValidateEnv validates all environment variables and returns a Config object.
// Returns an error if any variable is present but invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Optional: PORT (defaults to 3001)
	cfg.Port = getEnvOrDefault("PORT", "3001")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	cfg.FrontendOrigin = getEnvOrDefault("FRONTEND_ORIGIN", "http://localhost:3000")

	var derr []string
	cfg.PingInterval, derr = parseMs("PING_INTERVAL_MS", 1000, derr)
	cfg.PongTimeout, derr = parseMs("PONG_TIMEOUT_MS", 3000, derr)
	cfg.TieWindow, derr = parseMs("TIE_WINDOW_MS", 250, derr)
	cfg.TieBuffer, derr = parseMs("TIE_BUFFER_MS", 50, derr)
	cfg.FinalAnswerTimeout, derr = parseMs("FINAL_ANSWER_TIMEOUT_MS", 30000, derr)
	cfg.RoomGrace, derr = parseMs("ROOM_GRACE_MS", 60000, derr)
	errs = append(errs, derr...)

	if cfg.PongTimeout <= cfg.PingInterval {
		errs = append(errs, fmt.Sprintf("PONG_TIMEOUT_MS (%v) must exceed PING_INTERVAL_MS (%v)", cfg.PongTimeout, cfg.PingInterval))
	}

	cfg.GeneratorEndpoint = os.Getenv("GENERATOR_ENDPOINT")
	cfg.GeneratorAPIKey = os.Getenv("GENERATOR_API_KEY")

	// Persistence: filesystem by default; document_store requires Redis
	cfg.PersistenceBackend = getEnvOrDefault("PERSISTENCE_BACKEND", BackendFilesystem)
	switch cfg.PersistenceBackend {
	case BackendFilesystem:
		cfg.GamesDir = getEnvOrDefault("GAMES_DIR", "./saved-games")
	case BackendDocumentStore:
		cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
		if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	default:
		errs = append(errs, fmt.Sprintf("PERSISTENCE_BACKEND must be '%s' or '%s' (got '%s')", BackendFilesystem, BackendDocumentStore, cfg.PersistenceBackend))
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"

	// Rate limits (M = Minute)
	cfg.RateLimitAPI = getEnvOrDefault("RATE_LIMIT_API", "300-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "60-M")

	cfg.OtelEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// parseMs reads an integer millisecond value from the environment, falling
// back to def when unset. Non-positive or non-numeric values accumulate into errs.
func parseMs(key string, def int, errs []string) (time.Duration, []string) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return time.Duration(def) * time.Millisecond, errs
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return time.Duration(def) * time.Millisecond,
			append(errs, fmt.Sprintf("%s must be a positive integer millisecond value (got '%s')", key, raw))
	}
	return time.Duration(ms) * time.Millisecond, errs
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
