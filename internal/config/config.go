package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when GEMINI_API_KEY is not set. The service
// must not start without it.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set; define it in the environment or a .env file")

const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel        = "gemini-2.0-flash"
	DefaultMaxMessages  = 200
	DefaultMaxBodyBytes = 1 << 20
)

type Config struct {
	Port           string
	APIKey         string
	BaseURL        string
	Model          string
	AllowedOrigins []string
	// Take the client address from X-Forwarded-For / X-Real-IP. Only safe
	// behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
	// Tracing
	TracingDisabled bool
	OTLPEndpoint    string
	OTLPProtocol    string
	OTLPInsecure    bool
	// Optional YAML agent definition; empty means the built-in agent
	AgentSpecFile string
	// Request limits
	MaxMessages     int
	MaxBodyBytes    int64
	UpstreamTimeout time.Duration
	RateLimitRPM    int
	RateLimitBurst  int
	LogLevel        string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit .env path. Unlike Load, a missing file is
// an error.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("load env file %s: %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Port:              getEnvDefault("PORT", "8000"),
		APIKey:            strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		BaseURL:           getEnvDefault("MODEL_BASE_URL", DefaultBaseURL),
		Model:             getEnvDefault("MODEL_NAME", DefaultModel),
		AllowedOrigins:    getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		TrustProxyHeaders: getEnvBoolDefault("TRUST_PROXY_HEADERS", false),
		TracingDisabled:   getEnvBoolDefault("TRACING_DISABLED", true),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPProtocol:      getEnvDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		OTLPInsecure:      getEnvBoolDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		AgentSpecFile:     os.Getenv("AGENT_SPEC_FILE"),
		MaxMessages:       getEnvIntDefault("MAX_MESSAGES", DefaultMaxMessages),
		MaxBodyBytes:      int64(getEnvIntDefault("MAX_BODY_BYTES", DefaultMaxBodyBytes)),
		UpstreamTimeout:   getEnvDurationDefault("UPSTREAM_TIMEOUT", 0),
		RateLimitRPM:      getEnvIntDefault("RATE_LIMIT_RPM", 0),
		RateLimitBurst:    getEnvIntDefault("RATE_LIMIT_BURST", 5),
		LogLevel:          getEnvDefault("LOG_LEVEL", "info"),
	}
	if cfg.APIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getEnvBoolDefault(key string, def bool) bool {
	switch strings.ToLower(getEnvDefault(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
