package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Model backends
	OpenAIAPIKey   string
	GeminiAPIKey   string
	BedrockModelID string
	DefaultModel   string

	// Deliberation engine
	MaxRounds            int
	ConvergenceThreshold float64
	ConfidenceFloor      float64
	CallTimeout          time.Duration
	MaxAttempts          int
	MaxConcurrentCalls   int
	SafetyBias           bool
	EnableReviewer       bool

	// Persistence / export
	ArtifactDir    string
	ArtifactBucket string
	ArtifactTTL    time.Duration
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		DefaultModel:   getEnv("DEFAULT_MODEL", "gpt-4o-mini"),

		MaxRounds:            getEnvAsInt("MAX_ROUNDS", 3),
		ConvergenceThreshold: getEnvAsFloat("CONVERGENCE_THRESHOLD", 0.8),
		ConfidenceFloor:      getEnvAsFloat("CONFIDENCE_FLOOR", 0.4),
		CallTimeout:          getEnvAsDuration("CALL_TIMEOUT", 30*time.Second),
		MaxAttempts:          getEnvAsInt("MAX_ATTEMPTS", 2),
		MaxConcurrentCalls:   getEnvAsInt("MAX_CONCURRENT_CALLS", 8),
		SafetyBias:           getEnvAsBool("SAFETY_BIAS", true),
		EnableReviewer:       getEnvAsBool("ENABLE_SKEPTICAL_REVIEWER", false),

		ArtifactDir:    getEnv("ARTIFACT_DIR", "artifacts"),
		ArtifactBucket: getEnv("ARTIFACT_BUCKET", ""),
		ArtifactTTL:    getEnvAsDuration("ARTIFACT_CACHE_TTL", 24*time.Hour),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
