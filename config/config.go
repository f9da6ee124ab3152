package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultLanguage is the language diagnoses are produced in. Translate
// requests for this code are served without an external call.
const DefaultLanguage = "en"

// languageCodeMap maps 2-letter language codes to full language names
// understood by the translation prompt.
var languageCodeMap = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"bn": "Bengali",
	"te": "Telugu",
	"ta": "Tamil",
	"mr": "Marathi",
	"pa": "Punjabi",
	"sw": "Swahili",
	"fr": "French",
	"es": "Spanish",
	"pt": "Portuguese",
}

// Config holds all configuration for the crop advisor service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// LLM provider configuration
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// Diagnosis configuration
	DiagnosisTimeout time.Duration
	StreamEnabled    bool
	MaxImageBytes    int

	// History configuration
	PredictionHistoryLimit int
	ActivityLogLimit       int

	// Auth configuration
	JWTSecret string

	// Rate limiting (requests per second per client, with burst)
	RateLimitRPS   float64
	RateLimitBurst int

	// RabbitMQ configuration
	AMQPURL                  string
	AMQPExchange             string
	PredictionDoneRoutingKey string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "cropadvisor"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// LLM defaults
		LLMProvider:  getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),

		// Diagnosis defaults
		DiagnosisTimeout: getDurationEnv("DIAGNOSIS_TIMEOUT", 90*time.Second),
		StreamEnabled:    getBoolEnv("STREAM_ENABLED", true),
		MaxImageBytes:    getIntEnv("MAX_IMAGE_BYTES", 8*1024*1024),

		// History defaults
		PredictionHistoryLimit: getIntEnv("PREDICTION_HISTORY_LIMIT", 20),
		ActivityLogLimit:       getIntEnv("ACTIVITY_LOG_LIMIT", 50),

		// Auth defaults
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate limiting defaults
		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 5),

		// RabbitMQ defaults (empty URL disables publishing)
		AMQPURL:                  getEnv("AMQP_URL", ""),
		AMQPExchange:             getEnv("AMQP_EXCHANGE", "crop_advisor"),
		PredictionDoneRoutingKey: getEnv("PREDICTION_DONE_ROUTING_KEY", "prediction.completed"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// LanguageName resolves a 2-letter language code to the full language name
// used in translation prompts. Unknown codes are passed through as-is.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if fullName, exists := languageCodeMap[code]; exists {
		return fullName
	}
	return code
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
