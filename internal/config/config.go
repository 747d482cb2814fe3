package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"scanreport/internal/logger"
)

// Config holds all process-wide settings. It is constructed once at startup
// and handed to service constructors; nothing below cmd/ reads the
// environment directly.
type Config struct {
	// Together AI Configuration (chat completion + vision extraction)
	TogetherAPIKey  string
	TogetherBaseURL string

	// Gemini Configuration (second vision extraction vendor)
	GeminiAPIKey string
	GeminiModel  string

	// Google Cloud Configuration (optional Cloud Vision engine)
	GoogleCredentials            string
	GoogleApplicationCredentials string

	// OCR defaults
	OCRLanguage      string
	PreferredBackend string
	TesseractLang    string

	// Enhancement Configuration
	EnhanceModels   []string
	VisionModel     string
	MaxTokens       int
	Temperature     float32
	RequestTimeout  time.Duration
	DefaultLanguage string
	ReportType      string

	// Storage Configuration
	DatabasePath string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// defaultEnhanceModels is the ordered fallback chain, strongest first.
var defaultEnhanceModels = []string{
	"meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
	"mistralai/Mistral-7B-Instruct-v0.3",
	"gpt-3.5-turbo",
}

func Load() (*Config, error) {
	config := &Config{
		TogetherAPIKey:               getEnv("TOGETHER_API_KEY", ""),
		TogetherBaseURL:              getEnv("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
		GeminiAPIKey:                 getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GoogleCredentials:            getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		OCRLanguage:                  getEnv("OCR_LANGUAGE", "eng"),
		PreferredBackend:             getEnv("OCR_BACKEND", ""),
		TesseractLang:                getEnv("TESSERACT_LANG", "eng"),
		VisionModel:                  getEnv("VISION_MODEL", "meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo"),
		MaxTokens:                    parseIntEnv("ENHANCE_MAX_TOKENS", 2000),
		Temperature:                  parseFloatEnv("ENHANCE_TEMPERATURE", 0.7),
		RequestTimeout:               time.Duration(parseIntEnv("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		DefaultLanguage:              getEnv("REPORT_LANGUAGE", "english"),
		ReportType:                   getEnv("REPORT_TYPE", "general"),
		DatabasePath:                 getEnv("DATABASE_PATH", ""),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                    getEnv("LOG_OUTPUT", "stdout"),
	}

	if models := getEnv("ENHANCE_MODELS", ""); models != "" {
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				config.EnhanceModels = append(config.EnhanceModels, m)
			}
		}
	} else {
		config.EnhanceModels = defaultEnhanceModels
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks internal consistency. Missing API keys are deliberately not
// errors: the pipeline degrades to offline substitutes without them.
func (c *Config) validate() error {
	if len(c.EnhanceModels) == 0 {
		return fmt.Errorf("ENHANCE_MODELS must name at least one model")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("ENHANCE_MAX_TOKENS must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// HasTogetherCredentials reports whether the Together AI backend is reachable.
func (c *Config) HasTogetherCredentials() bool {
	return c.TogetherAPIKey != ""
}

// HasGeminiCredentials reports whether the Gemini backend is reachable.
func (c *Config) HasGeminiCredentials() bool {
	return c.GeminiAPIKey != ""
}

// HasGoogleCredentials reports whether Cloud Vision credentials are present.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleCredentials != "" || c.GoogleApplicationCredentials != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
