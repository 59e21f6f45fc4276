/**
 * Configuration for the docverify server and worker
 *
 * Loads configuration from environment variables, optionally seeded from a
 * .env file by the entry points.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds service configuration
type Config struct {
	// HTTP server
	ListenAddr    string
	MaxUploadSize int64

	// Redis queue and job tracking
	RedisURL  string
	QueueName string
	JobTTLSec int

	// Language model backing the structured parser
	ModelBaseURL string
	ModelName    string
	ModelAPIKey  string

	// OCR configuration
	TesseractLanguages  string
	MinDetectConfidence float64
	LineTolerancePx     int

	// Verification thresholds
	MatchThreshold   float64
	PartialThreshold float64

	// Worker configuration
	WorkerConcurrency    int
	RecognizeConcurrency int
	ProcessingTimeoutSec int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ListenAddr:           getEnvOrDefault("LISTEN_ADDR", ":8080"),
		MaxUploadSize:        getEnvAsInt64OrDefault("MAX_UPLOAD_SIZE", 20971520), // 20MB
		RedisURL:             getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueName:            getEnvOrDefault("QUEUE_NAME", "docverify:jobs"),
		JobTTLSec:            getEnvAsIntOrDefault("JOB_TTL", 3600),
		ModelBaseURL:         getEnvOrDefault("MODEL_BASE_URL", "http://localhost:11434/v1"),
		ModelName:            getEnvOrDefault("MODEL_NAME", "phi3"),
		ModelAPIKey:          getEnvOrDefault("MODEL_API_KEY", ""),
		TesseractLanguages:   getEnvOrDefault("TESSERACT_LANGUAGES", "eng"),
		MinDetectConfidence:  getEnvAsFloatOrDefault("MIN_DETECT_CONFIDENCE", 0.30),
		LineTolerancePx:      getEnvAsIntOrDefault("LINE_TOLERANCE_PX", 20),
		MatchThreshold:       getEnvAsFloatOrDefault("MATCH_THRESHOLD", 90),
		PartialThreshold:     getEnvAsFloatOrDefault("PARTIAL_THRESHOLD", 60),
		WorkerConcurrency:    getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		RecognizeConcurrency: getEnvAsIntOrDefault("RECOGNIZE_CONCURRENCY", 4),
		ProcessingTimeoutSec: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.ModelBaseURL == "" {
		return fmt.Errorf("MODEL_BASE_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.RecognizeConcurrency < 1 || c.RecognizeConcurrency > 64 {
		return fmt.Errorf("RECOGNIZE_CONCURRENCY must be between 1 and 64, got %d", c.RecognizeConcurrency)
	}

	if c.MinDetectConfidence < 0 || c.MinDetectConfidence > 1 {
		return fmt.Errorf("MIN_DETECT_CONFIDENCE must be in [0,1], got %f", c.MinDetectConfidence)
	}

	if c.PartialThreshold < 0 || c.MatchThreshold > 100 || c.PartialThreshold >= c.MatchThreshold {
		return fmt.Errorf("verification thresholds must satisfy 0 <= PARTIAL_THRESHOLD < MATCH_THRESHOLD <= 100, got %f/%f",
			c.PartialThreshold, c.MatchThreshold)
	}

	if c.MaxUploadSize < 1024 || c.MaxUploadSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_UPLOAD_SIZE must be between 1KB and 1GB, got %d", c.MaxUploadSize)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
