package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload limits
	MaxFileSize int64 // hard cap on the request body
	MaxMemory   int64 // multipart parts above this spill to temp files

	// Chunking
	MaxChunkSize int // words per chunk

	// Transient storage
	FileStorageDir       string
	StorageSweepInterval time.Duration
	StorageSweepAge      time.Duration

	// Extraction
	ExtractionWorkers int
	MaxExtractSize    int64

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int // seconds

	// Redis Configuration (optional, rate limiting falls back to in-process buckets)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Telemetry
	OTLPEndpoint     string
	TraceSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "quiz-app-ingest"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 20971520), // 20MB
		MaxMemory:   getEnvInt64("MAX_MEMORY", 8388608),     // 8MB

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),

		FileStorageDir:       getEnv("FILE_STORAGE_DIR", "./storage"),
		StorageSweepInterval: getEnvDuration("STORAGE_SWEEP_INTERVAL", 10*time.Minute),
		StorageSweepAge:      getEnvDuration("STORAGE_SWEEP_AGE", time.Hour),

		ExtractionWorkers: getEnvInt("EXTRACTION_WORKERS", runtime.NumCPU()),
		MaxExtractSize:    getEnvInt64("MAX_EXTRACT_SIZE", 209715200), // 200MB safety cap

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		TraceSampleRatio: getEnvFloat64("TRACE_SAMPLE_RATIO", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the ingestion pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.MaxMemory <= 0 {
		return fmt.Errorf("MAX_MEMORY must be positive")
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be positive")
	}
	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	if c.FileStorageDir == "" {
		return fmt.Errorf("FILE_STORAGE_DIR is required")
	}
	if c.ExtractionWorkers <= 0 {
		c.ExtractionWorkers = 1
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1")
	}
	return nil
}

// UploadDir is where transient upload artifacts live.
func (c *Config) UploadDir() string {
	return filepath.Join(c.FileStorageDir, "uploads")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
