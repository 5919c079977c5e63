package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard fetcher
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// QuantConnect API
	QC QCConfig

	// Pipeline
	Pipeline PipelineConfig

	// Redis (optional result cache + shared rate limiter)
	Redis RedisConfig

	// Preview server
	Port      string
	StaticDir string

	// Scheduler
	Schedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// QCConfig holds QuantConnect API configuration
type QCConfig struct {
	UserID       string
	APIToken     string // Secret: never log
	ProjectID    int64  // 0 = track all accessible projects
	ProjectsFile string // Optional YAML list of tracked projects
	BaseURL      string
	Timeout      time.Duration
	RateLimit    int // requests per second
	MaxAttempts  int
}

// PipelineConfig holds settings for a single fetch-and-derive run
type PipelineConfig struct {
	OutputPath      string
	Workers         int
	RunTimeout      time.Duration
	EquityMaxPoints int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	projectID, err := getEnvAsInt64("QC_PROJECT_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("QC_PROJECT_ID: %w", err)
	}

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		QC: QCConfig{
			UserID:       getEnv("QC_USER_ID", ""),
			APIToken:     getEnv("QC_API_TOKEN", ""),
			ProjectID:    projectID,
			ProjectsFile: getEnv("QC_PROJECTS_FILE", ""),
			BaseURL:      getEnv("QC_BASE_URL", "https://www.quantconnect.com/api/v2"),
			Timeout:      getEnvAsDuration("QC_TIMEOUT", "30s"),
			RateLimit:    getEnvAsInt("QC_RATE_LIMIT", 5),
			MaxAttempts:  getEnvAsInt("QC_MAX_ATTEMPTS", 3),
		},

		Pipeline: PipelineConfig{
			OutputPath:      getEnv("OUTPUT_PATH", filepath.Join("data", "dashboard.json")),
			Workers:         getEnvAsInt("QC_WORKERS", 4),
			RunTimeout:      getEnvAsDuration("RUN_TIMEOUT", "5m"),
			EquityMaxPoints: getEnvAsInt("EQUITY_MAX_POINTS", 500),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Port:      getEnv("PORT", "8089"),
		StaticDir: getEnv("STATIC_DIR", ""),

		Schedule: getEnv("SCHEDULE", "0 */30 * * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that every command depends on
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 8 {
		return fmt.Errorf("QC_WORKERS must be between 1 and 8, got %d", c.Pipeline.Workers)
	}

	if c.QC.MaxAttempts < 1 {
		return fmt.Errorf("QC_MAX_ATTEMPTS must be at least 1, got %d", c.QC.MaxAttempts)
	}

	if c.QC.RateLimit < 1 {
		return fmt.Errorf("QC_RATE_LIMIT must be at least 1, got %d", c.QC.RateLimit)
	}

	if c.Pipeline.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}

	if c.Pipeline.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}

	return nil
}

// RequireCredentials checks that the QuantConnect secrets are present.
// Only commands that talk to the API call this; `serve` does not need them.
func (c *Config) RequireCredentials() error {
	if c.QC.UserID == "" || c.QC.APIToken == "" {
		return fmt.Errorf("QC_USER_ID and QC_API_TOKEN environment variables are required")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			// 이미 설정된 환경변수는 덮어쓰지 않음
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

// getEnvAsInt64 fails loudly: a mistyped project id must not silently widen tracking to all projects
func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid project id %q", valueStr)
	}

	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
