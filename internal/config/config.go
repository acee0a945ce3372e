// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken string
	OwnerID  int64
	Credit   string
	BotDebug bool

	// Server
	Host     string
	Port     string
	Env      string
	LogLevel string

	// Downloader
	YtDlpPath       string
	FFmpegPath      string
	MaxFileSize     int64
	MaxDuration     int
	DownloadTimeout time.Duration
	ProbeTimeout    time.Duration

	// Progress
	ProgressInterval time.Duration

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Cleanup
	SweepInterval time.Duration
	LocalMaxAge   time.Duration
	R2MaxFileAge  time.Duration

	// Paths
	DownloadDir string
	DataDir     string
	CookiesFile string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Telegram
		BotToken: getEnv("BOT_TOKEN", ""),
		OwnerID:  getEnvInt64("OWNER_ID", 0),
		Credit:   getEnv("CREDIT", ""),
		BotDebug: getEnvBool("BOT_DEBUG", false),

		// Server
		Host:     getEnv("HOST", "0.0.0.0"),
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Downloader
		YtDlpPath:       getEnv("YT_DLP_PATH", "yt-dlp"),
		FFmpegPath:      getEnv("FFMPEG_PATH", ""),
		MaxFileSize:     getEnvInt64("MAX_FILE_SIZE", 2147483648), // 2GB
		MaxDuration:     getEnvInt("MAX_DURATION", 10800),         // 3 hours
		DownloadTimeout: time.Duration(getEnvInt("DOWNLOAD_TIMEOUT", 3600)) * time.Second,
		ProbeTimeout:    time.Duration(getEnvInt("PROBE_TIMEOUT", 30)) * time.Second,

		// Progress
		ProgressInterval: time.Duration(getEnvInt("PROGRESS_INTERVAL_MS", 3000)) * time.Millisecond,

		// R2 Storage
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),

		// Cleanup
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL", 30)) * time.Minute,
		LocalMaxAge:   time.Duration(getEnvInt("LOCAL_MAX_AGE", 60)) * time.Minute,
		R2MaxFileAge:  time.Duration(getEnvInt("R2_MAX_FILE_AGE", 1440)) * time.Minute,

		// Paths
		DownloadDir: getEnv("DOWNLOAD_DIR", "./downloads"),
		DataDir:     getEnv("DATA_DIR", "./data"),
		CookiesFile: getEnv("COOKIES_FILE", "cookies.txt"),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}

	return cfg, nil
}

// R2Enabled reports whether all R2 credentials are present.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
