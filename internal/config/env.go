package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// LimitsConfig defines per-request upload limits.
type LimitsConfig struct {
	MaxTotalRequestSize int64
	MaxSingleFileSize   int64
	MaxFilesCount       int
}

// ConversionConfig defines how the external rasterizer is invoked.
type ConversionConfig struct {
	Binary  string
	Timeout time.Duration
}

// StorageConfig defines the transient working directories and retention.
type StorageConfig struct {
	UploadDir    string
	ConvertedDir string
	RetentionAge time.Duration
}

// Config is the top-level configuration, loaded once at startup and
// passed explicitly into each component.
type Config struct {
	Logging    LoggingConfig
	Axiom      AxiomConfig
	Limits     LimitsConfig
	Conversion ConversionConfig
	Storage    StorageConfig
	Port       string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/psdconvert.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_psdconvert",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	// Upload limits
	cfg.Limits = LimitsConfig{
		MaxTotalRequestSize: parseInt64(getEnv("MAX_TOTAL_REQUEST_SIZE", ""), 500*1024*1024),
		MaxSingleFileSize:   parseInt64(getEnv("MAX_SINGLE_FILE_SIZE", ""), 100*1024*1024),
		MaxFilesCount:       parseInt(getEnv("MAX_FILES_COUNT", "100"), 100),
	}

	// Conversion defaults; CONVERSION_TIMEOUT is in whole seconds
	cfg.Conversion = ConversionConfig{
		Binary:  getEnv("CONVERT_BINARY", "convert"),
		Timeout: time.Duration(parseInt(getEnv("CONVERSION_TIMEOUT", "30"), 30)) * time.Second,
	}

	// Working directories
	cfg.Storage = StorageConfig{
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		ConvertedDir: getEnv("CONVERTED_DIR", "converted"),
		RetentionAge: parseDuration(getEnv("RETENTION_MAX_AGE", "1h"), time.Hour),
	}

	cfg.Port = getEnv("PORT", "8080")

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" { return def }
	if n, err := strconv.Atoi(s); err == nil { return n }
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" { return def }
	if n, err := strconv.ParseInt(s, 10, 64); err == nil { return n }
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" { return def }
	if d, err := time.ParseDuration(s); err == nil { return d }
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" { return "true" }
	return "false"
}
