// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Session signing. SessionSecretPrevious is only set during secret
	// rotation; tokens signed with it remain valid until they expire.
	SessionSecret         string `koanf:"session_secret"`
	SessionSecretPrevious string `koanf:"session_secret_previous"`

	// Redis (directory profile cache, rate limiting)
	RedisURL string `koanf:"redis_url"`

	// DingTalk directory integration. RedirectURI is the callback the
	// OAuth flow registers with DingTalk; it must match the app config.
	DingTalkAppKey      string `koanf:"dingtalk_app_key"`
	DingTalkAppSecret   string `koanf:"dingtalk_app_secret"`
	DingTalkRedirectURI string `koanf:"dingtalk_redirect_uri"`

	// Vision API (poster image analysis)
	VisionAPIKey  string `koanf:"vision_api_key"`
	VisionBaseURL string `koanf:"vision_base_url"`
	VisionModel   string `koanf:"vision_model"`

	// S3-compatible object storage for poster uploads
	S3BucketName      string `koanf:"s3_bucket_name"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3Region          string `koanf:"s3_region"`
	S3PublicBaseURL   string `koanf:"s3_public_base_url"`
	S3MaxUploadSizeMB int    `koanf:"s3_max_upload_size_mb"`

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrMissingSessionSecret   = errors.New("SESSION_SECRET is required")
	ErrMissingDingTalkAppKey  = errors.New("DINGTALK_APP_KEY is required when DINGTALK_APP_SECRET is set")
	ErrMissingDingTalkSecret  = errors.New("DINGTALK_APP_SECRET is required when DINGTALK_APP_KEY is set")
	ErrMissingVisionAPIKey    = errors.New("VISION_API_KEY is required when vision analysis is configured")
	ErrMissingS3BucketName    = errors.New("S3_BUCKET_NAME is required when S3 storage is configured")
	ErrMissingS3AccessKeyID   = errors.New("S3_ACCESS_KEY_ID is required when S3 storage is configured")
	ErrMissingS3SecretKey     = errors.New("S3_SECRET_ACCESS_KEY is required when S3 storage is configured")
	ErrMissingTracingEndpoint = errors.New("TRACING_ENDPOINT is required when tracing is enabled")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultS3Region        = "us-east-1"
	DefaultMaxUploadSizeMB = 10
	DefaultVisionModel     = "qwen-vl-plus"
	DefaultVisionBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	maxUploadSize, uploadSizeErr := getEnvIntOrDefault("S3_MAX_UPLOAD_SIZE_MB", k.Int("s3_max_upload_size_mb"), DefaultMaxUploadSizeMB)
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		tracingEnabled = parseBool(val, tracingEnabled)
	}

	corsOrigins := k.Strings("cors_allowed_origins")
	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		corsOrigins = splitAndTrim(val)
	}

	cfg := &Config{
		Port:                  port,
		Env:                   getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:           getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		SessionSecret:         getEnvOrKoanf("SESSION_SECRET", k, "session_secret"),
		SessionSecretPrevious: getEnvOrKoanf("SESSION_SECRET_PREVIOUS", k, "session_secret_previous"),
		RedisURL:              getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		DingTalkAppKey:        getEnvOrKoanf("DINGTALK_APP_KEY", k, "dingtalk_app_key"),
		DingTalkAppSecret:     getEnvOrKoanf("DINGTALK_APP_SECRET", k, "dingtalk_app_secret"),
		DingTalkRedirectURI:   getEnvOrKoanf("DINGTALK_REDIRECT_URI", k, "dingtalk_redirect_uri"),
		VisionAPIKey:          getEnvOrKoanf("VISION_API_KEY", k, "vision_api_key"),
		VisionBaseURL:         getEnvOrDefault("VISION_BASE_URL", k.String("vision_base_url"), DefaultVisionBaseURL),
		VisionModel:           getEnvOrDefault("VISION_MODEL", k.String("vision_model"), DefaultVisionModel),
		S3BucketName:          getEnvOrKoanf("S3_BUCKET_NAME", k, "s3_bucket_name"),
		S3AccessKeyID:         getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretAccessKey:     getEnvOrKoanf("S3_SECRET_ACCESS_KEY", k, "s3_secret_access_key"),
		S3Endpoint:            getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		S3Region:              getEnvOrDefault("S3_REGION", k.String("s3_region"), DefaultS3Region),
		S3PublicBaseURL:       getEnvOrKoanf("S3_PUBLIC_BASE_URL", k, "s3_public_base_url"),
		S3MaxUploadSizeMB:     maxUploadSize,
		CORSAllowedOrigins:    corsOrigins,
		TracingEnabled:        tracingEnabled,
		TracingEndpoint:       getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.SessionSecret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}

	// DingTalk integration is optional, but both halves travel together.
	if c.DingTalkAppKey != "" && c.DingTalkAppSecret == "" {
		errs = append(errs, ErrMissingDingTalkSecret)
	}
	if c.DingTalkAppSecret != "" && c.DingTalkAppKey == "" {
		errs = append(errs, ErrMissingDingTalkAppKey)
	}

	// S3 storage is optional. Only validate fields if any S3 value is set.
	if c.S3BucketName != "" || c.S3AccessKeyID != "" || c.S3SecretAccessKey != "" || c.S3Endpoint != "" {
		if c.S3BucketName == "" {
			errs = append(errs, ErrMissingS3BucketName)
		}
		if c.S3AccessKeyID == "" {
			errs = append(errs, ErrMissingS3AccessKeyID)
		}
		if c.S3SecretAccessKey == "" {
			errs = append(errs, ErrMissingS3SecretKey)
		}
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		errs = append(errs, ErrMissingTracingEndpoint)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"session_secret":        maskSecret(c.SessionSecret),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"dingtalk_app_key":      maskSecret(c.DingTalkAppKey),
		"dingtalk_app_secret":   maskSecret(c.DingTalkAppSecret),
		"vision_api_key":        maskSecret(c.VisionAPIKey),
		"vision_base_url":       c.VisionBaseURL,
		"vision_model":          c.VisionModel,
		"s3_bucket_name":        c.S3BucketName,
		"s3_access_key_id":      maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":  maskSecret(c.S3SecretAccessKey),
		"s3_endpoint":           c.S3Endpoint,
		"s3_region":             c.S3Region,
		"s3_public_base_url":    c.S3PublicBaseURL,
		"s3_max_upload_size_mb": fmt.Sprintf("%d", c.S3MaxUploadSizeMB),
		"cors_allowed_origins":  strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":      c.TracingEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Supports postgres://, postgresql://, and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
