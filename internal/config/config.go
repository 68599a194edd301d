package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ocrprobe/internal/batch"
	"ocrprobe/internal/logger"
	"ocrprobe/internal/mistral"
	"ocrprobe/internal/ocr"
	"ocrprobe/internal/sheets"
)

type Config struct {
	// Mistral Configuration
	MistralAPIKey      string
	MistralBaseURL     string
	MistralOCRModel    string
	IncludeImageBase64 bool

	// Batch Configuration
	Documents            []string
	OutputDir            string // local directory or gs://bucket/prefix
	SignedURLExpiryHours int
	MaxFileSizeMB        int64
	HTTPTimeout          time.Duration
	RetryAttempts        uint

	// Google Cloud Configuration (gs:// output and sheet export)
	GoogleCredentials     string
	GoogleCredentialsFile string
	SheetURL              string
	SheetName             string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment and, when cfgFile is set,
// from that file. Environment variables take precedence over the file.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	config := &Config{
		MistralAPIKey:         v.GetString("MISTRAL_API_KEY"),
		MistralBaseURL:        v.GetString("MISTRAL_BASE_URL"),
		MistralOCRModel:       v.GetString("MISTRAL_OCR_MODEL"),
		IncludeImageBase64:    v.GetBool("OCR_INCLUDE_IMAGE_BASE64"),
		Documents:             getList(v, "OCR_DOCUMENTS"),
		OutputDir:             v.GetString("OCR_OUTPUT_DIR"),
		SignedURLExpiryHours:  v.GetInt("OCR_SIGNED_URL_EXPIRY_HOURS"),
		MaxFileSizeMB:         v.GetInt64("OCR_MAX_FILE_SIZE_MB"),
		HTTPTimeout:           v.GetDuration("OCR_HTTP_TIMEOUT"),
		RetryAttempts:         v.GetUint("OCR_RETRY_ATTEMPTS"),
		GoogleCredentials:     v.GetString("GOOGLE_CREDENTIALS"),
		GoogleCredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		SheetURL:              v.GetString("OCR_SHEET_URL"),
		SheetName:             v.GetString("OCR_SHEET_NAME"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
		LogTimeFormat:         v.GetString("LOG_TIME_FORMAT"),
		LogOutput:             v.GetString("LOG_OUTPUT"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MISTRAL_API_KEY", "")
	v.SetDefault("MISTRAL_BASE_URL", mistral.DefaultBaseURL)
	v.SetDefault("MISTRAL_OCR_MODEL", mistral.DefaultModel)
	v.SetDefault("OCR_INCLUDE_IMAGE_BASE64", true)
	v.SetDefault("OCR_DOCUMENTS", []string{})
	v.SetDefault("OCR_OUTPUT_DIR", ".")
	v.SetDefault("OCR_SIGNED_URL_EXPIRY_HOURS", mistral.DefaultSignedURLExpiryHours)
	v.SetDefault("OCR_MAX_FILE_SIZE_MB", ocr.DefaultMaxFileSizeBytes/1024/1024)
	v.SetDefault("OCR_HTTP_TIMEOUT", "0s")
	v.SetDefault("OCR_RETRY_ATTEMPTS", 1)
	v.SetDefault("GOOGLE_CREDENTIALS", "")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("OCR_SHEET_URL", "")
	v.SetDefault("OCR_SHEET_NAME", sheets.DefaultSheetName)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00")
	v.SetDefault("LOG_OUTPUT", "stderr")
}

func (c *Config) validate() error {
	if c.SignedURLExpiryHours <= 0 {
		return fmt.Errorf("OCR_SIGNED_URL_EXPIRY_HOURS must be positive, got %d", c.SignedURLExpiryHours)
	}
	if c.MaxFileSizeMB < 0 {
		return fmt.Errorf("OCR_MAX_FILE_SIZE_MB must not be negative, got %d", c.MaxFileSizeMB)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("OCR_HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OCR_OUTPUT_DIR must not be empty")
	}
	return nil
}

// RequireAPIKey reports a missing Mistral credential. Only commands that call
// the remote service need it.
func (c *Config) RequireAPIKey() error {
	if c.MistralAPIKey == "" {
		return fmt.Errorf("MISTRAL_API_KEY is required")
	}
	return nil
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

// GetMistralConfig returns the client configuration.
func (c *Config) GetMistralConfig() mistral.Config {
	return mistral.Config{
		APIKey:             c.MistralAPIKey,
		BaseURL:            c.MistralBaseURL,
		Model:              c.MistralOCRModel,
		Timeout:            c.HTTPTimeout,
		IncludeImageBase64: c.IncludeImageBase64,
		RetryAttempts:      c.RetryAttempts,
	}
}

// GetRunnerConfig returns the pipeline configuration.
func (c *Config) GetRunnerConfig() ocr.RunnerConfig {
	return ocr.RunnerConfig{
		SignedURLExpiryHours: c.SignedURLExpiryHours,
		MaxFileSizeBytes:     c.MaxFileSizeMB * 1024 * 1024,
	}
}

// GetSinkConfig returns where and how result files are written.
func (c *Config) GetSinkConfig() batch.SinkConfig {
	return batch.SinkConfig{
		Output:          c.OutputDir,
		CredentialsJSON: c.GoogleCredentials,
		CredentialsFile: c.GoogleCredentialsFile,
	}
}

// GetSheetsCredentials returns the service account used for the sheet export.
func (c *Config) GetSheetsCredentials() sheets.Credentials {
	return sheets.Credentials{
		JSON: c.GoogleCredentials,
		File: c.GoogleCredentialsFile,
	}
}

// getList reads a list that is either a YAML sequence or a comma separated
// string (as environment variables are), dropping blank entries.
func getList(v *viper.Viper, key string) []string {
	var values []string
	switch raw := v.Get(key).(type) {
	case string:
		values = strings.Split(raw, ",")
	case []string:
		values = raw
	case []any:
		for _, item := range raw {
			values = append(values, fmt.Sprint(item))
		}
	}

	var out []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
