package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabasePath   string `mapstructure:"DATABASE_PATH" validate:"required"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND" validate:"oneof=json sqlite redis"`
	HistoryFile    string `mapstructure:"HISTORY_FILE" validate:"required_if=StorageBackend json"`
	RedisAddr      string `mapstructure:"REDIS_ADDR" validate:"required_if=StorageBackend redis"`
	RedisKey       string `mapstructure:"REDIS_KEY"`

	LLMProvider          string        `mapstructure:"LLM_PROVIDER" validate:"oneof=ollama openai gemini"`
	LLMBaseURL           string        `mapstructure:"LLM_BASE_URL" validate:"omitempty,url"`
	LLMAPIKey            string        `mapstructure:"LLM_API_KEY" validate:"required_if=LLMProvider gemini"`
	LLMModel             string        `mapstructure:"LLM_MODEL" validate:"required"`
	LLMTemperature       float32       `mapstructure:"LLM_TEMPERATURE" validate:"min=0,max=2"`
	LLMMaxTokens         int           `mapstructure:"LLM_MAX_TOKENS" validate:"min=0"`
	LLMTopP              float32       `mapstructure:"LLM_TOP_P" validate:"min=0,max=1"`
	LLMTimeout           time.Duration `mapstructure:"LLM_TIMEOUT" validate:"min=1s"`
	LLMRequestsPerMinute int           `mapstructure:"LLM_REQUESTS_PER_MINUTE" validate:"min=0"`
	InitialSystemPrompt  string        `mapstructure:"INITIAL_SYSTEM_PROMPT"`

	ImageDir           string        `mapstructure:"IMAGE_DIR" validate:"required"`
	ImageMaxDimension  int           `mapstructure:"IMAGE_MAX_DIMENSION" validate:"min=16"`
	FeedbackSink       string        `mapstructure:"FEEDBACK_SINK" validate:"oneof=sqlite log"`
	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT" validate:"min=0"`
}

var configKeys = map[string]any{
	"APP_PORT":                8000,
	"LOG_LEVEL":               "INFO",
	"DATABASE_PATH":           "./data/intellimind.db",
	"STORAGE_BACKEND":         "json",
	"HISTORY_FILE":            "./data/chat_history.json",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_KEY":               "intellimind:chats",
	"LLM_PROVIDER":            "ollama",
	"LLM_BASE_URL":            "",
	"LLM_API_KEY":             "",
	"LLM_MODEL":               "llama3.1",
	"LLM_TEMPERATURE":         0.7,
	"LLM_MAX_TOKENS":          256,
	"LLM_TOP_P":               0.9,
	"LLM_TIMEOUT":             "60s",
	"LLM_REQUESTS_PER_MINUTE": 30,
	"INITIAL_SYSTEM_PROMPT":   "You are IntelliMind, a helpful assistant.",
	"IMAGE_DIR":               "./data/images",
	"IMAGE_MAX_DIMENSION":     1024,
	"FEEDBACK_SINK":           "sqlite",
	"SESSION_IDLE_TIMEOUT":    "30m",
}

// LoadConfig reads .env into the process environment, then layers an optional
// config.yaml, environment variables and defaults through viper.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	for key, value := range configKeys {
		viper.SetDefault(key, value)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	cfg.FeedbackSink = strings.ToLower(cfg.FeedbackSink)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
