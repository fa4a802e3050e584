// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like BACKEND_CLIENT_SECRET
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory upwards so tests in
// nested packages pick it up too.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from plain environment variables when
// the yaml left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Backend.ClientID == "" {
		if val := os.Getenv("BACKEND_CLIENT_ID"); val != "" {
			cfg.Backend.ClientID = val
		}
	}
	if cfg.Backend.ClientSecret == "" {
		if val := os.Getenv("BACKEND_CLIENT_SECRET"); val != "" {
			cfg.Backend.ClientSecret = val
		}
	}
	if cfg.Chat.BotToken == "" {
		if val := os.Getenv("CHAT_BOT_TOKEN"); val != "" {
			cfg.Chat.BotToken = val
		}
	}
	if cfg.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30000
	}
	if cfg.Backend.TokenSkewSeconds == 0 {
		cfg.Backend.TokenSkewSeconds = 30
	}
	if cfg.Verify.Timeout == 0 {
		cfg.Verify.Timeout = 10000
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = 30000
	}

	if cfg.Review.ApproveEmoji == "" {
		cfg.Review.ApproveEmoji = "✅"
	}
	if cfg.Review.RejectEmoji == "" {
		cfg.Review.RejectEmoji = "❌"
	}
	if cfg.Review.ReactionDelay == 0 {
		cfg.Review.ReactionDelay = 500
	}
	if cfg.Decision.DMDelay == 0 {
		cfg.Decision.DMDelay = 500
	}

	if cfg.Validation.MaxAnswerLength == 0 {
		cfg.Validation.MaxAnswerLength = 1024
	}
	if cfg.Validation.MinAnswerLength == 0 {
		cfg.Validation.MinAnswerLength = 20
	}
	if cfg.Validation.MinAge == 0 {
		cfg.Validation.MinAge = 13
	}
	if cfg.Validation.MaxAge == 0 {
		cfg.Validation.MaxAge = 120
	}
	if cfg.Validation.MaxErrors == 0 {
		cfg.Validation.MaxErrors = 8
	}
	if cfg.Validation.Image.MinCount == 0 {
		cfg.Validation.Image.MinCount = 1
	}
	if cfg.Validation.Image.MaxCount == 0 {
		cfg.Validation.Image.MaxCount = 10
	}
	if cfg.Validation.Image.MaxBytes == 0 {
		cfg.Validation.Image.MaxBytes = 8 << 20
	}
	if len(cfg.Validation.Image.AllowedTypes) == 0 {
		cfg.Validation.Image.AllowedTypes = []string{"image/png", "image/jpeg", "image/webp"}
	}

	if cfg.Identity.TTLMinutes == 0 {
		cfg.Identity.TTLMinutes = 10
	}

	if cfg.Notifications.Workers == 0 {
		cfg.Notifications.Workers = 4
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 64
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.TokenURL == "" {
		return fmt.Errorf("backend.token_url is required")
	}
	if cfg.Chat.BaseURL == "" {
		return fmt.Errorf("chat.base_url is required")
	}
	if cfg.Review.ChannelID == "" {
		return fmt.Errorf("review.channel_id is required")
	}
	if cfg.Decision.StorageChannelID == "" {
		return fmt.Errorf("decision.storage_channel_id is required")
	}
	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}
	return nil
}
