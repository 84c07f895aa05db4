package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Approval   ApprovalConfig   `mapstructure:"approval"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds bill document storage configuration
type StorageConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// ExtractionConfig holds document extraction configuration. Provider is one
// of veryfi, openai or none.
type ExtractionConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Veryfi   VeryfiConfig  `mapstructure:"veryfi"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
}

// VeryfiConfig holds Veryfi API credentials
type VeryfiConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	APIKey   string `mapstructure:"api_key"`
}

// OpenAIConfig holds OpenAI API configuration for the vision extractor
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ApprovalConfig holds approval-routing configuration
type ApprovalConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/purchases.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("storage.dir", "uploads")
	viper.SetDefault("storage.base_url", "/uploads")

	viper.SetDefault("extraction.provider", "veryfi")
	viper.SetDefault("extraction.timeout", 30*time.Second)
	viper.SetDefault("extraction.veryfi.base_url", "https://api.veryfi.com")
	viper.SetDefault("extraction.openai.model", "gpt-4o")

	viper.SetDefault("approval.threshold", 10000)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("extraction.veryfi.client_id", "VERYFI_CLIENT_ID")
	viper.BindEnv("extraction.veryfi.username", "VERYFI_USERNAME")
	viper.BindEnv("extraction.veryfi.api_key", "VERYFI_API_KEY")
	viper.BindEnv("extraction.openai.api_key", "OPENAI_API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case "veryfi":
		if c.Extraction.Veryfi.ClientID == "" {
			return fmt.Errorf("extraction.veryfi.client_id is required")
		}
		if c.Extraction.Veryfi.Username == "" {
			return fmt.Errorf("extraction.veryfi.username is required")
		}
		if c.Extraction.Veryfi.APIKey == "" {
			return fmt.Errorf("extraction.veryfi.api_key is required")
		}
	case "openai":
		if c.Extraction.OpenAI.APIKey == "" {
			return fmt.Errorf("extraction.openai.api_key is required")
		}
	case "none":
	default:
		return fmt.Errorf("extraction.provider must be veryfi, openai or none, got %q", c.Extraction.Provider)
	}

	if c.Approval.Threshold <= 0 {
		return fmt.Errorf("approval.threshold must be positive")
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	return nil
}
