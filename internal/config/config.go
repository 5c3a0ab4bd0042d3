package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Slack    SlackConfig    `json:"slack" mapstructure:"slack"`
	OpenAI   ProviderConfig `json:"openai" mapstructure:"openai"`
	Sheets   SheetsConfig   `json:"sheets" mapstructure:"sheets"`
	Quota    QuotaConfig    `json:"quota" mapstructure:"quota"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`

	// GPTRateLimit is the number of /api/v1/gpt calls allowed per client per minute
	GPTRateLimit int    `json:"gpt_rate_limit" mapstructure:"gpt_rate_limit"`
	CORSOrigins  string `json:"cors_origins" mapstructure:"cors_origins"`
}

// DatabaseConfig points at the optional Postgres audit database.
// Auditing is disabled unless Enabled is set.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`

	// RetentionDays is how long interaction logs are kept; 0 keeps them forever
	RetentionDays int `json:"retention_days" mapstructure:"retention_days"`
}

type SlackConfig struct {
	BotToken      string `json:"bot_token" mapstructure:"bot_token"`
	SigningSecret string `json:"signing_secret,omitempty" mapstructure:"signing_secret"`

	// ProcessTimeout bounds one asynchronous message-processing run
	ProcessTimeout time.Duration `json:"process_timeout" mapstructure:"process_timeout"`
}

type ProviderConfig struct {
	Type         string `json:"type" mapstructure:"type"`
	Name         string `json:"name" mapstructure:"name"`
	BaseURL      string `json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey       string `json:"api_key,omitempty" mapstructure:"api_key"`
	DefaultModel string `json:"default_model" mapstructure:"default_model"`
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`

	// Temperature is left to the provider when unset; MaxTokens 0 means no cap
	Temperature *float32 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens,omitempty" mapstructure:"max_tokens"`

	// Consecutive failures before completions fail fast, and how long they do
	BreakerFailures int           `json:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `json:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsPath string `json:"credentials_path" mapstructure:"credentials_path"`
	Range           string `json:"range" mapstructure:"range"`
}

type QuotaConfig struct {
	DailyTokenLimit     int `json:"daily_token_limit" mapstructure:"daily_token_limit"`
	ResetUTCOffsetHours int `json:"reset_utc_offset_hours" mapstructure:"reset_utc_offset_hours"`
	MaxMessages         int `json:"max_messages" mapstructure:"max_messages"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

const DefaultSystemPrompt = "あなたはSlackのスレッドで質問に答えるアシスタントです。スレッドの流れを踏まえて、簡潔かつ丁寧に日本語で回答してください。"

func Load() (*Config, error) {
	// A missing .env is the normal case in production
	_ = godotenv.Load()

	viper.SetConfigName("config")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".slackgpt"))
	}

	setDefaults()

	// Read config
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

	// Load environment variables
	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.gpt_rate_limit", 30)
	viper.SetDefault("server.cors_origins", "*")
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "slackgpt")
	viper.SetDefault("database.database", "slackgpt")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.retention_days", 90)
	viper.SetDefault("slack.process_timeout", "2m")
	viper.SetDefault("openai.type", "openai")
	viper.SetDefault("openai.name", "OpenAI")
	viper.SetDefault("openai.default_model", "gpt-4o")
	viper.SetDefault("openai.system_prompt", DefaultSystemPrompt)
	viper.SetDefault("openai.breaker_failures", 5)
	viper.SetDefault("openai.breaker_cooldown", "30s")
	viper.SetDefault("sheets.range", "Activity!A:E")
	viper.SetDefault("quota.daily_token_limit", 20000)
	viper.SetDefault("quota.reset_utc_offset_hours", 9)
	viper.SetDefault("quota.max_messages", 20)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func loadEnvOverrides(cfg *Config) {
	// Credentials keep the names the bot has always been deployed with
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		cfg.Slack.SigningSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.DefaultModel = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_PATH"); v != "" {
		cfg.Sheets.CredentialsPath = v
	}

	if port := os.Getenv("SLACKGPT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("SLACKGPT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if origins := os.Getenv("SLACKGPT_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
		cfg.Database.Enabled = true
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}
}

// Validate reports every required credential that is missing
func (c *Config) Validate() error {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Sheets.SpreadsheetID == "" {
		missing = append(missing, "SPREADSHEET_ID")
	}
	if c.Sheets.CredentialsPath == "" {
		missing = append(missing, "GOOGLE_CREDENTIALS_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if _, err := os.Stat(c.Sheets.CredentialsPath); err != nil {
		return fmt.Errorf("google credentials file not found at %s: %w", c.Sheets.CredentialsPath, err)
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
