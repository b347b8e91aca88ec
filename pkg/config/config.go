package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the portal
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
	LLM      LLMConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"HOST"`
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	Environment     string        `mapstructure:"ENVIRONMENT"` // development, staging, production
	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`
}

// DatabaseConfig holds configuration for the portal database
type DatabaseConfig struct {
	URL          string        `mapstructure:"URL"`
	Host         string        `mapstructure:"HOST"`
	Port         int           `mapstructure:"PORT"`
	User         string        `mapstructure:"USER"`
	Password     string        `mapstructure:"PASSWORD"`
	Name         string        `mapstructure:"NAME"`
	SSLMode      string        `mapstructure:"SSL_MODE"`
	MaxOpenConns int           `mapstructure:"MAX_OPEN_CONNS"`
	MaxIdleConns int           `mapstructure:"MAX_IDLE_CONNS"`
	MaxLifetime  time.Duration `mapstructure:"MAX_LIFETIME"`
}

// DSN returns the data source name for connecting to the database
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string `mapstructure:"REDIS_URL"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// Address returns the Redis address
func (c *RedisConfig) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	JWTExpiryMinutes  int    `mapstructure:"JWT_EXPIRY_MINUTES"`
	RefreshExpiryDays int    `mapstructure:"REFRESH_EXPIRY_DAYS"`
}

// JWTExpiry returns the JWT expiry duration
func (c *AuthConfig) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryMinutes) * time.Minute
}

// RefreshExpiry returns the refresh token expiry duration
func (c *AuthConfig) RefreshExpiry() time.Duration {
	return time.Duration(c.RefreshExpiryDays) * 24 * time.Hour
}

// EmailConfig holds outbound email configuration
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	From         string `mapstructure:"EMAIL_FROM"`
	PortalURL    string `mapstructure:"PORTAL_URL"` // base URL used in email links
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	DefaultProvider string `mapstructure:"LLM_DEFAULT_PROVIDER"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	ChatPerMinute   int    `mapstructure:"LLM_CHAT_PER_MINUTE"` // per-user chat rate limit
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file from current dir or parent dirs (for running from cmd/)
	loadEnvFile()

	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bobbridge/")

	// Ignore error if config file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables (for Railway/PaaS compatibility)
	overrideFromEnv(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// overrideFromEnv reads common environment variables and overrides config values
func overrideFromEnv(config *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		config.Redis.URL = url
	}

	// Auth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if val := os.Getenv("JWT_EXPIRY_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			config.Auth.JWTExpiryMinutes = minutes
		}
	}
	if val := os.Getenv("REFRESH_EXPIRY_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			config.Auth.RefreshExpiryDays = days
		}
	}

	// Apply defaults if values are 0 (safety net for viper key mismatch)
	if config.Auth.JWTExpiryMinutes == 0 {
		config.Auth.JWTExpiryMinutes = 15
	}
	if config.Auth.RefreshExpiryDays == 0 {
		config.Auth.RefreshExpiryDays = 7
	}

	// Email
	if val := os.Getenv("RESEND_API_KEY"); val != "" {
		config.Email.ResendAPIKey = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		config.Email.From = val
	}
	if val := os.Getenv("PORTAL_URL"); val != "" {
		config.Email.PortalURL = val
	}

	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Server.Environment = env
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = origins
	}

	// LLM settings
	if val := os.Getenv("LLM_DEFAULT_PROVIDER"); val != "" {
		config.LLM.DefaultProvider = val
	}
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		config.LLM.AnthropicAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		config.LLM.OpenAIAPIKey = val
	}
	if val := os.Getenv("LLM_CHAT_PER_MINUTE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.LLM.ChatPerMinute = n
		}
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("Server.Host", "0.0.0.0")
	v.SetDefault("Server.Port", 8080)
	v.SetDefault("Server.ShutdownTimeout", 10*time.Second)
	v.SetDefault("Server.Environment", "development")
	v.SetDefault("Server.AllowedOrigins", "https://portal.bobbridge.io,https://app.bobbridge.io")

	// Database defaults
	v.SetDefault("Database.Host", "localhost")
	v.SetDefault("Database.Port", 5432)
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Database.MaxOpenConns", 25)
	v.SetDefault("Database.MaxIdleConns", 5)
	v.SetDefault("Database.MaxLifetime", 5*time.Minute)

	// Redis defaults
	v.SetDefault("Redis.Host", "localhost")
	v.SetDefault("Redis.Port", 6379)
	v.SetDefault("Redis.DB", 0)

	// Auth defaults (keys match mapstructure tags)
	v.SetDefault("Auth.JWT_EXPIRY_MINUTES", 15)
	v.SetDefault("Auth.REFRESH_EXPIRY_DAYS", 7)

	// Email defaults
	v.SetDefault("Email.EMAIL_FROM", "BobBridge <no-reply@bobbridge.io>")
	v.SetDefault("Email.PORTAL_URL", "https://portal.bobbridge.io")

	// LLM defaults
	v.SetDefault("LLM.DefaultProvider", "anthropic")
	v.SetDefault("LLM.ChatPerMinute", 10)
}

func validate(config *Config) error {
	// In production, certain fields are required
	if config.Server.Environment == "production" {
		if config.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}
	return nil
}

// loadEnvFile attempts to load .env file from current directory or parent directories
func loadEnvFile() {
	if err := godotenv.Load(); err == nil {
		return
	}

	// Walk up to find .env (useful when running from cmd/)
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
