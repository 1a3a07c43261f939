package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/awkns-projects/rom-gateway/internal/database"
	"github.com/awkns-projects/rom-gateway/internal/gateway"
	"github.com/awkns-projects/rom-gateway/internal/logging"
	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/ratelimit"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Vault     vault.Config     `mapstructure:"vault"`
	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
	Gateway   gateway.Config   `mapstructure:"gateway"`
	Logging   logging.Config   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	// Enabled switches the rate limiter to the Redis backend for
	// multi-instance deployments.
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	// AgentTokenSecret signs agent tokens. Required.
	AgentTokenSecret string `mapstructure:"agent_token_secret"`
	// SessionSecret validates the interactive session cookie.
	SessionSecret string `mapstructure:"session_secret"`
	// MasterToken guards the operator token-minting endpoint.
	MasterToken string `mapstructure:"master_token"`
	// RefreshGrace is the soft-expiry window before hard expiry during which
	// the gateway advertises a refresh hint.
	RefreshGrace time.Duration `mapstructure:"refresh_grace"`
}

func Load() (*Config, error) {
	return LoadWithPath("")
}

func LoadWithPath(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "rom_gateway")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.refresh_grace", "5m")
	viper.SetDefault("rate_limit.limit", 100)
	viper.SetDefault("rate_limit.window", "60s")
	viper.SetDefault("gateway.agent_routes", []string{"/api/agent"})
	viper.SetDefault("gateway.bypass_paths", []string{"/health", "/status", "/auth"})
	viper.SetDefault("gateway.trusted_hosts", []string{})
	viper.SetDefault("gateway.protected_routes", []string{"/api", "/app", "/admin"})
	viper.SetDefault("gateway.safe_paths", []string{"/", "/health"})
	viper.SetDefault("gateway.login_path", "/login")
	viper.SetDefault("gateway.register_path", "/register")
	viper.SetDefault("gateway.guest_path", "/auth/guest")
	viper.SetDefault("gateway.home_path", "/")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", "")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)

	// Read environment variables
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate checks the secrets the gateway cannot run without. Vault key
// precedence is resolved separately by the vault itself.
func (c *Config) Validate() error {
	if c.Auth.AgentTokenSecret == "" {
		return fmt.Errorf("%w: auth.agent_token_secret", models.ErrConfiguration)
	}
	if c.Auth.MasterToken == "" {
		return fmt.Errorf("%w: auth.master_token", models.ErrConfiguration)
	}
	return nil
}

// ToDBConfig converts DatabaseConfig to database.Config
func (c DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}
