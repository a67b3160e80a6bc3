// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ RabbitMQConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
	Provider ProviderConfig
	Poller   PollerConfig
	Jobs     JobsConfig
	Auth     AuthConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// ProviderConfig contains the external analysis provider configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PollerConfig contains the status polling configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PollerConfig struct {
	Interval               time.Duration
	MaxConsecutiveFailures int
	InitialBackoff         time.Duration
	MaxBackoff             time.Duration
}

// JobsConfig contains job handle retention configuration.
type JobsConfig struct {
	Retention       time.Duration
	JanitorInterval time.Duration
}

// AuthConfig contains API authentication configuration.
type AuthConfig struct {
	APIKeys []string
	Enabled bool
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
	Enabled        bool
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host     string
	User     string
	Password string
	Exchange string
	Port     int
	Enabled  bool
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("provider.baseurl is required")
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Provider
	viper.SetDefault("provider.baseurl", "http://localhost:5000")
	viper.SetDefault("provider.apikey", "")
	viper.SetDefault("provider.timeout", 300*time.Second)

	// Poller
	viper.SetDefault("poller.interval", time.Second)
	viper.SetDefault("poller.maxconsecutivefailures", 5)
	viper.SetDefault("poller.initialbackoff", 2*time.Second)
	viper.SetDefault("poller.maxbackoff", 30*time.Second)

	// Jobs
	viper.SetDefault("jobs.retention", 24*time.Hour)
	viper.SetDefault("jobs.janitorinterval", time.Hour)

	// Auth
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.apikeys", []string{})

	// Database
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "brandpulse")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "analysis.events")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
