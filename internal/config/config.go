package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Celery    CeleryConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CeleryConfig holds the task broker configuration
type CeleryConfig struct {
	BrokerURL     string
	ResultBackend string
	AwaitTimeout  time.Duration
}

// CacheConfig holds the optional response cache configuration
type CacheConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
	Prefix   string
}

// SchedulerConfig holds the periodic refresh configuration
type SchedulerConfig struct {
	Enabled        bool
	UpdateInterval time.Duration
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables.
// Required values are validated here so a misconfigured process fails at
// startup rather than on the first request.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every required value is present
func (c *Config) Validate() error {
	required := map[string]string{
		"database.host":        c.Database.Host,
		"database.user":        c.Database.User,
		"database.password":    c.Database.Password,
		"database.dbname":      c.Database.DBName,
		"celery.brokerURL":     c.Celery.BrokerURL,
		"celery.resultBackend": c.Celery.ResultBackend,
	}

	for key, value := range required {
		if value == "" {
			return fmt.Errorf("missing required config value %s", key)
		}
	}

	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("missing required config value cache.redisURL")
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.idleTimeout", "120s")

	// Database defaults
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "30m")

	// Celery defaults
	v.SetDefault("celery.awaitTimeout", "5m")

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.prefix", "symbolsvc")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.updateInterval", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
