package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Broker      BrokerConfig   `mapstructure:"broker"`
	DB          DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Auth        AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BrokerConfig holds RabbitMQ configuration
type BrokerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	QueueName     string        `mapstructure:"queue_name"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"name"`
	SSLMode       string        `mapstructure:"ssl_mode"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RedisConfig holds the dead-letter store configuration
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	Enabled       bool   `mapstructure:"enabled"`
	DeadLetterKey string `mapstructure:"dead_letter_key"`
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// URL builds the AMQP connection URL for the broker.
func (c BrokerConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

// DSN builds the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Setup configuration paths
	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Continue with defaults and env vars when no config file is present
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Enable environment variables to override config
	v.SetEnvPrefix("O2C")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flat env names the deployment manifests have always used
	bindLegacyEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return config, nil
}

func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("server.address", "O2C_SERVER_ADDRESS", "SERVER_ADDRESS")
	_ = v.BindEnv("broker.host", "O2C_BROKER_HOST", "RABBITMQ_HOST")
	_ = v.BindEnv("broker.port", "O2C_BROKER_PORT", "RABBITMQ_PORT")
	_ = v.BindEnv("broker.user", "O2C_BROKER_USER", "RABBITMQ_USER")
	_ = v.BindEnv("broker.password", "O2C_BROKER_PASSWORD", "RABBITMQ_PASSWORD")
	_ = v.BindEnv("broker.queue_name", "O2C_BROKER_QUEUE_NAME", "QUEUE_NAME")
	_ = v.BindEnv("database.host", "O2C_DATABASE_HOST", "PGHOST")
	_ = v.BindEnv("database.port", "O2C_DATABASE_PORT", "PGPORT")
	_ = v.BindEnv("database.user", "O2C_DATABASE_USER", "PGUSER")
	_ = v.BindEnv("database.password", "O2C_DATABASE_PASSWORD", "PGPASSWORD")
	_ = v.BindEnv("database.name", "O2C_DATABASE_NAME", "PGDATABASE")
	_ = v.BindEnv("redis.addr", "O2C_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("auth.jwt_secret", "O2C_AUTH_JWT_SECRET", "JWT_SECRET")
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("environment", "development")
	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.timeout", "30s")

	// Broker settings
	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", 5672)
	v.SetDefault("broker.user", "guest")
	v.SetDefault("broker.password", "guest")
	v.SetDefault("broker.queue_name", "o2c.events")
	v.SetDefault("broker.max_attempts", 20)
	v.SetDefault("broker.retry_interval", "1s")

	// Database settings
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "o2c")
	v.SetDefault("database.password", "o2c")
	v.SetDefault("database.name", "o2c_reporting")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_attempts", 30)
	v.SetDefault("database.retry_interval", "1s")

	// Redis dead-letter settings
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.dead_letter_key", "o2c.dead_letters")

	// Auth settings
	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", "1h")
}
