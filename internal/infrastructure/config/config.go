package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Email     sharedConfig.EmailConfig     `mapstructure:"email"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Billing   sharedConfig.BillingConfig   `mapstructure:"billing"`
	Gateways  sharedConfig.GatewaysConfig  `mapstructure:"gateways"`
	Scheduler sharedConfig.SchedulerConfig `mapstructure:"scheduler"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configs/config.yaml from the usual search paths and overlays
// BILLING_* environment variables.
func Load(env string) (*Config, error) {
	return load(env, func() {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("../configs")
		viper.AddConfigPath("../../configs")
	})
}

// LoadFile is Load with an explicit config file.
func LoadFile(path, env string) (*Config, error) {
	return load(env, func() {
		viper.SetConfigFile(path)
	})
}

func load(env string, locate func()) (*Config, error) {
	viper.Reset()
	locate()

	viper.SetEnvPrefix("BILLING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Validate checks the struct tags of every section.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.timezone", "UTC")
	viper.SetDefault("server.rate_limit_per_minute", 60)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "billing_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 50)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Email defaults
	viper.SetDefault("email.smtp_host", "localhost")
	viper.SetDefault("email.smtp_port", 1025)
	viper.SetDefault("email.smtp_user", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from_address", "billing@example.com")
	viper.SetDefault("email.from_name", "Billing")
	viper.SetDefault("email.queue_size", 256)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Billing policy defaults
	viper.SetDefault("billing.failure_threshold", 3)
	viper.SetDefault("billing.grace_extension", "0s")
	viper.SetDefault("billing.renewal_window", "24h")
	viper.SetDefault("billing.renewal_lead", "24h")
	viper.SetDefault("billing.retry_interval", "24h")
	viper.SetDefault("billing.warn_days_before", 3)
	viper.SetDefault("billing.gateway_timeout", "30s")
	viper.SetDefault("billing.batch_limit", 100)
	viper.SetDefault("billing.default_currency", "USD")

	// Gateway defaults
	viper.SetDefault("gateways.paystack.base_url", "https://api.paystack.co")
	viper.SetDefault("gateways.enable_mock", false)

	// Scheduler defaults
	viper.SetDefault("scheduler.renewal_interval", "1h")
	viper.SetDefault("scheduler.daily_at", "0 6 * * *")
	viper.SetDefault("scheduler.lease_ttl", "30m")
}
