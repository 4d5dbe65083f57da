package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	Mode     string `mapstructure:"mode" validate:"oneof=debug release test"`
	Timezone string `mapstructure:"timezone"`
	// RateLimitPerMinute caps API calls per subscription. 0 disables the limit.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" validate:"min=0"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"min=1"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database" validate:"required"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds a MySQL DSN. Times are parsed as UTC; every timestamp the
// billing engine writes is UTC.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address" validate:"omitempty,email"`
	FromName     string `mapstructure:"from_name"`
	// QueueSize bounds the in-memory notification queue.
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BillingConfig holds the lifecycle policy knobs. The defaults are three
// strikes before auto-renew is turned off and grace until the paid period ends.
type BillingConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"min=1"`
	GraceExtension   time.Duration `mapstructure:"grace_extension" validate:"min=0"`
	RenewalWindow    time.Duration `mapstructure:"renewal_window" validate:"min=0"`
	RenewalLead      time.Duration `mapstructure:"renewal_lead" validate:"min=0"`
	RetryInterval    time.Duration `mapstructure:"retry_interval" validate:"min=0"`
	WarnDaysBefore   int           `mapstructure:"warn_days_before" validate:"min=0"`
	GatewayTimeout   time.Duration `mapstructure:"gateway_timeout" validate:"required"`
	BatchLimit       int           `mapstructure:"batch_limit" validate:"min=1"`
	DefaultCurrency  string        `mapstructure:"default_currency" validate:"len=3"`
}

type PaystackConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

type GatewaysConfig struct {
	Paystack PaystackConfig `mapstructure:"paystack"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	// EnableMock registers the in-process mock gateway. Never enable in production.
	EnableMock bool `mapstructure:"enable_mock"`
}

type SchedulerConfig struct {
	RenewalInterval time.Duration `mapstructure:"renewal_interval" validate:"required"`
	// DailyAt is a cron expression evaluated in the business timezone.
	DailyAt  string        `mapstructure:"daily_at" validate:"required"`
	LeaseTTL time.Duration `mapstructure:"lease_ttl" validate:"required"`
}
