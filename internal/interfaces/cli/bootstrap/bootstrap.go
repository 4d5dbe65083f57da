// Package bootstrap loads configuration and opens the shared connections
// every billing command needs.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/infrastructure/config"
	"github.com/orris-inc/billing/internal/infrastructure/database"
	httpApp "github.com/orris-inc/billing/internal/interfaces/http"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// Options are the persistent flags shared by all commands.
type Options struct {
	Env        string
	ConfigPath string
	Verbose    bool
}

// Env is an initialised process environment.
type Env struct {
	Cfg   *config.Config
	Log   logger.Interface
	DB    *gorm.DB
	Redis *redis.Client
}

// LoadConfig loads configuration and initialises logging and the business
// timezone. It does not open any connection.
func LoadConfig(opts Options) (*config.Config, logger.Interface, error) {
	mode := MapEnvToGinMode(opts.Env)

	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath, mode)
	} else {
		cfg, err = config.Load(mode)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, opts.Verbose); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	// Business timezone for cron expressions and customer-facing dates
	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	return cfg, log, nil
}

// Open loads configuration and connects to MySQL and Redis.
func Open(ctx context.Context, opts Options) (*Env, error) {
	cfg, log, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := httpApp.InitRedis(ctx, cfg, log)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	return &Env{Cfg: cfg, Log: log, DB: database.Get(), Redis: redisClient}, nil
}

// NewContainer wires the application on top of the environment.
func (e *Env) NewContainer() (*httpApp.Container, error) {
	return httpApp.NewContainer(e.Cfg, e.DB, e.Redis, e.Log)
}

// Close releases Redis and database connections.
func (e *Env) Close() {
	if err := e.Redis.Close(); err != nil {
		e.Log.Warnw("failed to close redis client", "error", err)
	}
	if err := database.Close(); err != nil {
		e.Log.Warnw("failed to close database", "error", err)
	}
}

// MapEnvToGinMode translates a deployment environment to a gin mode.
func MapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
