package http

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/infrastructure/adapters"
	"github.com/orris-inc/billing/internal/infrastructure/config"
	"github.com/orris-inc/billing/internal/infrastructure/email"
	"github.com/orris-inc/billing/internal/infrastructure/notification"
	"github.com/orris-inc/billing/internal/infrastructure/payment/paystack"
	"github.com/orris-inc/billing/internal/infrastructure/payment/stripe"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// InitRedis creates and tests the Redis client connection.
func InitRedis(ctx context.Context, cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Infow("Redis connection established successfully", "addr", cfg.Redis.GetAddr())

	return redisClient, nil
}

// newGatewayRegistry registers every gateway that has credentials.
func newGatewayRegistry(cfg *config.Config, log logger.Interface) *paymentgateway.Registry {
	registry := paymentgateway.NewRegistry()

	if cfg.Gateways.Paystack.SecretKey != "" {
		registry.Register(paystack.NewGateway(
			cfg.Gateways.Paystack.SecretKey,
			cfg.Gateways.Paystack.BaseURL,
			cfg.Billing.GatewayTimeout,
			log.Named("paystack"),
		))
	}
	if cfg.Gateways.Stripe.SecretKey != "" {
		registry.Register(stripe.NewGateway(cfg.Gateways.Stripe.SecretKey, log.Named("stripe")))
	}
	if cfg.Gateways.EnableMock {
		log.Warnw("mock payment gateway enabled")
		registry.Register(paymentgateway.NewMockGateway())
	}

	log.Infow("payment gateways configured", "gateways", registry.Names())
	return registry
}

func newNotifier(cfg *config.Config, directory *adapters.UserDirectoryAdapter, log logger.Interface) (*notification.Dispatcher, error) {
	catalogue, err := notification.DefaultCatalogue()
	if err != nil {
		return nil, err
	}
	sender := email.NewSMTPSender(cfg.Email)
	return notification.NewDispatcher(catalogue, directory, sender, cfg.Email.QueueSize, log.Named("notification")), nil
}
