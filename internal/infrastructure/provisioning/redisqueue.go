// Package provisioning hands service-account instructions to the external
// account system through a Redis list.
package provisioning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// RedisQueue LPUSHes JSON-encoded instructions; the consumer BRPOPs them in
// FIFO order.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger logger.Interface
}

func NewRedisQueue(client *redis.Client, logger logger.Interface) *RedisQueue {
	return &RedisQueue{
		client: client,
		key:    constants.RedisKeyProvisioningQueue,
		logger: logger,
	}
}

var _ usecases.ProvisioningQueue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, instruction usecases.ProvisioningInstruction) error {
	payload, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("failed to encode provisioning instruction: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		q.logger.Errorw("failed to enqueue provisioning instruction",
			"action", instruction.Action,
			"subscription_sid", instruction.SubscriptionSID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue provisioning instruction: %w", err)
	}

	q.logger.Infow("provisioning instruction queued",
		"action", instruction.Action,
		"subscription_sid", instruction.SubscriptionSID,
		"service_account_id", instruction.ServiceAccountID,
	)
	return nil
}
