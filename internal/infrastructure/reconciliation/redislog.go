// Package reconciliation keeps gateway charges that the database does not
// reflect, for an operator to match against the provider's dashboard.
package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// RedisLog LPUSHes JSON entries onto a list that is never trimmed; an
// operator removes an entry once it is resolved. A pending charge also sets
// a per-subscription hold key that expires after holdTTL.
type RedisLog struct {
	client  *redis.Client
	key     string
	holdTTL time.Duration
	logger  logger.Interface
}

func NewRedisLog(client *redis.Client, holdTTL time.Duration, logger logger.Interface) *RedisLog {
	return &RedisLog{
		client:  client,
		key:     constants.RedisKeyReconciliation,
		holdTTL: holdTTL,
		logger:  logger,
	}
}

var _ usecases.ReconciliationLog = (*RedisLog)(nil)

// buildHoldKey builds the Redis key for a charge hold
// Format: billing:reconciliation:hold:{subscription_id}
func (l *RedisLog) buildHoldKey(subscriptionID uint) string {
	return constants.RedisKeyChargeHoldPrefix + strconv.FormatUint(uint64(subscriptionID), 10)
}

func (l *RedisLog) Record(ctx context.Context, entry usecases.ChargeReconciliation) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode reconciliation entry: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, payload)
	if entry.Reason == usecases.ReconcileChargePending && l.holdTTL > 0 {
		pipe.Set(ctx, l.buildHoldKey(entry.SubscriptionID), entry.Reference, l.holdTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record reconciliation entry %s: %w", entry.Reference, err)
	}

	l.logger.Infow("charge recorded for reconciliation",
		"reason", entry.Reason,
		"subscription_sid", entry.SubscriptionSID,
		"reference", entry.Reference,
	)
	return nil
}

func (l *RedisLog) Held(ctx context.Context, subscriptionID uint) (bool, error) {
	n, err := l.client.Exists(ctx, l.buildHoldKey(subscriptionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check charge hold: %w", err)
	}
	return n > 0, nil
}

// Pending returns the unresolved entries, oldest first.
func (l *RedisLog) Pending(ctx context.Context) ([]usecases.ChargeReconciliation, error) {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reconciliation log: %w", err)
	}

	entries := make([]usecases.ChargeReconciliation, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry usecases.ChargeReconciliation
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			l.logger.Warnw("skipping malformed reconciliation entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
