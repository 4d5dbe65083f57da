package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/billing/internal/shared/constants"
)

// ErrLeaseHeld is returned by Acquire when another instance holds the lease.
var ErrLeaseHeld = errors.New("job lease is held by another instance")

// releaseScript deletes the lease only if it still carries our token, so an
// instance whose lease expired never frees a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// JobLease is a Redis mutual-exclusion lease for scheduled jobs. At most one
// instance runs a given job at a time across the deployment.
type JobLease struct {
	client *redis.Client
}

func NewJobLease(client *redis.Client) *JobLease {
	return &JobLease{client: client}
}

// Lease is a held lease. Release it when the job finishes.
type Lease struct {
	key   string
	token string
	owner *JobLease
}

// buildKey builds the Redis key for a job lease
// Format: billing:lease:{job}
func (l *JobLease) buildKey(job string) string {
	return constants.RedisKeyJobLeasePrefix + job
}

// Acquire takes the lease for job with ttl using SetNX. ttl bounds how long a
// crashed holder can block the job.
func (l *JobLease) Acquire(ctx context.Context, job string, ttl time.Duration) (*Lease, error) {
	key := l.buildKey(job)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", job, err)
	}
	if !acquired {
		return nil, ErrLeaseHeld
	}
	return &Lease{key: key, token: token, owner: l}, nil
}

// Release frees the lease if it is still ours. Releasing an expired or stolen
// lease is not an error.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.owner.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
