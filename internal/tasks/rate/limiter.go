package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window  time.Duration // e.g., 1 second, 1 minute
	MaxJobs int           // max calls per window
}

type QueueConfig struct {
	Name      string
	RateLimit RateLimit
}

// QueueRateLimiter is a redis sorted-set sliding window shared by every
// process talking to the same redis.
type QueueRateLimiter struct {
	redis  redis.UniversalClient
	config QueueConfig
	now    func() time.Time
}

func NewQueueRateLimiter(redis redis.UniversalClient, config QueueConfig) *QueueRateLimiter {
	return &QueueRateLimiter{
		redis:  redis,
		config: config,
		now:    time.Now,
	}
}

func (qrl *QueueRateLimiter) key(identifier string) string {
	return fmt.Sprintf("queue_rate_limit:%s:%s", qrl.config.Name, identifier)
}

// Allow records a call for identifier if the window has room.
func (qrl *QueueRateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := qrl.key(identifier)
	now := qrl.now().UnixMicro()
	windowStart := now - qrl.config.RateLimit.Window.Microseconds()
	member := uuid.NewString()

	pipe := qrl.redis.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current window
	card := pipe.ZCard(ctx, key)

	// Add new entry
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})

	// Set expiration
	pipe.Expire(ctx, key, qrl.config.RateLimit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	if card.Val() < int64(qrl.config.RateLimit.MaxJobs) {
		return true, nil
	}
	// Denied calls do not occupy the window.
	if err := qrl.redis.ZRem(ctx, key, member).Err(); err != nil {
		return false, fmt.Errorf("redis zrem error: %w", err)
	}
	return false, nil
}

// Wait blocks until Allow succeeds or ctx is done.
func (qrl *QueueRateLimiter) Wait(ctx context.Context, identifier string) error {
	backoff := qrl.config.RateLimit.Window / time.Duration(max(qrl.config.RateLimit.MaxJobs, 1))
	backoff = min(max(backoff, 10*time.Millisecond), time.Second)
	for {
		ok, err := qrl.Allow(ctx, identifier)
		if err != nil || ok {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
