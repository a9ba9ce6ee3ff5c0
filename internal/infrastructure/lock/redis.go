package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/pkg/apperrors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "repayment:loan-lock:"
	retryInterval = 50 * time.Millisecond
	unlockTimeout = 2 * time.Second
)

// Deletes the key only while it still carries our token, so an expired lock
// re-acquired by another instance is never released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a per-loan mutex shared by every instance using the same
// Redis. The TTL bounds how long a crashed holder can block a loan.
type RedisLocker struct {
	client redisClient
	ttl    time.Duration
	wait   time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client redisClient, ttl, wait time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		logger: logger.With("component", "RedisLocker"),
	}
}

func lockKey(loanID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, loanID)
}

func (l *RedisLocker) Lock(ctx context.Context, loanID int64) (func(), error) {
	key := lockKey(loanID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.logger.ErrorContext(ctx, "Redis SETNX failed", "key", key, "error", err)
			return nil, fmt.Errorf("lock loan %d: %w", loanID, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: loan %d is locked by another writer", apperrors.ErrConcurrencyConflict, loanID)
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: gave up waiting for loan %d: %w", apperrors.ErrConcurrencyConflict, loanID, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()

		released, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Error("Failed to release loan lock", "key", key, "error", err)
			return
		}
		if released == 0 {
			l.logger.Warn("Loan lock expired before release", "key", key)
		}
	}
}
