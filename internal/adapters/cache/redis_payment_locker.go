package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this holder still owns it, so a
// lease that expired and was re-acquired elsewhere is never released by
// the stale holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisPaymentLocker serializes escrow mutations per payment id across
// service instances with a leased SETNX lock.
type RedisPaymentLocker struct {
	client     *redis.Client
	lease      time.Duration
	retryEvery time.Duration
}

func NewRedisPaymentLocker(client *redis.Client, lease time.Duration) *RedisPaymentLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisPaymentLocker{
		client:     client,
		lease:      lease,
		retryEvery: 50 * time.Millisecond,
	}
}

func (l *RedisPaymentLocker) Acquire(ctx context.Context, paymentID string) (func(), error) {
	key := "ledger:payment-lock:" + paymentID
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}
	return release, nil
}
