package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"professional-onboarding/internal/domain"
)

// Locker hands out a scoped lock per profile. The returned release func is
// always safe to call.
type Locker interface {
	Acquire(ctx context.Context, profileID string) (release func(context.Context) error, err error)
}

// NoopLocker never contends. Concurrent submissions for one profile are then
// not serialized.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only when it still holds our token, so an
// expired lock taken over by another submission is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "onboarding:documents:lock:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLocker) key(profileID string) string {
	return l.prefix + profileID
}

func (l *RedisLocker) Acquire(ctx context.Context, profileID string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(profileID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", profileID, err)
	}
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, domain.ErrLockHeld)
	}

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		err := releaseScript.Run(ctx, l.client, []string{l.key(profileID)}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock for %s: %w", profileID, err)
		}
		return nil
	}, nil
}
