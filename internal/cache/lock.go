package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a pair lock could not be acquired in time.
var ErrLockBusy = errors.New("cache: lock busy")

const (
	lockRetries    = 20
	lockRetryDelay = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PairLockKey names the lock serializing toggles of one relation between two ids.
func PairLockKey(relation string, a, b uint) string {
	return fmt.Sprintf("lock:%s:%d:%d", relation, a, b)
}

// WithLock runs fn while holding key. Without Redis fn runs unguarded and the
// database unique indexes remain the only protection against duplicate rows.
func WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	if client == nil {
		return fn()
	}

	token := uuid.NewString()
	acquired := false
	for i := 0; i < lockRetries; i++ {
		ok, err := client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			// Redis trouble should not block writes; run unguarded.
			return fn()
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if !acquired {
		return ErrLockBusy
	}

	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), client, []string{key}, token).Err()
	}()
	return fn()
}
