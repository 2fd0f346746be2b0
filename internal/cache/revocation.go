package cache

import (
	"context"
	"time"
)

const revokedKeyPrefix = "revoked:"

// Revoke records a session token id as revoked for ttl, which should be the
// token's remaining lifetime. It is a no-op without Redis.
func Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether the token id was revoked. Without Redis no token
// is considered revoked.
func IsRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
