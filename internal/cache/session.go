package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshTokenPrefix = "refresh:"

// SaveRefreshToken stores an opaque refresh token for userID.
// Only a digest of the token is used as the key.
func (c *Cache) SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, refreshKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken atomically reads and deletes a refresh token, so each
// token can be redeemed once. Unknown or expired tokens yield ErrCacheMiss.
func (c *Cache) ConsumeRefreshToken(ctx context.Context, token string) (string, error) {
	userID, err := c.client.GetDel(ctx, refreshKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("consume refresh token: %w", err)
	}
	return userID, nil
}

// DeleteRefreshToken revokes a refresh token. Deleting an unknown token is not an error.
func (c *Cache) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, refreshKey(token)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func refreshKey(token string) string {
	return refreshTokenPrefix + digest(token, 0)
}
