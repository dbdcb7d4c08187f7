package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	directoryPersonPrefix = "directory:person:"
	// DefaultDirectoryTTL bounds how long a lookup is remembered.
	DefaultDirectoryTTL = 24 * time.Hour
)

// DirectoryCache remembers email to directory person id mappings.
type DirectoryCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDirectoryCache creates a lookup cache on top of c.
func NewDirectoryCache(c *Cache, ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &DirectoryCache{cache: c, ttl: ttl}
}

// GetDirectoryPerson returns the cached person id for email.
func (d *DirectoryCache) GetDirectoryPerson(ctx context.Context, email string) (string, bool, error) {
	id, err := d.cache.client.Get(ctx, directoryKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get directory person: %w", err)
	}
	return id, id != "", nil
}

// SetDirectoryPerson caches the person id for email.
func (d *DirectoryCache) SetDirectoryPerson(ctx context.Context, email, id string) error {
	if err := d.cache.client.Set(ctx, directoryKey(email), id, d.ttl).Err(); err != nil {
		return fmt.Errorf("set directory person: %w", err)
	}
	return nil
}

func directoryKey(email string) string {
	return directoryPersonPrefix + digest(email, 0)
}
