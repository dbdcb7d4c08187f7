package directory

import (
	"context"
	"log/slog"
)

// LookupCache stores email to person id mappings.
// A miss is reported as found == false with a nil error.
type LookupCache interface {
	GetDirectoryPerson(ctx context.Context, email string) (id string, found bool, err error)
	SetDirectoryPerson(ctx context.Context, email, id string) error
}

// Directory is the contract shared by Client and CachedClient.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (string, bool, error)
	CreatePerson(ctx context.Context, in PersonInput) (string, error)
}

// CachedClient serves positive lookups from a cache.
// Directory people are never deleted, so a cached id cannot go stale.
// Negative results always go to the directory.
type CachedClient struct {
	next   Directory
	cache  LookupCache
	logger *slog.Logger
}

// NewCachedClient wraps next with a lookup cache.
func NewCachedClient(next Directory, cache LookupCache, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{next: next, cache: cache, logger: logger}
}

// FindByEmail checks the cache before asking the directory.
// Cache errors are logged and treated as misses.
func (c *CachedClient) FindByEmail(ctx context.Context, email string) (string, bool, error) {
	id, found, err := c.cache.GetDirectoryPerson(ctx, email)
	if err != nil {
		c.logger.Warn("directory cache read failed", "error", err)
	} else if found {
		return id, true, nil
	}

	id, found, err = c.next.FindByEmail(ctx, email)
	if err != nil || !found {
		return id, found, err
	}

	if err := c.cache.SetDirectoryPerson(ctx, email, id); err != nil {
		c.logger.Warn("directory cache write failed", "error", err)
	}
	return id, true, nil
}

// CreatePerson creates the person and primes the cache with the new id.
func (c *CachedClient) CreatePerson(ctx context.Context, in PersonInput) (string, error) {
	id, err := c.next.CreatePerson(ctx, in)
	if err != nil {
		return "", err
	}
	if err := c.cache.SetDirectoryPerson(ctx, in.Email, id); err != nil {
		c.logger.Warn("directory cache write failed", "error", err)
	}
	return id, nil
}
