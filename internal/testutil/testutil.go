// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/koinonia/koinonia/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730730

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table from the init migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000001_init")
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for _, direction := range []string{"down", "up"} {
		path := filepath.Join(root, "migrations", name+"."+direction+".sql")
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s migration: %w", direction, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s migration: %w", direction, err)
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return UniqueID(prefix) + "@example.test"
}

// NewTestUser creates a test user linked to a unique directory person.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	personID := UniqueID("pco")
	return &model.User{
		ID:           UniqueID("user"),
		Email:        UniqueEmail("user"),
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		FirstName:    "Test",
		LastName:     "User",
		PCOPersonID:  &personID,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestCommunity creates a test community with a unique group id.
func NewTestCommunity(t testing.TB) *model.Community {
	t.Helper()
	return &model.Community{
		ID:         UniqueID("community"),
		Name:       "Young Adults",
		PCOGroupID: UniqueID("group"),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestPreaching creates a test preaching with a unique video id.
func NewTestPreaching(t testing.TB, title string) *model.Preaching {
	t.Helper()
	videoID := UniqueID("vid")
	return &model.Preaching{
		ID:             UniqueID("preaching"),
		Title:          title,
		YouTubeURL:     "https://www.youtube.com/watch?v=" + videoID,
		YouTubeVideoID: videoID,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}
