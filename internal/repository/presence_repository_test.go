package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wans112/web-toko/internal/domain"
)

// exercisePresenceRepository runs the shared contract against any backend.
func exercisePresenceRepository(t *testing.T, repo PresenceRepository, userID string) {
	t.Helper()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	prev, err := repo.Set(ctx, userID, true, t0)
	require.NoError(t, err)
	assert.False(t, prev.IsOnline)

	rec, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, rec.IsOnline)
	assert.True(t, rec.LastHeartbeatAt.Equal(t0))

	// Online again refreshes the timestamp.
	t1 := t0.Add(30 * time.Second)
	prev, err = repo.Set(ctx, userID, true, t1)
	require.NoError(t, err)
	assert.True(t, prev.IsOnline)
	assert.True(t, prev.LastHeartbeatAt.Equal(t0))

	online, err := repo.ListOnline(ctx)
	require.NoError(t, err)
	assert.Contains(t, userIDs(online), userID)

	// Offline keeps the last heartbeat and is idempotent.
	for i := 0; i < 2; i++ {
		_, err = repo.Set(ctx, userID, false, t1.Add(time.Minute))
		require.NoError(t, err)
		rec, err = repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.False(t, rec.IsOnline)
		assert.True(t, rec.LastHeartbeatAt.Equal(t1))
	}

	online, err = repo.ListOnline(ctx)
	require.NoError(t, err)
	assert.NotContains(t, userIDs(online), userID)

	// Expiry flips only records at or before the cutoff.
	_, err = repo.Set(ctx, userID, true, t1)
	require.NoError(t, err)
	expired, err := repo.ExpireBefore(ctx, t1.Add(-time.Second))
	require.NoError(t, err)
	assert.NotContains(t, expired, userID)

	expired, err = repo.ExpireBefore(ctx, t1)
	require.NoError(t, err)
	assert.Contains(t, expired, userID)

	rec, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, rec.IsOnline)

	expired, err = repo.ExpireBefore(ctx, t1.Add(time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, expired, userID, "already expired records are not reported twice")
}

func userIDs(records []domain.PresenceRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UserID)
	}
	return ids
}

func TestMemoryPresenceRepository(t *testing.T) {
	repo := NewMemoryPresenceRepository()
	exercisePresenceRepository(t, repo, "u-1")

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPresenceRepository_ConcurrentUsers(t *testing.T) {
	repo := NewMemoryPresenceRepository()
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("u-%d", i)
			for j := 0; j < 20; j++ {
				_, _ = repo.Set(ctx, id, true, now.Add(time.Duration(j)*time.Second))
			}
		}(i)
	}
	wg.Wait()

	online, err := repo.ListOnline(ctx)
	require.NoError(t, err)
	assert.Len(t, online, 50)
	for _, rec := range online {
		assert.True(t, rec.LastHeartbeatAt.Equal(now.Add(19*time.Second)))
	}
}

// TestRedisPresenceRepository runs against a live Redis when
// TEST_REDIS_ADDR is set.
func TestRedisPresenceRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	userID := uuid.NewString()
	t.Cleanup(func() {
		client.Del(context.Background(), presenceKey(userID))
		client.ZRem(context.Background(), presenceOnlineSet, userID)
	})

	repo := NewRedisPresenceRepository(client)
	exercisePresenceRepository(t, repo, userID)

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestPostgresPresenceRepository runs against a migrated database when
// TEST_POSTGRES_DSN is set.
func TestPostgresPresenceRepository(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	users := NewUserRepository(pool)
	user := &domain.User{Username: "presence-" + uuid.NewString(), PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, users.Create(ctx, user))
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id=$1`, user.ID) })

	got, err := users.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	repo := NewPostgresPresenceRepository(pool)
	exercisePresenceRepository(t, repo, user.ID)

	_, err = repo.Set(ctx, uuid.NewString(), true, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
