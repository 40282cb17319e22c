package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbeiter/authcore/internal/domain"
	apperrors "github.com/rbeiter/authcore/pkg/errors"
)

func newTestRepository(t *testing.T) (*RevocationRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRevocationRepository(client), mr
}

func TestRevocationRepository_AddAndIsRevoked(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	revoked, err := repo.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	err = repo.Add(ctx, "token-1", "user-123", expiresAt)
	require.NoError(t, err)

	revoked, err = repo.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationRepository_AddStoresRecord(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, repo.Add(ctx, "token-1", "user-123", expiresAt))

	raw, err := mr.Get("revoked:token-1")
	require.NoError(t, err)

	var rec domain.RevocationRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "user-123", rec.UserID)
	assert.True(t, rec.ExpiresAt.Equal(expiresAt))
	assert.False(t, rec.RevokedAt.IsZero())
}

func TestRevocationRepository_AddTwice(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	require.NoError(t, repo.Add(ctx, "token-1", "user-123", expiresAt))

	err := repo.Add(ctx, "token-1", "user-123", expiresAt)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRevocationRepository_ConcurrentAdd(t *testing.T) {
	repo, _ := newTestRepository(t)
	expiresAt := time.Now().Add(time.Hour)

	const workers = 8
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Add(context.Background(), "token-1", "user-123", expiresAt)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, apperrors.ErrConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicted)
}

func TestRevocationRepository_PurgeExpired(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Add(ctx, "stale-token", "user-1", now.Add(-time.Hour)))
	require.NoError(t, repo.Add(ctx, "live-token", "user-2", now.Add(time.Hour)))

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	revoked, err := repo.IsRevoked(ctx, "stale-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "live-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Second sweep has nothing left to remove.
	purged, err = repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestRevocationRepository_PurgeExpired_Empty(t *testing.T) {
	repo, _ := newTestRepository(t)

	purged, err := repo.PurgeExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestRevocationRepository_StoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRevocationRepository(client)

	mr.Close()

	err := repo.Add(context.Background(), "token-1", "user-123", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	_, err = repo.IsRevoked(context.Background(), "token-1")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
