// Package redis implements the token revocation store on Redis. Each revoked
// token is a key so membership checks stay O(1), with a sorted set indexing
// tokens by expiry for the sweep.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rbeiter/authcore/internal/domain"
	apperrors "github.com/rbeiter/authcore/pkg/errors"
)

const (
	keyPrefix = "revoked:"
	indexKey  = "revoked:index"
)

// RevocationRepository records revoked tokens in Redis.
type RevocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository creates a revocation repository backed by client.
func NewRevocationRepository(client *redis.Client) *RevocationRepository {
	return &RevocationRepository{client: client}
}

// Add marks the token revoked until it expires. When several callers race on
// the same token, exactly one Add succeeds; the rest get a conflict error.
// Keys also carry a TTL to the token's expiry, so records vanish even if the
// sweep falls behind.
func (r *RevocationRepository) Add(ctx context.Context, token, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	rec := domain.RevocationRecord{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal revocation record: %w", err)
	}

	set, err := r.client.SetNX(ctx, keyPrefix+token, payload, ttl).Result()
	if err != nil {
		return apperrors.Unavailable("revocation store", err)
	}
	if !set {
		return apperrors.Conflict("token already revoked")
	}

	err = r.client.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: token,
	}).Err()
	if err != nil {
		return apperrors.Unavailable("revocation store", err)
	}

	return nil
}

// IsRevoked reports whether the token has been revoked.
func (r *RevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, apperrors.Unavailable("revocation store", err)
	}

	return n > 0, nil
}

// PurgeExpired removes revocation records for tokens that expired at or
// before now, returning the number removed. Tokens expiring after now are
// left untouched.
func (r *RevocationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tokens, err := r.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, apperrors.Unavailable("revocation store", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	members := make([]any, len(tokens))
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		members[i] = token
		keys[i] = keyPrefix + token
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, indexKey, members...)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return 0, apperrors.Unavailable("revocation store", err)
	}

	return int64(len(tokens)), nil
}

// Ping checks connectivity for health reporting.
func (r *RevocationRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
