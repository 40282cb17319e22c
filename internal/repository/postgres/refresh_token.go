package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rbeiter/authcore/internal/domain"
)

// RefreshTokenRepository stores refresh token hashes in PostgreSQL, keyed by
// user id so each user holds at most one live refresh token.
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a refresh token repository backed by db.
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Put stores the token hash for the user. An existing row for the user is
// overwritten, which invalidates the previously issued refresh token.
func (r *RefreshTokenRepository) Put(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	rec := domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("put refresh token: %w", err)
	}

	return nil
}

// Delete removes the user's stored refresh token. Missing rows are ignored
// so repeated sign-outs stay idempotent.
func (r *RefreshTokenRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}
