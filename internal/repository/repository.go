// Package repository defines the persistence interfaces used by the service
// layer. Postgres implementations live in the postgres subpackage and the
// Redis-backed revocation store in the redis subpackage.
package repository

import (
	"context"
	"time"

	"github.com/rbeiter/authcore/internal/domain"
)

// CredentialRepository persists user credentials.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository persists refresh token hashes, at most one per user.
type RefreshTokenRepository interface {
	// Put stores the token hash for the user, replacing any existing one.
	Put(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// Delete removes the user's stored token. Deleting a user with no
	// stored token is not an error.
	Delete(ctx context.Context, userID string) error
}

// RevocationRepository records revoked access tokens until they expire.
type RevocationRepository interface {
	// Add marks the token revoked. Adding a token that is already revoked
	// returns a conflict error.
	Add(ctx context.Context, token, userID string, expiresAt time.Time) error
	// IsRevoked reports whether the token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PurgeExpired removes revocation records whose tokens expired at or
	// before now, returning the number removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
