package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepository_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	expiresAt := time.Now().Add(24 * time.Hour).UTC()

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("user-123", "abc123hash", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Put(context.Background(), "user-123", "abc123hash", expiresAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Put_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	expiresAt := time.Now().Add(24 * time.Hour).UTC()

	// The upsert reports UPDATE when a row for the user already exists;
	// the repository treats both outcomes the same.
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("user-123", "first-hash", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("user-123", "second-hash", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Put(context.Background(), "user-123", "first-hash", expiresAt))
	require.NoError(t, repo.Put(context.Background(), "user-123", "second-hash", expiresAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Delete_Idempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs("user-123").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs("user-123").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), "user-123"))
	assert.NoError(t, repo.Delete(context.Background(), "user-123"))
	require.NoError(t, mock.ExpectationsWereMet())
}
