package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rbeiter/authcore/internal/domain"
	apperrors "github.com/rbeiter/authcore/pkg/errors"
)

// CredentialRepository stores user credentials in PostgreSQL.
type CredentialRepository struct {
	db DB
}

// NewCredentialRepository creates a credential repository backed by db.
func NewCredentialRepository(db DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new credential. Returns an already-exists error when the
// email is taken.
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		cred.ID, cred.Email, cred.PasswordHash, cred.Role, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("credential", "email", cred.Email)
		}
		return fmt.Errorf("create credential: %w", err)
	}

	return nil
}

// GetByID fetches a credential by user id.
func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM credentials
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, id), "id", id)
}

// GetByEmail fetches a credential by email.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM credentials
		WHERE email = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, email), "email", email)
}

// Delete removes a credential by user id.
func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("credential", id)
	}

	return nil
}

func (r *CredentialRepository) scanOne(row pgx.Row, field, value string) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(&cred.ID, &cred.Email, &cred.PasswordHash, &cred.Role,
		&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("credential", value)
		}
		return nil, fmt.Errorf("get credential by %s: %w", field, err)
	}
	if !domain.IsValidRole(cred.Role) {
		return nil, fmt.Errorf("decode credential %s: unknown role %q", cred.ID, cred.Role)
	}

	return &cred, nil
}
