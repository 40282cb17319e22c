package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/rbeiter/authcore/internal/auth"
	"github.com/rbeiter/authcore/internal/domain"
	"github.com/rbeiter/authcore/internal/event"
	"github.com/rbeiter/authcore/internal/password"
	"github.com/rbeiter/authcore/internal/repository"
	apperrors "github.com/rbeiter/authcore/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// purgeTimeout bounds the background revocation sweep triggered on sign-out.
const purgeTimeout = 10 * time.Second

// SessionManager implements the business logic for credential and session
// lifecycle: registration, sign-in, sign-out, and access token gating.
type SessionManager struct {
	credRepo       repository.CredentialRepository
	refreshRepo    repository.RefreshTokenRepository
	revocationRepo repository.RevocationRepository
	codec          *auth.Codec
	hasher         *password.Hasher
	producer       *event.Producer
	logger         *slog.Logger
}

// NewSessionManager creates a new session manager.
func NewSessionManager(
	credRepo repository.CredentialRepository,
	refreshRepo repository.RefreshTokenRepository,
	revocationRepo repository.RevocationRepository,
	codec *auth.Codec,
	hasher *password.Hasher,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		credRepo:       credRepo,
		refreshRepo:    refreshRepo,
		revocationRepo: revocationRepo,
		codec:          codec,
		hasher:         hasher,
		producer:       producer,
		logger:         logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
}

// SignInInput holds the parameters for signing in.
type SignInInput struct {
	Email    string
	Password string
}

// Register creates a new credential, hashes the password, and signs the user
// in, returning the credential and a fresh token pair.
func (s *SessionManager) Register(ctx context.Context, input RegisterInput) (*domain.Credential, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	cred := &domain.Credential{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.credRepo.Create(ctx, cred); err != nil {
		return nil, nil, fmt.Errorf("create credential: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, cred)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, cred); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", cred.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", cred.ID),
		slog.String("email", cred.Email),
	)

	return cred, tokens, nil
}

// SignIn authenticates a user with email and password, returning the
// credential and a fresh token pair. Unknown emails and wrong passwords fail
// with the same error, so callers cannot probe which emails are registered.
func (s *SessionManager) SignIn(ctx context.Context, input SignInInput) (*domain.Credential, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	cred, err := s.credRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, fmt.Errorf("get credential: %w", err)
	}

	ok, err := s.hasher.Verify(cred.PasswordHash, input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.generateTokenPair(ctx, cred)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Publish sign-in event (non-blocking on failure).
	if err := s.producer.PublishUserSignedIn(ctx, cred.ID, cred.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.signed_in event",
			slog.String("user_id", cred.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed in",
		slog.String("user_id", cred.ID),
		slog.String("email", cred.Email),
	)

	return cred, tokens, nil
}

// SignOut revokes the presented access token and deletes the user's stored
// refresh token. Revoking a token that is already revoked fails with a
// conflict error; when several sign-outs race on the same token, exactly one
// succeeds. A background sweep of expired revocation records is kicked off
// opportunistically.
func (s *SessionManager) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return apperrors.InvalidInput("access token is required")
	}

	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return unauthorizedFromVerify(err)
	}

	err = s.revocationRepo.Add(ctx, accessToken, claims.Subject, claims.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}

	if err := s.refreshRepo.Delete(ctx, claims.Subject); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	// Reclaim expired revocation records without blocking the request.
	go s.purgeExpired()

	// Publish sign-out event (non-blocking on failure).
	if err := s.producer.PublishUserSignedOut(ctx, claims.Subject); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.signed_out event",
			slog.String("user_id", claims.Subject),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed out",
		slog.String("user_id", claims.Subject),
	)

	return nil
}

// Authenticate verifies an access token and checks it against the revocation
// store. It returns the token's claims when the token is live. Every gated
// request passes through here, so a revoked token is rejected immediately
// even though it has not expired.
func (s *SessionManager) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	if accessToken == "" {
		return nil, apperrors.Unauthorized("missing access token")
	}

	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, unauthorizedFromVerify(err)
	}

	revoked, err := s.revocationRepo.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("token has been revoked")
	}

	return claims, nil
}

// Profile fetches the credential for an authenticated user.
func (s *SessionManager) Profile(ctx context.Context, userID string) (*domain.Credential, error) {
	cred, err := s.credRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	return cred, nil
}

// DeleteAccount removes a credential by user id. The refresh token row goes
// with it through the schema's cascade. Access tokens already issued to the
// user stay valid until they expire; callers that need immediate lockout
// revoke them separately.
func (s *SessionManager) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.credRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	// Publish deletion event (non-blocking on failure).
	if err := s.producer.PublishUserDeleted(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deleted",
		slog.String("user_id", userID),
	)

	return nil
}

// PurgeExpiredRevocations removes revocation records for tokens that have
// already expired, returning the number removed. The periodic sweeper calls
// this on its interval.
func (s *SessionManager) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	return s.revocationRepo.PurgeExpired(ctx, time.Now().UTC())
}

func (s *SessionManager) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	purged, err := s.revocationRepo.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to purge expired revocation records",
			slog.String("error", err.Error()),
		)
		return
	}
	if purged > 0 {
		s.logger.Debug("purged expired revocation records",
			slog.Int64("count", purged),
		)
	}
}

func (s *SessionManager) generateTokenPair(ctx context.Context, cred *domain.Credential) (*domain.TokenPair, error) {
	accessToken, err := s.codec.IssueAccess(cred.ID, cred.Email, cred.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.codec.IssueRefresh(cred.ID, cred.Email)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	// Store the refresh token hash, replacing any previous one so the user
	// holds at most one live refresh token.
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("verify refresh token for expiry: %w", err)
	}

	if err := s.refreshRepo.Put(ctx, cred.ID, hashToken(refreshToken), claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// unauthorizedFromVerify maps a token verification failure to an
// unauthorized error. The underlying failure kind (expired, bad signature,
// malformed) stays reachable through errors.Is.
func unauthorizedFromVerify(err error) error {
	var message string
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		message = "token has expired"
	case errors.Is(err, auth.ErrTokenSignature):
		message = "token signature is invalid"
	default:
		message = "token is malformed"
	}

	appErr := apperrors.Unauthorized(message)
	appErr.Err = fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	return appErr
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pw {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
