package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "authcore"

// Token use values embedded in the claims so an access token cannot be
// presented where a refresh token is expected, or vice versa.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// Verification failure kinds. Callers branch on these to distinguish a token
// that expired naturally from one that was tampered with or is not a token
// at all.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims represents the JWT claims carried by both token kinds.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Use   string `json:"use"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens. Signing uses the active
// key of a key set; verification resolves the key from the token's kid header,
// so keys can be rotated by adding a new active key while old ones remain in
// the set until their tokens age out. The codec is immutable after creation.
type Codec struct {
	keys          map[string][]byte
	activeKID     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewCodec creates a codec from a key set and the kid used for signing.
// The refresh expiry must exceed the access expiry.
func NewCodec(keys map[string]string, activeKID string, accessExpiry, refreshExpiry time.Duration) (*Codec, error) {
	if len(keys) == 0 {
		return nil, errors.New("jwt: key set must not be empty")
	}
	if _, ok := keys[activeKID]; !ok {
		return nil, fmt.Errorf("jwt: active key id %q not present in key set", activeKID)
	}
	if accessExpiry <= 0 || refreshExpiry <= accessExpiry {
		return nil, fmt.Errorf("jwt: refresh expiry (%s) must exceed access expiry (%s)", refreshExpiry, accessExpiry)
	}

	byteKeys := make(map[string][]byte, len(keys))
	for kid, secret := range keys {
		if secret == "" {
			return nil, fmt.Errorf("jwt: empty secret for key id %q", kid)
		}
		byteKeys[kid] = []byte(secret)
	}

	return &Codec{
		keys:          byteKeys,
		activeKID:     activeKID,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// AccessExpiry returns the configured access token lifetime.
func (c *Codec) AccessExpiry() time.Duration {
	return c.accessExpiry
}

// RefreshExpiry returns the configured refresh token lifetime.
func (c *Codec) RefreshExpiry() time.Duration {
	return c.refreshExpiry
}

// IssueAccess creates a signed access token for the given subject.
func (c *Codec) IssueAccess(subject, email, role string) (string, error) {
	return c.issue(subject, email, role, useAccess, c.accessExpiry)
}

// IssueRefresh creates a signed refresh token for the given subject.
func (c *Codec) IssueRefresh(subject, email string) (string, error) {
	return c.issue(subject, email, "", useRefresh, c.refreshExpiry)
}

func (c *Codec) issue(subject, email, role, use string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		Role:  role,
		Use:   use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = c.activeKID

	signed, err := token.SignedString(c.keys[c.activeKID])
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", use, err)
	}

	return signed, nil
}

// VerifyAccess parses and validates an access token, returning its claims.
func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return c.verify(tokenString, useAccess)
}

// VerifyRefresh parses and validates a refresh token, returning its claims.
func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return c.verify(tokenString, useRefresh)
}

func (c *Codec) verify(tokenString, use string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		key := c.keys[c.activeKID]
		if kid, ok := t.Header["kid"].(string); ok {
			k, known := c.keys[kid]
			if !known {
				return nil, fmt.Errorf("unknown key id %q", kid)
			}
			key = k
		}
		return key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Use != use {
		return nil, fmt.Errorf("%w: not a %s token", ErrTokenMalformed, use)
	}

	return claims, nil
}

// classifyParseError folds golang-jwt's error set into the three failure
// kinds this service distinguishes.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}
