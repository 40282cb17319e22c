package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec(map[string]string{
		"k1": "test-secret-key-one-0123456789ab",
		"k2": "test-secret-key-two-0123456789ab",
	}, "k1", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	return codec
}

func TestNewCodec_Validation(t *testing.T) {
	tests := []struct {
		name          string
		keys          map[string]string
		activeKID     string
		accessExpiry  time.Duration
		refreshExpiry time.Duration
	}{
		{
			name:          "empty key set",
			keys:          map[string]string{},
			activeKID:     "k1",
			accessExpiry:  time.Minute,
			refreshExpiry: time.Hour,
		},
		{
			name:          "active kid not in set",
			keys:          map[string]string{"k1": "secret"},
			activeKID:     "k2",
			accessExpiry:  time.Minute,
			refreshExpiry: time.Hour,
		},
		{
			name:          "empty secret",
			keys:          map[string]string{"k1": ""},
			activeKID:     "k1",
			accessExpiry:  time.Minute,
			refreshExpiry: time.Hour,
		},
		{
			name:          "refresh expiry not beyond access expiry",
			keys:          map[string]string{"k1": "secret"},
			activeKID:     "k1",
			accessExpiry:  time.Hour,
			refreshExpiry: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.keys, tt.activeKID, tt.accessExpiry, tt.refreshExpiry)
			assert.Error(t, err)
		})
	}
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.IssueAccess("user-123", "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestCodec_RefreshRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.IssueRefresh("user-123", "alice@example.com")
	require.NoError(t, err)

	claims, err := codec.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Empty(t, claims.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestCodec_RejectsWrongUse(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.IssueAccess("user-123", "alice@example.com", "user")
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh("user-123", "alice@example.com")
	require.NoError(t, err)

	_, err = codec.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = codec.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodec_ExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	now := time.Now().UTC()
	claims := &Claims{
		Email: "alice@example.com",
		Use:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			Issuer:    issuer,
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString([]byte("test-secret-key-one-0123456789ab"))
	require.NoError(t, err)

	_, err = codec.VerifyAccess(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenSignature)
}

func TestCodec_TamperedSignature(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.IssueAccess("user-123", "alice@example.com", "user")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = codec.VerifyAccess(tampered)
	assert.ErrorIs(t, err, ErrTokenSignature)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	for _, garbage := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		_, err := codec.VerifyAccess(garbage)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", garbage)
	}
}

func TestCodec_KeyRotation(t *testing.T) {
	// Sign with k2, verify with a codec whose active key is k1 but whose
	// key set still contains k2.
	signer, err := NewCodec(map[string]string{
		"k2": "test-secret-key-two-0123456789ab",
	}, "k2", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	token, err := signer.IssueAccess("user-123", "alice@example.com", "user")
	require.NoError(t, err)

	verifier := newTestCodec(t)
	claims, err := verifier.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestCodec_UnknownKID(t *testing.T) {
	signer, err := NewCodec(map[string]string{
		"k9": "test-secret-key-nine-0123456789a",
	}, "k9", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	token, err := signer.IssueAccess("user-123", "alice@example.com", "user")
	require.NoError(t, err)

	verifier := newTestCodec(t)
	_, err = verifier.VerifyAccess(token)
	assert.Error(t, err)
}
