package domain

import "time"

// RefreshToken is the persisted record of a user's single live refresh token.
// Only the SHA-256 hash of the token is stored; a new sign-in overwrites the
// row, which silently invalidates the previous token.
type RefreshToken struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevocationRecord marks an access token as invalidated before its natural
// expiry. The raw token value is the record key. Records are reclaimed by the
// expiry sweep once the token would have expired anyway.
type RevocationRecord struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `json:"revoked_at"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
