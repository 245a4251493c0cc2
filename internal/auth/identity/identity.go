// Package identity resolves bearer tokens into authenticated identities.
// The messaging core trusts whatever Verifier it is handed; the default
// implementation validates HMAC-signed JWTs minted by the identity provider.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token is past its expiry.
	ErrExpiredToken = errors.New("expired token")
	// ErrRevokedToken indicates the token was revoked by the provider.
	ErrRevokedToken = errors.New("revoked token")
)

// Identity is the authenticated subject extracted from a verified token.
type Identity struct {
	UserID        string
	Email         string
	DisplayName   string
	AvatarURL     string
	Phone         string
	EmailVerified bool
}

// Verifier validates one bearer token per call.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
