package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifierConfig defines how bearer tokens are verified.
type JWTVerifierConfig struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
	// Revoked reports whether a token id has been revoked. Optional.
	Revoked func(tokenID string) bool
}

// JWTVerifier validates HMAC-signed bearer tokens.
type JWTVerifier struct {
	cfg JWTVerifierConfig
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Phone         string `json:"phone_number"`
	EmailVerified bool   `json:"email_verified"`
}

// NewJWTVerifier creates a verifier for HMAC-signed tokens.
func NewJWTVerifier(cfg JWTVerifierConfig) (*JWTVerifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTVerifier{cfg: cfg}, nil
}

// Verify validates one bearer token and extracts the identity it carries.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if v == nil || len(v.cfg.Secret) == 0 {
		return Identity{}, fmt.Errorf("token verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.cfg.Issuer))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, ErrInvalidToken
	}
	if v.cfg.Revoked != nil && claims.ID != "" && v.cfg.Revoked(claims.ID) {
		return Identity{}, ErrRevokedToken
	}

	return Identity{
		UserID:        subject,
		Email:         strings.TrimSpace(strings.ToLower(claims.Email)),
		DisplayName:   strings.TrimSpace(claims.Name),
		AvatarURL:     strings.TrimSpace(claims.Picture),
		Phone:         strings.TrimSpace(claims.Phone),
		EmailVerified: claims.EmailVerified,
	}, nil
}
