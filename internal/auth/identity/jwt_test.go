package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("messaging-test-secret")

func TestVerifyExtractsIdentity(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now, nil)

	token := signTestToken(t, jwt.MapClaims{
		"iss":            "hyptrb-identity",
		"sub":            "user-1",
		"email":          "Owner@Example.com",
		"name":           "Campaign Owner",
		"picture":        "https://cdn/owner.png",
		"phone_number":   "+254700000000",
		"email_verified": true,
		"exp":            now.Add(time.Hour).Unix(),
	})

	got, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected subject %q", got.UserID)
	}
	if got.Email != "owner@example.com" {
		t.Fatalf("expected lowercased email, got %q", got.Email)
	}
	if got.DisplayName != "Campaign Owner" || !got.EmailVerified {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now, nil)

	token := signTestToken(t, jwt.MapClaims{
		"iss": "hyptrb-identity",
		"sub": "user-1",
		"exp": now.Add(-time.Minute).Unix(),
	})
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now, nil)
	ctx := context.Background()

	if _, err := verifier.Verify(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
	if _, err := verifier.Verify(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	missingSubject := signTestToken(t, jwt.MapClaims{
		"iss": "hyptrb-identity",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(ctx, missingSubject); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing subject, got %v", err)
	}

	wrongIssuer := signTestToken(t, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(ctx, wrongIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "hyptrb-identity",
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := wrongKey.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign with other secret: %v", err)
	}
	if _, err := verifier.Verify(ctx, signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now, func(tokenID string) bool {
		return tokenID == "revoked-1"
	})

	token := signTestToken(t, jwt.MapClaims{
		"iss": "hyptrb-identity",
		"sub": "user-1",
		"jti": "revoked-1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTVerifier(JWTVerifierConfig{}); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func newTestVerifier(t *testing.T, now time.Time, revoked func(string) bool) *JWTVerifier {
	t.Helper()
	verifier, err := NewJWTVerifier(JWTVerifierConfig{
		Secret:  testSecret,
		Issuer:  "hyptrb-identity",
		Now:     func() time.Time { return now },
		Revoked: revoked,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
