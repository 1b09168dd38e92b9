package auth

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret string, claims SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func baseClaims(now time.Time) SessionClaims {
	return SessionClaims{
		Email: "reader@example.com",
		Name:  "Asha Reader",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ID:        "jti-1",
			Issuer:    "bookstore",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestParserVerifiesSignatureWhenSecretSet(t *testing.T) {
	now := time.Now()
	parser := NewParser(config.AuthConfig{JWTSecret: "shh", JWTIssuer: "bookstore"})

	token := mintToken(t, "shh", baseClaims(now))
	cred, err := parser.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cred.UserID() != "user-42" {
		t.Fatalf("unexpected subject %q", cred.UserID())
	}
	if cred.SessionID() != "jti-1" {
		t.Fatalf("expected jti fallback for session id, got %q", cred.SessionID())
	}
	if got := cred.Claims.Contact(); got.Email != "reader@example.com" || got.Name != "Asha Reader" {
		t.Fatalf("unexpected contact %+v", got)
	}

	forged := mintToken(t, "other", baseClaims(now))
	if _, err := parser.Parse(forged); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad signature, got %v", err)
	}
}

func TestParserWithoutSecretStillRejectsExpired(t *testing.T) {
	now := time.Now()
	parser := NewParser(config.AuthConfig{})

	claims := baseClaims(now)
	claims.SessionID = "sess-9"
	cred, err := parser.Parse(mintToken(t, "backend-only", claims))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cred.SessionID() != "sess-9" {
		t.Fatalf("expected sid claim to win, got %q", cred.SessionID())
	}

	expired := baseClaims(now.Add(-3 * time.Hour))
	if _, err := parser.Parse(mintToken(t, "backend-only", expired)); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected expired token to be unauthorized, got %v", err)
	}
}

func TestParserRejectsEmptyAndMissingExpiry(t *testing.T) {
	parser := NewParser(config.AuthConfig{})
	if _, err := parser.Parse("  "); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}

	claims := baseClaims(time.Now())
	claims.ExpiresAt = nil
	if _, err := parser.Parse(mintToken(t, "x", claims)); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc.def"); !ok || tok != "abc.def" {
		t.Fatalf("unexpected %q %v", tok, ok)
	}
	if tok, ok := BearerToken("bearer   xyz "); !ok || tok != "xyz" {
		t.Fatalf("unexpected %q %v", tok, ok)
	}
	for _, header := range []string{"", "Basic abc", "Bearer "} {
		if _, ok := BearerToken(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestRequireCredential(t *testing.T) {
	now := time.Now()
	if _, err := RequireCredential(context.Background(), now); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized without credential, got %v", err)
	}

	claims := baseClaims(now)
	ctx := WithCredential(context.Background(), Credential{Token: "t", Claims: claims})
	if _, err := RequireCredential(ctx, now); err != nil {
		t.Fatalf("expected credential, got %v", err)
	}
	if _, err := RequireCredential(ctx, now.Add(2*time.Hour)); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected expired credential to fail, got %v", err)
	}
}
