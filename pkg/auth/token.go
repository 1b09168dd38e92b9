package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Credential is a parsed bearer token scoped to one storefront session.
type Credential struct {
	Token  string
	Claims SessionClaims
}

// SessionID returns the session key for the credential.
func (c Credential) SessionID() string {
	return c.Claims.Session()
}

// UserID returns the token subject.
func (c Credential) UserID() string {
	return c.Claims.Subject
}

// Expired reports whether the credential has expired at now.
func (c Credential) Expired(now time.Time) bool {
	if c.Claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.Claims.ExpiresAt.Time)
}

// Parser turns raw bearer tokens into credentials.
type Parser struct {
	secret []byte
	issuer string
	skew   time.Duration
	now    func() time.Time
}

// NewParser builds a Parser from auth config.
func NewParser(cfg config.AuthConfig) *Parser {
	return &Parser{
		secret: []byte(strings.TrimSpace(cfg.JWTSecret)),
		issuer: strings.TrimSpace(cfg.JWTIssuer),
		skew:   cfg.ClockSkew,
		now:    time.Now,
	}
}

// Parse validates the token and returns the credential. Every failure maps to CodeUnauthorized.
func (p *Parser) Parse(tokenString string) (Credential, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Credential{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session credential")
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(p.skew),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := SessionClaims{}
	var err error
	if len(p.secret) > 0 {
		opts = append(opts, jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}))
		_, err = jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return p.secret, nil
		}, opts...)
	} else {
		err = p.parseUnverified(tokenString, &claims, opts)
	}
	if err != nil {
		return Credential{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session credential")
	}
	if claims.Session() == "" {
		return Credential{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session credential has no subject")
	}

	return Credential{Token: tokenString, Claims: claims}, nil
}

// parseUnverified decodes the token without a key and then runs the claim checks.
func (p *Parser) parseUnverified(tokenString string, claims *SessionClaims, opts []jwt.ParserOption) error {
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return err
	}
	return jwt.NewValidator(opts...).Validate(claims)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

type credentialKey struct{}

// WithCredential stores the credential on the context.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// CredentialFromContext returns the stored credential, if any.
func CredentialFromContext(ctx context.Context) (Credential, bool) {
	if ctx == nil {
		return Credential{}, false
	}
	cred, ok := ctx.Value(credentialKey{}).(Credential)
	if !ok || cred.Token == "" {
		return Credential{}, false
	}
	return cred, true
}

// RequireCredential returns the context credential or CodeUnauthorized when it is absent or expired.
func RequireCredential(ctx context.Context, now time.Time) (Credential, error) {
	cred, ok := CredentialFromContext(ctx)
	if !ok {
		return Credential{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session credential")
	}
	if cred.Expired(now) {
		return Credential{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session credential expired")
	}
	return cred, nil
}
