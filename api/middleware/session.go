package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bookstore-storefront/api/responses"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

type credentialParser interface {
	Parse(token string) (auth.Credential, error)
}

// Session reads the commerce bearer token and seeds the request context with the
// credential the downstream calls forward.
func Session(parser credentialParser, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			cred, err := parser.Parse(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if cred.SessionID() == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			ctx := auth.WithCredential(r.Context(), cred)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, cred.SessionID())
				if userID := cred.UserID(); userID != "" {
					ctx = logg.WithUserID(ctx, userID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionExpiry writes the credential expiry so the UI can prompt for sign-in early.
func SessionExpiry() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cred, ok := auth.CredentialFromContext(r.Context()); ok && cred.Claims.ExpiresAt != nil {
				w.Header().Set("X-Session-Expires-At", cred.Claims.ExpiresAt.UTC().Format(time.RFC3339))
			}
			next.ServeHTTP(w, r)
		})
	}
}
