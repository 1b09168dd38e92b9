package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the subset of the commerce backend's access token the storefront reads.
type SessionClaims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Contact is the prefill handed to the payment collector.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Contact returns the display contact embedded in the token.
func (c SessionClaims) Contact() Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// Session resolves the storefront session key: sid, then jti, then subject.
func (c SessionClaims) Session() string {
	for _, candidate := range []string{c.SessionID, c.ID, c.Subject} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
