// Package token issues and verifies signed session tokens.
package token

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/identikit/apiserver/internal/apperr"
)

// TTL is the fixed lifetime of a session token.
const TTL = time.Hour

// Claims is the verified content of a session token. Cryptographic validity
// and expiry are guaranteed; freshness against current account state is the
// caller's responsibility.
type Claims struct {
	UserID   int64
	IssuedAt time.Time
}

// Service signs and verifies session tokens with a fixed symmetric secret
// and a single-member algorithm whitelist (HS256).
type Service struct {
	secret []byte
	issuer string
}

// NewService constructs a Service. issuer may be empty, in which case the
// issuer claim is neither set nor verified.
func NewService(secret, issuer string) *Service {
	return &Service{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for the given subject, valid for TTL from now.
func (s *Service) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Any failure — bad signature,
// wrong algorithm, expired or not-yet-valid window, issuer mismatch, missing
// subject — yields the same AuthError.
func (s *Service) Verify(raw string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed := jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Claims{}, apperr.Auth("Invalid or expired token")
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(parsed.Subject), 10, 64)
	if err != nil || userID < 1 {
		return Claims{}, apperr.Auth("Invalid token payload")
	}
	if parsed.IssuedAt == nil {
		return Claims{}, apperr.Auth("Invalid token payload")
	}

	return Claims{UserID: userID, IssuedAt: parsed.IssuedAt.Time}, nil
}
