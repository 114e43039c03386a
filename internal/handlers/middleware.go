package handlers

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/token"
	"github.com/identikit/apiserver/types"
)

// bearerRegex accepts "Bearer <token>" where the token is shaped like a JWT:
// three dot-separated base64url segments. Anything else is a malformed
// request, not a rejected credential.
var bearerRegex = regexp.MustCompile(`^Bearer\s+([A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+)$`)

// TokenVerifier verifies a session token string.
type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// AccountLookup re-fetches the token subject's current account state.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
}

// AuthGate guards protected routes. It verifies the bearer token, re-fetches
// the account, and enforces active-status and credential-freshness before
// the handler runs. Any failure short-circuits into the error pipeline.
type AuthGate struct {
	tokens  TokenVerifier
	users   AccountLookup
	respond *Responder
}

func NewAuthGate(tokens TokenVerifier, users AccountLookup, respond *Responder) *AuthGate {
	return &AuthGate{tokens: tokens, users: users, respond: respond}
}

// RequireAuth wraps a handler with the authentication gate.
func (g *AuthGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.authenticate(r)
		if err != nil {
			g.respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (g *AuthGate) authenticate(r *http.Request) (types.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return types.User{}, apperr.Auth("Authentication required")
	}

	match := bearerRegex.FindStringSubmatch(header)
	if match == nil {
		return types.User{}, apperr.Validation("Invalid authentication format. Use Bearer schema", nil)
	}

	claims, err := g.tokens.Verify(match[1])
	if err != nil {
		return types.User{}, err
	}

	user, err := g.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return types.User{}, apperr.Auth("User account not found")
		}
		return types.User{}, err
	}

	if !user.IsActive {
		return types.User{}, apperr.Forbidden("Account deactivated")
	}

	// The iat claim has second precision, so compare at second precision:
	// otherwise the sub-second gap between hashing and signing at signup
	// would invalidate the very token being issued.
	if user.PasswordChangedAt.Truncate(time.Second).After(claims.IssuedAt) {
		return types.User{}, apperr.Auth("Security credentials expired")
	}

	return user, nil
}
