package handlers

import (
	"context"
	"errors"

	"github.com/identikit/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// withUser attaches the authenticated account to the request context.
func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// userFromContext returns the authenticated account attached by the auth
// gate.
func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok {
		return types.User{}, errors.New("no authenticated user in context")
	}
	return user, nil
}

func userIDFromContext(ctx context.Context) (int64, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
