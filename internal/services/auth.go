package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/events"
	"github.com/identikit/apiserver/internal/password"
	"github.com/identikit/apiserver/internal/store"
	"github.com/identikit/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id int64, update store.UserUpdate) (types.User, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
}

// EventPublisher emits security events. Implementations must treat emission
// as advisory; callers ignore failures.
type EventPublisher interface {
	Emit(ctx context.Context, eventType string, userID int64) error
}

// TokenIssuer signs session tokens for a subject.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// AuthService implements signup and login.
type AuthService struct {
	repo   UserRepository
	tokens TokenIssuer
	events EventPublisher
	logger *slog.Logger
}

func NewAuthService(repo UserRepository, tokens TokenIssuer, publisher EventPublisher, logger *slog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, events: publisher, logger: logger}
}

// SignupInput is a validated signup payload.
type SignupInput struct {
	FirstName string
	LastName  string
	Phone     string
	Username  string
	Email     string
	Password  string
}

// Signup hashes the password, persists the account, and issues a session
// token. A duplicate username or email surfaces as a conflict with the
// offending field named in the details.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (types.User, string, error) {
	hash, err := password.Hash(input.Password)
	if err != nil {
		return types.User{}, "", apperr.Internal(err)
	}

	user, err := s.repo.Create(ctx, types.User{
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Phone:             input.Phone,
		Username:          input.Username,
		Email:             input.Email,
		PasswordHash:      hash,
		PasswordChangedAt: time.Now(),
		IsActive:          true,
	})
	if err != nil {
		return types.User{}, "", err
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return types.User{}, "", err
	}

	s.emit(ctx, events.TypeSignup, user.ID)

	return user, signed, nil
}

// Login authenticates by identifier (username or email) and password.
// Unknown identifier and wrong password are indistinguishable to the caller:
// same message, same status, and the hash verification runs in both branches
// so neither resolves faster.
func (s *AuthService) Login(ctx context.Context, identifier, plaintext string) (types.User, string, error) {
	user, lookupErr := s.repo.GetByIdentifier(ctx, identifier)

	targetHash := password.DummyHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case apperr.IsKind(lookupErr, apperr.KindNotFound):
		// fall through to the dummy verification
	default:
		return types.User{}, "", lookupErr
	}

	valid := password.Verify(plaintext, targetHash)
	if !exists || !valid {
		return types.User{}, "", apperr.Auth("Invalid login credentials")
	}

	if !user.IsActive {
		return types.User{}, "", apperr.Forbidden("Account deactivated")
	}

	now := time.Now()
	if err := s.repo.RecordLogin(ctx, user.ID, now); err != nil {
		// Best effort: a failed stamp must not block the login.
		s.logger.Warn("failed to record login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return types.User{}, "", err
	}

	s.emit(ctx, events.TypeLogin, user.ID)

	return user, signed, nil
}

func (s *AuthService) emit(ctx context.Context, eventType string, userID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, userID); err != nil {
		s.logger.Warn("failed to publish security event",
			"type", eventType, "user_id", userID, "error", err)
	}
}
