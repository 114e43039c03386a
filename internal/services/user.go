package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/events"
	"github.com/identikit/apiserver/internal/password"
	"github.com/identikit/apiserver/internal/storage"
	"github.com/identikit/apiserver/internal/store"
	"github.com/identikit/apiserver/types"
)

// UserService encapsulates profile use-cases.
type UserService struct {
	repo    UserRepository
	avatars *storage.AvatarStore
	events  EventPublisher
	logger  *slog.Logger
}

// NewUserService constructs a UserService. avatars and publisher may be nil
// when the corresponding backends are not configured.
func NewUserService(repo UserRepository, avatars *storage.AvatarStore, publisher EventPublisher, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, avatars: avatars, events: publisher, logger: logger}
}

// UpdateInput is a validated partial profile update. Nil fields are left
// untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Username  *string
	Email     *string
	Password  *string
}

// Profile returns the account for the given id.
func (s *UserService) Profile(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies a partial update. A new password is hashed and bumps
// password_changed_at, which invalidates all previously issued tokens; other
// fields leave the credential columns untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, input UpdateInput) (types.User, error) {
	update := store.UserUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Username:  input.Username,
		Email:     input.Email,
	}

	passwordChanged := false
	if input.Password != nil {
		hash, err := password.Hash(*input.Password)
		if err != nil {
			return types.User{}, apperr.Internal(err)
		}
		now := time.Now()
		update.PasswordHash = &hash
		update.PasswordChangedAt = &now
		passwordChanged = true
	}

	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return types.User{}, err
	}

	if passwordChanged {
		s.emit(ctx, events.TypePasswordChanged, user.ID)
	}

	return user, nil
}

// UploadAvatar stores the avatar image for a user and returns the object
// key. Fails with a dependency error when no storage backend is configured.
func (s *UserService) UploadAvatar(ctx context.Context, id int64, r io.Reader, size int64, contentType string) (string, error) {
	if s.avatars == nil {
		return "", apperr.Dependency("Avatar storage is not configured", nil)
	}
	key, err := s.avatars.Put(ctx, id, r, size, contentType)
	if err != nil {
		return "", apperr.Dependency("Failed to store avatar", err)
	}
	return key, nil
}

// DeleteAvatar removes the stored avatar of a user.
func (s *UserService) DeleteAvatar(ctx context.Context, id int64) error {
	if s.avatars == nil {
		return apperr.Dependency("Avatar storage is not configured", nil)
	}
	if err := s.avatars.Delete(ctx, id); err != nil {
		return apperr.Dependency("Failed to delete avatar", err)
	}
	return nil
}

// Avatar opens a reader for the stored avatar of a user.
func (s *UserService) Avatar(ctx context.Context, id int64) (io.ReadCloser, error) {
	if s.avatars == nil {
		return nil, apperr.Dependency("Avatar storage is not configured", nil)
	}
	reader, err := s.avatars.Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("Avatar not found")
	}
	return reader, nil
}

func (s *UserService) emit(ctx context.Context, eventType string, userID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, userID); err != nil {
		s.logger.Warn("failed to publish security event",
			"type", eventType, "user_id", userID, "error", err)
	}
}
