package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/events"
	"github.com/identikit/apiserver/internal/password"
	"github.com/identikit/apiserver/internal/services"
	"github.com/identikit/apiserver/internal/storage"
	"github.com/identikit/apiserver/types"
)

type fakeObjectStorage struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (s *fakeObjectStorage) EnsureBucket(context.Context) error { return nil }

func (s *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeObjectStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStorage) Bucket() string { return "avatars" }

func seedUser(t *testing.T, repo *fakeRepo) types.User {
	t.Helper()
	hash, err := password.Hash("enchantress")
	require.NoError(t, err)
	user, err := repo.Create(context.Background(), types.User{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Username:          "ada",
		Email:             "ada@example.com",
		PasswordHash:      hash,
		PasswordChangedAt: time.Now().Add(-time.Hour),
		IsActive:          true,
	})
	require.NoError(t, err)
	return user
}

func TestUserService_Profile(t *testing.T) {
	repo := newFakeRepo()
	seeded := seedUser(t, repo)
	svc := services.NewUserService(repo, nil, nil, discardLogger())

	user, err := svc.Profile(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.Username, user.Username)

	_, err = svc.Profile(context.Background(), 9999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUserService_UpdateProfile(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("name change leaves credentials untouched", func(t *testing.T) {
		repo := newFakeRepo()
		seeded := seedUser(t, repo)
		publisher := &fakePublisher{}
		svc := services.NewUserService(repo, nil, publisher, discardLogger())

		before := repo.users[seeded.ID].PasswordChangedAt
		updated, err := svc.UpdateProfile(context.Background(), seeded.ID, services.UpdateInput{
			FirstName: strPtr("Augusta"),
		})
		require.NoError(t, err)

		assert.Equal(t, "Augusta", updated.FirstName)
		assert.Nil(t, repo.lastUpdate.PasswordHash)
		assert.Nil(t, repo.lastUpdate.PasswordChangedAt)
		assert.Equal(t, before, repo.users[seeded.ID].PasswordChangedAt)
		assert.Empty(t, publisher.emitted)
	})

	t.Run("password change bumps the freshness mark", func(t *testing.T) {
		repo := newFakeRepo()
		seeded := seedUser(t, repo)
		publisher := &fakePublisher{}
		svc := services.NewUserService(repo, nil, publisher, discardLogger())

		before := repo.users[seeded.ID].PasswordChangedAt
		_, err := svc.UpdateProfile(context.Background(), seeded.ID, services.UpdateInput{
			Password: strPtr("new-password"),
		})
		require.NoError(t, err)

		stored := repo.users[seeded.ID]
		assert.True(t, stored.PasswordChangedAt.After(before))
		assert.True(t, password.Verify("new-password", stored.PasswordHash))
		assert.False(t, password.Verify("enchantress", stored.PasswordHash))
		assert.Equal(t, []string{events.TypePasswordChanged}, publisher.emitted)
	})

	t.Run("update failure propagates", func(t *testing.T) {
		repo := newFakeRepo()
		seeded := seedUser(t, repo)
		repo.updateErr = apperr.Conflict("Data already exists", nil)
		svc := services.NewUserService(repo, nil, nil, discardLogger())

		_, err := svc.UpdateProfile(context.Background(), seeded.ID, services.UpdateInput{
			Username: strPtr("taken"),
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestUserService_Avatars(t *testing.T) {
	t.Run("unconfigured storage is a dependency error", func(t *testing.T) {
		svc := services.NewUserService(newFakeRepo(), nil, nil, discardLogger())

		_, err := svc.UploadAvatar(context.Background(), 1, strings.NewReader("img"), 3, "image/png")
		assert.True(t, apperr.IsKind(err, apperr.KindDependency))

		_, err = svc.Avatar(context.Background(), 1)
		assert.True(t, apperr.IsKind(err, apperr.KindDependency))
	})

	t.Run("round trip", func(t *testing.T) {
		backend := newFakeObjectStorage()
		avatars := storage.NewAvatarStore(backend)
		svc := services.NewUserService(newFakeRepo(), avatars, nil, discardLogger())

		key, err := svc.UploadAvatar(context.Background(), 7, strings.NewReader("png-bytes"), 9, "image/png")
		require.NoError(t, err)
		assert.Equal(t, "avatars/7", key)

		reader, err := svc.Avatar(context.Background(), 7)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("missing avatar is not found", func(t *testing.T) {
		avatars := storage.NewAvatarStore(newFakeObjectStorage())
		svc := services.NewUserService(newFakeRepo(), avatars, nil, discardLogger())

		_, err := svc.Avatar(context.Background(), 7)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("backend failure is a dependency error", func(t *testing.T) {
		backend := newFakeObjectStorage()
		backend.putErr = errors.New("bucket gone")
		avatars := storage.NewAvatarStore(backend)
		svc := services.NewUserService(newFakeRepo(), avatars, nil, discardLogger())

		_, err := svc.UploadAvatar(context.Background(), 7, strings.NewReader("img"), 3, "image/png")
		assert.True(t, apperr.IsKind(err, apperr.KindDependency))
	})
}
