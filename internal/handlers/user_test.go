package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/apiserver/internal/password"
	"github.com/identikit/apiserver/internal/services"
	"github.com/identikit/apiserver/internal/storage"
	"github.com/identikit/apiserver/types"
)

// stubObjectStorage keeps objects in memory for avatar tests.
type stubObjectStorage struct {
	objects map[string][]byte
}

func newStubObjectStorage() *stubObjectStorage {
	return &stubObjectStorage{objects: map[string][]byte{}}
}

func (s *stubObjectStorage) EnsureBucket(context.Context) error { return nil }

func (s *stubObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *stubObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubObjectStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubObjectStorage) Bucket() string { return "avatars" }

func newUserHandler(repo *memRepo, avatars *storage.AvatarStore) *UserHandler {
	users := services.NewUserService(repo, avatars, nil, testLogger())
	return NewUserHandler(users, NewResponder(false, testLogger()))
}

func authedRequest(method, target, body string, user types.User) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(withUser(req.Context(), user))
}

func TestUserHandler_Profile(t *testing.T) {
	t.Run("returns the stored account", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, nil)

		rec := httptest.NewRecorder()
		handler.Profile(rec, authedRequest(http.MethodGet, "/user/profile", "", seeded))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeSuccess(t, rec)
		assert.Equal(t, "User profile details has been fetched", body.Message)
		assert.Equal(t, "ada", body.Data["username"])
		assert.NotContains(t, body.Data, "password_hash")
	})

	t.Run("missing context user", func(t *testing.T) {
		handler := newUserHandler(newMemRepo(), nil)
		rec := httptest.NewRecorder()
		handler.Profile(rec, httptest.NewRequest(http.MethodGet, "/user/profile", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	put := func(t *testing.T, repo *memRepo, body string, user types.User) *httptest.ResponseRecorder {
		t.Helper()
		handler := newUserHandler(repo, nil)
		rec := httptest.NewRecorder()
		handler.UpdateProfile(rec, authedRequest(http.MethodPut, "/user/profile", body, user))
		return rec
	}

	t.Run("trims text fields", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)

		rec := put(t, repo, `{"first":"  Augusta  "}`, seeded)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeSuccess(t, rec)
		assert.Equal(t, "User has been updated successfully", body.Message)
		assert.Equal(t, "Augusta", body.Data["first"])
		require.NotNil(t, repo.lastUpdate.FirstName)
		assert.Equal(t, "Augusta", *repo.lastUpdate.FirstName)
		assert.Nil(t, repo.lastUpdate.PasswordHash)
	})

	t.Run("empty strings count as absent", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)

		rec := put(t, repo, `{"first":"","password":""}`, seeded)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, repo.lastUpdate.FirstName)
		assert.Nil(t, repo.lastUpdate.PasswordHash)
	})

	t.Run("passwords keep their whitespace", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)

		rec := put(t, repo, `{"password":" spaced out "}`, seeded)

		require.Equal(t, http.StatusOK, rec.Code)
		stored := repo.users[seeded.ID]
		assert.True(t, password.Verify(" spaced out ", stored.PasswordHash))
		assert.False(t, password.Verify("spaced out", stored.PasswordHash))
		require.NotNil(t, repo.lastUpdate.PasswordChangedAt)
	})

	t.Run("rejects short fields", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)

		rec := put(t, repo, `{"username":"ab","password":"short"}`, seeded)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Contains(t, body.Details, "username")
		assert.Contains(t, body.Details, "password")
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)

		rec := put(t, repo, `{"first"`, seeded)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, rec).Message)
	})
}

func TestUserHandler_Avatar(t *testing.T) {
	newAvatarStore := func() *storage.AvatarStore {
		return storage.NewAvatarStore(newStubObjectStorage())
	}

	upload := func(t *testing.T, handler *UserHandler, user types.User, contentType string, data []byte) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPut, "/user/avatar", bytes.NewReader(data))
		req = req.WithContext(withUser(req.Context(), user))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		handler.UploadAvatar(rec, req)
		return rec
	}

	t.Run("stores and serves an avatar", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, newAvatarStore())

		rec := upload(t, handler, seeded, "image/png", []byte("png-bytes"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeSuccess(t, rec)
		assert.Equal(t, "Avatar has been updated successfully", body.Message)
		assert.Equal(t, "avatars/1", body.Data["key"])

		getRec := httptest.NewRecorder()
		handler.Avatar(getRec, authedRequest(http.MethodGet, "/user/avatar", "", seeded))
		require.Equal(t, http.StatusOK, getRec.Code)
		assert.Equal(t, "png-bytes", getRec.Body.String())
	})

	t.Run("rejects non-image uploads", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, newAvatarStore())

		rec := upload(t, handler, seeded, "application/json", []byte("{}"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Avatar must be an image", decodeError(t, rec).Message)

		rec = upload(t, handler, seeded, "", []byte("raw"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, newAvatarStore())

		rec := upload(t, handler, seeded, "image/png", make([]byte, maxAvatarBytes+1))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Avatar exceeds the size limit", decodeError(t, rec).Message)
	})

	t.Run("delete removes the stored avatar", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		backend := newStubObjectStorage()
		handler := newUserHandler(repo, storage.NewAvatarStore(backend))

		rec := upload(t, handler, seeded, "image/png", []byte("png-bytes"))
		require.Equal(t, http.StatusOK, rec.Code)

		delRec := httptest.NewRecorder()
		handler.DeleteAvatar(delRec, authedRequest(http.MethodDelete, "/user/avatar", "", seeded))
		require.Equal(t, http.StatusOK, delRec.Code)
		assert.Equal(t, "Avatar has been removed successfully", decodeSuccess(t, delRec).Message)
		assert.Empty(t, backend.objects)

		getRec := httptest.NewRecorder()
		handler.Avatar(getRec, authedRequest(http.MethodGet, "/user/avatar", "", seeded))
		assert.Equal(t, http.StatusNotFound, getRec.Code)
	})

	t.Run("delete without configured storage is unavailable", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, nil)

		rec := httptest.NewRecorder()
		handler.DeleteAvatar(rec, authedRequest(http.MethodDelete, "/user/avatar", "", seeded))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("missing avatar is not found", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, newAvatarStore())

		rec := httptest.NewRecorder()
		handler.Avatar(rec, authedRequest(http.MethodGet, "/user/avatar", "", seeded))
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Avatar not found", decodeError(t, rec).Message)
	})

	t.Run("unconfigured storage is unavailable", func(t *testing.T) {
		repo := newMemRepo()
		seeded := seedAccount(t, repo)
		handler := newUserHandler(repo, nil)

		rec := upload(t, handler, seeded, "image/png", []byte("png-bytes"))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Avatar storage is not configured", decodeError(t, rec).Message)
	})
}
