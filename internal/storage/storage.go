// Package storage persists user avatars in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore stores one avatar object per user on an ObjectStorage backend.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore for the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads the avatar for a user, replacing any previous one, and returns
// the object key.
func (s *AvatarStore) Put(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) (string, error) {
	key := avatarKey(userID)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a reader for the avatar of a user.
func (s *AvatarStore) Get(ctx context.Context, userID int64) (io.ReadCloser, error) {
	return s.backend.Get(ctx, avatarKey(userID))
}

// Delete removes the avatar of a user.
func (s *AvatarStore) Delete(ctx context.Context, userID int64) error {
	return s.backend.Delete(ctx, avatarKey(userID))
}

// Bucket returns the configured bucket name.
func (s *AvatarStore) Bucket() string {
	return s.backend.Bucket()
}

func avatarKey(userID int64) string {
	return fmt.Sprintf("avatars/%d", userID)
}
