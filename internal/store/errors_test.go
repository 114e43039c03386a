package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/apiserver/internal/apperr"
)

func TestTranslate(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, translate(nil))
	})

	t.Run("no rows becomes not found", func(t *testing.T) {
		err := translate(sql.ErrNoRows)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.Equal(t, "Record not found", apperr.From(err).Message)
	})

	t.Run("bad connection becomes dependency", func(t *testing.T) {
		assert.True(t, apperr.IsKind(translate(driver.ErrBadConn), apperr.KindDependency))
		assert.True(t, apperr.IsKind(translate(context.DeadlineExceeded), apperr.KindDependency))
	})

	t.Run("foreign key violation becomes validation", func(t *testing.T) {
		err := translate(&pq.Error{Code: "23503"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("undefined table becomes dependency", func(t *testing.T) {
		err := translate(&pq.Error{Code: "42P01"})
		assert.True(t, apperr.IsKind(err, apperr.KindDependency))
		assert.Equal(t, "Datastore schema mismatch", apperr.From(err).Message)
	})

	t.Run("connection class becomes dependency", func(t *testing.T) {
		err := translate(&pq.Error{Code: "08006"})
		assert.True(t, apperr.IsKind(err, apperr.KindDependency))
	})

	t.Run("wrapped driver errors still classify", func(t *testing.T) {
		wrapped := fmt.Errorf("get user: %w", &pq.Error{Code: "08001"})
		assert.True(t, apperr.IsKind(translate(wrapped), apperr.KindDependency))
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		err := translate(errors.New("boom"))
		appErr := apperr.From(err)
		assert.Equal(t, apperr.KindInternal, appErr.Kind)
		assert.False(t, appErr.Operational())
	})
}

func TestTranslate_UniqueViolation(t *testing.T) {
	t.Run("email constraint names the field", func(t *testing.T) {
		err := translate(&pq.Error{Code: "23505", Constraint: "users_email_lower_idx"})
		require.True(t, apperr.IsKind(err, apperr.KindConflict))

		appErr := apperr.From(err)
		assert.Equal(t, "Data already exists", appErr.Message)
		assert.Equal(t, map[string]string{"email": "email already exists"}, appErr.Details)
	})

	t.Run("username constraint names the field", func(t *testing.T) {
		err := translate(&pq.Error{Code: "23505", Constraint: "users_username_lower_idx"})
		appErr := apperr.From(err)
		assert.Equal(t, map[string]string{"username": "username already exists"}, appErr.Details)
	})

	t.Run("unknown constraint keeps generic details", func(t *testing.T) {
		err := translate(&pq.Error{Code: "23505", Constraint: "users_pkey"})
		require.True(t, apperr.IsKind(err, apperr.KindConflict))
		assert.Nil(t, apperr.From(err).Details)
	})
}
