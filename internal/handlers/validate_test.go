package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/apiserver/internal/apperr"
)

func TestFieldErrors(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("collects every failing field", func(t *testing.T) {
		fe := fieldErrors{}
		fe.requireMin("first", "", minNameLength)
		fe.requireMin("username", "ab", minUsernameLength)
		fe.requireEmail("email", "not-an-email")

		err := fe.err()
		require.Error(t, err)

		appErr := apperr.From(err)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Equal(t, "Validation failed", appErr.Message)
		assert.Equal(t, "First is required", appErr.Details["first"])
		assert.Equal(t, "Username must be at least 3 characters", appErr.Details["username"])
		assert.Equal(t, "Email must be a valid email address", appErr.Details["email"])
	})

	t.Run("no failures yields no error", func(t *testing.T) {
		fe := fieldErrors{}
		fe.requireMin("first", "Ada", minNameLength)
		fe.requireEmail("email", "ada@example.com")
		assert.NoError(t, fe.err())
	})

	t.Run("whitespace-only values count as missing", func(t *testing.T) {
		fe := fieldErrors{}
		fe.requireMin("phone", "   ", minPhoneLength)
		assert.Equal(t, "Phone is required", fe["phone"])
	})

	t.Run("optional fields skip absent and empty values", func(t *testing.T) {
		fe := fieldErrors{}
		fe.optionalMin("first", nil, minNameLength)
		fe.optionalMin("last", strPtr(""), minNameLength)
		fe.optionalEmail("email", strPtr("  "))
		assert.NoError(t, fe.err())
	})

	t.Run("optional fields still validate present values", func(t *testing.T) {
		fe := fieldErrors{}
		fe.optionalMin("username", strPtr("ab"), minUsernameLength)
		fe.optionalEmail("email", strPtr("nope"))
		assert.Len(t, fe, 2)
	})

	t.Run("display-name addresses are rejected", func(t *testing.T) {
		fe := fieldErrors{}
		fe.requireEmail("email", "Ada Lovelace <ada@example.com>")
		assert.Contains(t, fe, "email")
	})
}
