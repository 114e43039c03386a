package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/apiserver/internal/logging"
)

func TestSetup(t *testing.T) {
	t.Run("json records carry service and env", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.Setup("identikit", "development", "", &buf)

		logger.Info("hello", "key", "value")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "identikit", record["service"])
		assert.Equal(t, "development", record["env"])
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.Setup("identikit", "development", "text", &buf)

		logger.Info("hello")
		assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	})

	t.Run("debug suppressed in production", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.Setup("identikit", "production", "", &buf)

		logger.Debug("noisy")
		assert.Empty(t, buf.String())

		logger = logging.Setup("identikit", "development", "", &buf)
		logger.Debug("noisy")
		assert.NotEmpty(t, buf.String())
	})
}
