package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		log, err := NewLogger("loud", "json", "")
		assert.Error(t, err)
		assert.Nil(t, log)
	})

	t.Run("UppercaseLevel", func(t *testing.T) {
		log, err := NewLogger("INFO", "console", "")
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("WritesToFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deals_automation.log")
		log, err := NewLogger("debug", "json", path)
		require.NoError(t, err)

		log.Info("fetch complete")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "fetch complete")
	})
}
