package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRollingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access", "gin_access.log")

	logger, err := NewRollingFileLogger(path, "info", 10, 1, 1, false)
	require.NoError(t, err)

	logger.Info("/api/posts")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/api/posts")
}
