package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serman.log")

	logger, closer, err := New(Config{Level: zerolog.InfoLevel, Format: "json", File: path, Quiet: true})
	require.NoError(t, err)
	logger.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestNew_UnwritableFileFails(t *testing.T) {
	_, _, err := New(Config{Level: zerolog.InfoLevel, File: unwritablePath(t), Quiet: true})
	assert.Error(t, err)
}

func TestNewOrStderr_FallsBackWithoutFile(t *testing.T) {
	path := unwritablePath(t)

	logger, closer := NewOrStderr(Config{Level: zerolog.InfoLevel, File: path, Quiet: true})
	require.NotNil(t, closer)
	logger.Info().Msg("still logging")
	assert.NoError(t, closer.Close())

	_, err := os.Stat(path)
	assert.Error(t, err, "no file is created")
}

// unwritablePath returns a path whose parent is a regular file, which no
// user can create a directory under.
func unwritablePath(t *testing.T) string {
	t.Helper()
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(parent, nil, 0644))
	return filepath.Join(parent, "serman.log")
}
