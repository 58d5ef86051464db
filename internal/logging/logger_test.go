package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelInfo, ParseLevel("anything else"))
}

func TestEnableFileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, EnableFileLogging(dir, LevelInfo))
	t.Cleanup(func() {
		Close()
		Configure(LevelInfo, io.Discard)
	})

	Info("server started", "addr", ":8080")
	Debug("suppressed at info level")

	data, err := os.ReadFile(filepath.Join(dir, "appforge.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"server started"`)
	assert.Contains(t, string(data), `"addr":":8080"`)
	assert.NotContains(t, string(data), "suppressed")
}
