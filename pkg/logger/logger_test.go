package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithWriter(&buf, "production", "")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	l.Info().Str("k", "v").Msg("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)

	l = NewWithWriter(&buf, "development", "")
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())

	l = NewWithWriter(&buf, "development", "WARN")
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
}

func TestRunLogger(t *testing.T) {
	dir := t.TempDir()

	rl, err := NewRunLogger(dir, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "brief_4", "run_2.log"), rl.Path())

	rl.Phase("GENERATE", "Creating base images")
	rl.Property("products", 2)
	rl.Asset("Fizz", "1:1", "en", 1.5)
	rl.Info("saved %d assets", 3)
	require.NoError(t, rl.Close(true, "Generated 3 assets"))
	require.NoError(t, rl.Close(true, "again"))
	rl.Info("ignored after close")

	data, err := os.ReadFile(rl.Path())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "CAMPAIGN GENERATION RUN")
	assert.Contains(t, text, "PHASE: GENERATE")
	assert.Contains(t, text, "product=Fizz")
	assert.Contains(t, text, "saved 3 assets")
	assert.Contains(t, text, "RUN COMPLETED SUCCESSFULLY")
	assert.NotContains(t, text, "ignored after close")
}
