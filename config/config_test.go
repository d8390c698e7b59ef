package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CAMPAIGN_ENV", "production")
	t.Setenv("CAMPAIGN_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "/var/lib/campaign-studio/campaign.db", cfg.DBPath)
	assert.Equal(t, "dall-e-3", cfg.ImageModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.TranslationModel)
	assert.True(t, cfg.UseOutpaintMethod)
	assert.False(t, cfg.AIDevMode)
	assert.Equal(t, 0.040, cfg.CostPerAssetUSD)
	assert.Equal(t, 1.00, cfg.CostWarningUSD)
	assert.Equal(t, 5*time.Second, cfg.WorkerPollInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	file := filepath.Join(dir, "campaign.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
server_port = 9000
image_model = "dall-e-2"
ai_dev_mode = true
worker_poll_interval = "2s"
cost_warning_usd = 5.0
`), 0644))

	t.Setenv("CAMPAIGN_ENV", "development")
	t.Setenv("CAMPAIGN_CONFIG", file)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("USE_OUTPAINT_METHOD", "false")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORAGE_PATH", filepath.Join(dir, "media"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.ServerPort)
	assert.Equal(t, "dall-e-2", cfg.ImageModel)
	assert.True(t, cfg.AIDevMode)
	assert.False(t, cfg.UseOutpaintMethod)
	assert.Equal(t, 2*time.Second, cfg.WorkerPollInterval)
	assert.Equal(t, 5.0, cfg.CostWarningUSD)
	assert.Equal(t, filepath.Join(dir, "media"), cfg.StoragePath)
	assert.True(t, cfg.HasAPIKey())
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RATE_LIMIT_PER_MINUTE=7\n"), 0644))
	t.Setenv("CAMPAIGN_CONFIG", "")
	// registered so the value loaded from .env is removed after the test
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	require.NoError(t, os.Unsetenv("RATE_LIMIT_PER_MINUTE"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RateLimitPerMinute)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("server_port = ["), 0644))
	t.Setenv("CAMPAIGN_CONFIG", bad)
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "failed to parse config file")

	t.Setenv("CAMPAIGN_CONFIG", "")
	t.Setenv("SERVER_PORT", "70000")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "invalid SERVER_PORT")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_DUR", "12")
	t.Setenv("X_BAD", "nope")
	assert.True(t, getEnvBool("X_BOOL", false))
	assert.True(t, getEnvBool("X_BAD", true))
	assert.Equal(t, 12*time.Second, getEnvDuration("X_DUR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("X_BAD", time.Second))
	assert.Equal(t, 3, getEnvInt("X_BAD", 3))
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
