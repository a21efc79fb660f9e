package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 0, cfg.VerifyConcurrency)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTelEndpoint)
	assert.Equal(t, 1.0, cfg.OTelSampleRate)
	assert.Equal(t, 15*time.Second, cfg.OTelExportEvery)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NOSTREVENT_LOG_LEVEL", "debug")
	t.Setenv("NOSTREVENT_VERIFY_CONCURRENCY", "8")
	t.Setenv("NOSTREVENT_OTEL_ENABLED", "true")
	t.Setenv("NOSTREVENT_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("NOSTREVENT_OTEL_INSECURE", "true")
	t.Setenv("NOSTREVENT_OTEL_EXPORT_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, 8, cfg.VerifyConcurrency)

	oc := cfg.Observability("1.2.3")
	assert.True(t, oc.Enabled)
	assert.True(t, oc.Insecure)
	assert.Equal(t, "collector:4317", oc.OTLPEndpoint)
	assert.Equal(t, time.Minute, oc.ExportInterval)
	assert.Equal(t, "1.2.3", oc.ServiceVersion)
	assert.Equal(t, "nostrevent", oc.ServiceName)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("NOSTREVENT_VERIFY_CONCURRENCY", "lots")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("NOSTREVENT_VERIFY_CONCURRENCY", "1")
	t.Setenv("NOSTREVENT_LOG_LEVEL", "chatty")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOSTREVENT_LOG_LEVEL")
}

func TestLoad_SecretKeyIsUnset(t *testing.T) {
	const key = "0202020202020202020202020202020202020202020202020202020202020202"
	t.Setenv("NOSTREVENT_SECRET_KEY", key)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, key, cfg.SecretKey)

	_, present := os.LookupEnv("NOSTREVENT_SECRET_KEY")
	assert.False(t, present)
}

func TestLogValue_RedactsSecretKey(t *testing.T) {
	cfg := &Config{LogLevel: "INFO", SecretKey: "deadbeef"}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("config loaded", "config", cfg)

	assert.NotContains(t, buf.String(), "deadbeef")
	assert.Contains(t, buf.String(), "config.secret_key_set=true")
}
