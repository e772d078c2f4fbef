package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{"QOPTICS_RUN_DIR", "QOPTICS_DB_PATH", "QOPTICS_PORT", "QOPTICS_LOG_LEVEL", "QOPTICS_PRETTY_LOG"}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("runs", "qoptics"), cfg.RunDir)
	assert.Equal(t, filepath.Join("runs", "qoptics", "runs.db"), cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.PrettyLog)
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("QOPTICS_RUN_DIR", "/tmp/q")
	t.Setenv("QOPTICS_PORT", "9000")
	t.Setenv("QOPTICS_PRETTY_LOG", "false")
	t.Setenv("QOPTICS_LOG_LEVEL", "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/q", cfg.RunDir)
	assert.Equal(t, filepath.Join("/tmp/q", "runs.db"), cfg.DBPath)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.PrettyLog)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("QOPTICS_DB_PATH=/data/q.db\nQOPTICS_PORT=7000\n"), 0644))
	t.Setenv("QOPTICS_PORT", "7001")

	cfg, err := Load(envPath)
	require.NoError(t, err)
	assert.Equal(t, "/data/q.db", cfg.DBPath)
	// The environment wins over .env.
	assert.Equal(t, 7001, cfg.Port)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("QOPTICS_LOG_LEVEL", "loud")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	cfg := &Config{DBPath: "x.db", Port: 0, LogLevel: "info"}
	require.Error(t, cfg.Validate())
	cfg.Port = 1
	require.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	var buf bytes.Buffer
	log := cfg.NewLogger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, `"message":"shown"`), out)
}
