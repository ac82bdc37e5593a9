package ormlite_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/ormlite"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ormlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: reports
driver: sqlite
dsn: file:reports.db
parameterized: false
command_timeout: 5s
log_level: prod
naming: snake_case
`), 0o600))

	t.Run("file", func(t *testing.T) {
		cfg, err := ormlite.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "reports", cfg.Name)
		assert.Equal(t, "sqlite", cfg.Driver)
		assert.Equal(t, "file:reports.db", cfg.ConnectionString)
		assert.False(t, cfg.Parameterized)
		assert.False(t, cfg.DisableGuessFallback)
		assert.Equal(t, 5*time.Second, cfg.CommandTimeout)
		assert.Equal(t, ormlite.LogLevelProd, cfg.LogLevel)
		assert.Equal(t, "snake_case", cfg.Naming)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ORMLITE_DSN", ":memory:")
		t.Setenv("ORMLITE_DISABLE_GUESS_FALLBACK", "true")
		cfg, err := ormlite.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.ConnectionString)
		assert.True(t, cfg.DisableGuessFallback)
		assert.Equal(t, "reports", cfg.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ormlite.LoadConfig(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestSchematic(t *testing.T) {
	_, db := setup(t, true)
	var buf bytes.Buffer
	db.Schematic(&buf)
	out := buf.String()
	assert.Contains(t, out, "SQL Dialect: "+db.Dialect().Name())
	assert.Contains(t, out, `Person => "Person"`)
	assert.Contains(t, out, "Post 1-N Comment => Comments")
}
