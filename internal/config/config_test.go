package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
log:
  level: debug
  format: text
queue:
  capacity: 256
  drain_timeout: 5s
modules:
  webhook:
    enabled: true
    addr: ":8080"
  sensor:
    poll: 30
weights:
  alpha: 1.5
`

func loadSample(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	return c
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, c.Has("log.level"))
	assert.Equal(t, "info", c.GetString("log.level", "info"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDottedLookup(t *testing.T) {
	c := loadSample(t)

	assert.Equal(t, "debug", c.GetString("log.level", ""))
	assert.Equal(t, 256, c.GetInt("queue.capacity", 0))
	assert.True(t, c.GetBool("modules.webhook.enabled", false))
	assert.Equal(t, ":8080", c.GetString("modules.webhook.addr", ""))
	assert.Equal(t, 1.5, c.GetFloat("weights.alpha", 0))
}

func TestTypedDefaults(t *testing.T) {
	c := loadSample(t)

	// Absent keys fall back.
	assert.Equal(t, "json", c.GetString("log.output", "json"))
	assert.Equal(t, 42, c.GetInt("queue.missing", 42))
	// Type mismatches fall back too.
	assert.Equal(t, 7, c.GetInt("log.level", 7))
	assert.False(t, c.GetBool("queue.capacity", false))
}

func TestGetDuration(t *testing.T) {
	c := loadSample(t)

	assert.Equal(t, 5*time.Second, c.GetDuration("queue.drain_timeout", 0))
	// Bare integers read as seconds.
	assert.Equal(t, 30*time.Second, c.GetDuration("modules.sensor.poll", 0))
	assert.Equal(t, time.Minute, c.GetDuration("queue.nope", time.Minute))
}

func TestSection(t *testing.T) {
	c := loadSample(t)

	sec := c.Section("modules.webhook")
	assert.Equal(t, true, sec["enabled"])
	assert.Equal(t, ":8080", sec["addr"])
	assert.Empty(t, c.Section("modules.webhook.addr"))
	assert.Empty(t, c.Section("no.such"))
}

func TestSetCreatesIntermediateMaps(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("a.b.c", 1))

	v, ok := c.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestSetThroughScalarFails(t *testing.T) {
	c := loadSample(t)
	err := c.Set("log.level.deeper", 1)
	assert.ErrorIs(t, err, ErrNotMap)
}

func TestSetDefault(t *testing.T) {
	c := loadSample(t)

	require.NoError(t, c.SetDefault("log.level", "info"))
	assert.Equal(t, "debug", c.GetString("log.level", ""), "existing value must win")

	require.NoError(t, c.SetDefault("log.output", "stderr"))
	assert.Equal(t, "stderr", c.GetString("log.output", ""))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modkit.yaml")
	c, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, c.Set("queue.capacity", 64))
	require.NoError(t, c.Set("log.level", "warn"))
	require.NoError(t, c.Save())

	c2, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, c2.GetInt("queue.capacity", 0))
	assert.Equal(t, "warn", c2.GetString("log.level", ""))
}

func TestSaveWithoutPath(t *testing.T) {
	assert.ErrorIs(t, New().Save(), ErrNoPath)
}
