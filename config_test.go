package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ReadConfig_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	var c Config
	require.NoError(t, c.ReadConfig(""))

	assert.Equal(t, "/var/lib/fx3-capture-index", c.BasePath)
	assert.Equal(t, "default", c.SessionID)
	assert.EqualValues(t, DefaultByteCacheBudgetBytes, c.ByteCacheBudgetBytes)
	assert.Equal(t, DefaultMaxOpenFiles, c.MaxOpenFiles)
	assert.Equal(t, DefaultSnapshotThreshold, c.SnapshotThreshold)
	assert.Equal(t, DefaultBatchSnapshotThreshold, c.BatchSnapshotThreshold)
	assert.False(t, c.Metrics)
	assert.Equal(t, 8000, c.MetricsPort)
	assert.False(t, c.EventBus.Enable)
	assert.Equal(t, "amqp", c.EventBus.Kind)
}

func TestConfig_ReadConfig_ExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
index:
  base_path: /var/lib/custom-index
  session_id: mysession
metrics:
  enable: true
  port: 9999
eventbus:
  enable: true
  kind: stomp
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	var c Config
	require.NoError(t, c.ReadConfig(path))

	assert.Equal(t, "/var/lib/custom-index", c.BasePath)
	assert.Equal(t, "mysession", c.SessionID)
	assert.True(t, c.Metrics)
	assert.Equal(t, 9999, c.MetricsPort)
	assert.True(t, c.EventBus.Enable)
	assert.Equal(t, "stomp", c.EventBus.Kind)

	// Fields absent from the file still fall back to the documented default.
	assert.Equal(t, DefaultMaxOpenFiles, c.MaxOpenFiles)
}
