package capture

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fx3stream/capture-index/index"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		BasePath:       dir,
		SessionID:      "test-session",
		QueueDirectory: filepath.Join(dir, "queue"),
		MaxOpenFiles:   DefaultMaxOpenFiles,
		ReadTimeoutMs:  DefaultReadTimeoutMs,
	}
}

func TestNewCore_WiresUpWithoutEventBus(t *testing.T) {
	c, err := NewCore(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Index)
	assert.NotNil(t, c.Reader)
	assert.NotNil(t, c.Extractor)
	assert.NotNil(t, c.Queue)
	assert.NotNil(t, c.Events)
	assert.NotNil(t, c.Access())
}

func TestCore_DrainMovesQueuedBatchesIntoIndex(t *testing.T) {
	c, err := NewCore(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	go c.Drain()

	c.Queue.Enqueue([]index.PacketDescriptor{{TimestampNs: 1}, {TimestampNs: 2}})

	require.Eventually(t, func() bool {
		return c.Index.Count() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestNewCore_EventBusAMQPUnreachableURLStillWiresSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.EventBus.Enable = true
	cfg.EventBus.Kind = "amqp"
	cfg.EventBus.URL = "amqp://127.0.0.1:1/"

	c, err := NewCore(cfg)
	require.NoError(t, err)
	defer c.Close()

	// NewAMQPSink succeeds immediately (it reconnects asynchronously), so
	// this only exercises the wiring path rather than the fallback itself.
	assert.NotNil(t, c.Events)
}
