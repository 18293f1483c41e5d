package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fx3stream/capture-index/eventbus"
	"github.com/fx3stream/capture-index/ingestqueue"
	"github.com/fx3stream/capture-index/parser"
)

func newTestQueue(t *testing.T) *ingestqueue.BatchQueue {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "q")
	bq, err := ingestqueue.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { bq.Close() })
	return bq
}

func TestQueueSink_OnBatchEnqueuesStampedDescriptors(t *testing.T) {
	q := newTestQueue(t)
	sink := NewQueueSink("/captures/a.bin", "session-1", q, eventbus.NopSink{})

	var tick uint64
	sink.nowFn = func() uint64 { tick++; return tick }

	batch := []parser.Packet{
		{FileOffset: 0, Size: 8, CommandType: 0x11, Sequence: 2, ValidHeader: true, BatchID: 1, PacketIndex: 0},
		{FileOffset: 8, Size: 8, CommandType: 0x11, Sequence: 2, ValidHeader: true, BatchID: 1, PacketIndex: 1},
	}
	sink.OnBatch(batch)

	got, err := q.Dequeue()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/captures/a.bin", got[0].FilePath)
	assert.EqualValues(t, 0, got[0].FileOffset)
	assert.EqualValues(t, 8, got[1].FileOffset)
	assert.EqualValues(t, 1, got[0].TimestampNs)
	assert.EqualValues(t, 2, got[1].TimestampNs)
	assert.True(t, got[0].ValidHeader)
}

func TestQueueSink_OnBatchIgnoresEmptyBatch(t *testing.T) {
	q := newTestQueue(t)
	sink := NewQueueSink("/captures/a.bin", "session-1", q, eventbus.NopSink{})
	sink.OnBatch(nil)

	_, err := q.TryDequeue()
	assert.ErrorIs(t, err, ingestqueue.ErrEmpty)
}
