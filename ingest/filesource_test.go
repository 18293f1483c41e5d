package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path
}

func drainChunks(src *FileTailSource) []Chunk {
	var out []Chunk
	for c := range src.Chunks() {
		out = append(out, c)
	}
	return out
}

func TestFileTailSource_NonFollowStopsAtEOF(t *testing.T) {
	path := writeTempFile(t, []byte("hello world"))
	src := NewFileTailSource(path, false, 4)
	require.NoError(t, src.Start())

	chunks := drainChunks(src)
	require.NoError(t, src.Stop())

	var total []byte
	for _, c := range chunks {
		total = append(total, c.Data...)
	}
	assert.Equal(t, "hello world", string(total))

	assert.EqualValues(t, 0, chunks[0].Offset)
	assert.EqualValues(t, 4, chunks[1].Offset)
}

func TestFileTailSource_FollowPicksUpAppendedData(t *testing.T) {
	path := writeTempFile(t, []byte("AAAA"))
	src := NewFileTailSource(path, true, 64)
	require.NoError(t, src.Start())

	first := <-src.Chunks()
	assert.Equal(t, "AAAA", string(first.Data))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("BBBB")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case second := <-src.Chunks():
		assert.Equal(t, "BBBB", string(second.Data))
		assert.EqualValues(t, 4, second.Offset)
	case <-time.After(2 * time.Second):
		t.Fatal("follow mode did not pick up appended data")
	}

	require.NoError(t, src.Stop())
}

func TestFileTailSource_StopUnblocksFollowLoop(t *testing.T) {
	path := writeTempFile(t, nil)
	src := NewFileTailSource(path, true, 64)
	require.NoError(t, src.Start())

	done := make(chan struct{})
	go func() {
		for range src.Chunks() {
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, src.Stop())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Chunks channel did not close after Stop")
	}
}
