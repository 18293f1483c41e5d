package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fx3stream/capture-index/index"
	"github.com/fx3stream/capture-index/query"
)

// fakeIndex is a minimal index.Access test double, grounded on the spec's
// Design Notes §9 observation that IIndexAccess exists precisely so test
// doubles can stand in for a live Store.
type fakeIndex struct {
	descs []index.PacketDescriptor
}

func (f *fakeIndex) FindClosest(ts uint64) (index.PacketDescriptor, bool) {
	if len(f.descs) == 0 {
		return index.PacketDescriptor{}, false
	}
	best := f.descs[0]
	for _, d := range f.descs[1:] {
		if absU64(d.TimestampNs, ts) < absU64(best.TimestampNs, ts) {
			best = d
		}
	}
	return best, true
}

func absU64(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return b - a
}

func (f *fakeIndex) Range(tsLo, tsHi uint64) []index.PacketDescriptor {
	var out []index.PacketDescriptor
	for _, d := range f.descs {
		if d.TimestampNs >= tsLo && d.TimestampNs <= tsHi {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeIndex) Query(q query.Query) []index.PacketDescriptor { return f.Range(q.TimestampStart, q.TimestampEnd) }
func (f *fakeIndex) FindByCommand(cmd index.CommandType, limit int) []index.PacketDescriptor {
	return nil
}
func (f *fakeIndex) All() []index.PacketDescriptor { return f.descs }
func (f *fakeIndex) Count() int                    { return len(f.descs) }

func writeTempCapture(t *testing.T, contents []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.bin")
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path
}

func TestReader_ReadHitsCacheOnSecondCall(t *testing.T) {
	path := writeTempCapture(t, []byte("ABCDEFGHIJKLMNOP"))
	desc := index.PacketDescriptor{FilePath: path, FileOffset: 4, Size: 8, TimestampNs: 100}

	r := New(&fakeIndex{descs: []index.PacketDescriptor{desc}}, Config{})
	defer r.Close()

	first, err := r.Read(desc)
	require.NoError(t, err)
	assert.Equal(t, []byte("EFGHIJKL"), first)

	second, err := r.Read(desc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	counters := r.Counters()
	assert.EqualValues(t, 1, counters.CacheHits)
	assert.EqualValues(t, 1, counters.CacheMisses)
	assert.EqualValues(t, 2, counters.TotalReads)
}

func TestReader_ShortReadErrorsWithoutHangingForever(t *testing.T) {
	path := writeTempCapture(t, []byte("ABCD"))
	desc := index.PacketDescriptor{FilePath: path, FileOffset: 0, Size: 100, TimestampNs: 1}

	r := New(&fakeIndex{descs: []index.PacketDescriptor{desc}}, Config{ReadTimeoutMs: 50})
	defer r.Close()

	_, err := r.Read(desc)
	require.Error(t, err)
}

func TestReader_ReadAtFindsClosest(t *testing.T) {
	path := writeTempCapture(t, []byte("0123456789"))
	descs := []index.PacketDescriptor{
		{FilePath: path, FileOffset: 0, Size: 2, TimestampNs: 10},
		{FilePath: path, FileOffset: 2, Size: 2, TimestampNs: 20},
	}
	r := New(&fakeIndex{descs: descs}, Config{})
	defer r.Close()

	data, desc, err := r.ReadAt(19)
	require.NoError(t, err)
	assert.EqualValues(t, 20, desc.TimestampNs)
	assert.Equal(t, []byte("23"), data)
}

func TestByteCache_EvictsOverBudget(t *testing.T) {
	c := newByteCache(10)
	c.put("a", []byte("12345"))
	c.put("b", []byte("12345"))
	c.put("c", []byte("12345"))

	_, aOK := c.get("a")
	_, bOK := c.get("b")
	_, cOK := c.get("c")

	assert.False(t, aOK)
	assert.True(t, bOK)
	assert.True(t, cOK)
}

func TestByteCache_OversizedEntryBypassesCache(t *testing.T) {
	c := newByteCache(4)
	c.put("big", []byte("12345"))
	_, ok := c.get("big")
	assert.False(t, ok)
}

func TestCacheKey_DistinguishesOffsetAndSize(t *testing.T) {
	assert.Equal(t, "a.bin:4:8", cacheKey("a.bin", 4, 8))
	assert.NotEqual(t, cacheKey("a.bin", 4, 8), cacheKey("a.bin", 4, 9))
	assert.NotEqual(t, cacheKey("a.bin", 4, 8), cacheKey("a.bin", 5, 8))
}
