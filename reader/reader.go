// Package reader implements PacketReader, the random-access read path of
// spec §4.3: it resolves descriptors (directly, by timestamp, or by range)
// to payload bytes, backed by a bounded FileCache and a cost-bound
// ByteCache, with retry and timeout semantics on the underlying I/O.
package reader

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fx3stream/capture-index/index"
	"github.com/fx3stream/capture-index/query"
)

const (
	DefaultMaxOpenFiles         = 20
	DefaultIdleFileCloseSeconds = 300
	DefaultByteCacheBudgetBytes = 10 * 1024 * 1024
	DefaultReadTimeoutMs        = 5000

	maxRetries  = 3
	retryDelay  = 100 * time.Millisecond
)

// Sentinel read errors (§7's ReadError taxonomy).
var (
	ErrUnreadable = errors.New("reader: file unreadable")
	ErrShortRead  = errors.New("reader: short read")
	ErrTimeout    = errors.New("reader: read timeout")
)

// Counters mirrors the observable counters named in §4.3, read with
// Reader.Counters() for tests and metrics wiring.
type Counters struct {
	TotalReads    uint64
	CacheHits     uint64
	CacheMisses   uint64
	ReadErrors    uint64
	TotalReadTime time.Duration
}

// Reader is the PacketReader of §4.3. One mutex guards both caches and the
// file table; seek+read on a given file happens while holding it, so
// interleaved seeks on the same handle can't corrupt its position (§4.3
// Concurrency).
type Reader struct {
	mu sync.Mutex

	idx index.Access

	files *fileCache
	bytes *byteCache

	readTimeout time.Duration

	counters Counters
}

// Config bundles the reader's tunables (spec §6).
type Config struct {
	MaxOpenFiles         int
	IdleFileCloseSeconds int
	ByteCacheBudgetBytes int64
	ReadTimeoutMs        int
}

// New constructs a Reader over idx with the given tunables, falling back to
// spec defaults for zero values.
func New(idx index.Access, cfg Config) *Reader {
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if cfg.IdleFileCloseSeconds <= 0 {
		cfg.IdleFileCloseSeconds = DefaultIdleFileCloseSeconds
	}
	if cfg.ByteCacheBudgetBytes <= 0 {
		cfg.ByteCacheBudgetBytes = DefaultByteCacheBudgetBytes
	}
	if cfg.ReadTimeoutMs <= 0 {
		cfg.ReadTimeoutMs = DefaultReadTimeoutMs
	}

	return &Reader{
		idx:         idx,
		files:       newFileCache(cfg.MaxOpenFiles, time.Duration(cfg.IdleFileCloseSeconds)*time.Second),
		bytes:       newByteCache(cfg.ByteCacheBudgetBytes),
		readTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
	}
}

// Close stops the file cache's idle sweeper goroutine.
func (r *Reader) Close() {
	r.files.stop()
}

// SetCacheSize bounds the byte cache by cost, in bytes.
func (r *Reader) SetCacheSize(budgetBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes.setBudget(budgetBytes)
}

// ClearCache drops all cached payloads.
func (r *Reader) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes.clear()
	r.files.clear()
}

// Counters returns a snapshot of the observable counters.
func (r *Reader) Counters() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}

// Read returns desc's payload, retrying transient seek/read failures up to
// 3 times with a 100ms backoff, bounded by the reader's read_timeout.
func (r *Reader) Read(desc index.PacketDescriptor) ([]byte, error) {
	start := time.Now()
	defer func() {
		r.mu.Lock()
		r.counters.TotalReads++
		r.counters.TotalReadTime += time.Since(start)
		r.mu.Unlock()
	}()

	key := cacheKey(desc.FilePath, desc.FileOffset, desc.Size)

	r.mu.Lock()
	if cached, ok := r.bytes.get(key); ok {
		r.counters.CacheHits++
		r.mu.Unlock()
		return cached, nil
	}
	r.counters.CacheMisses++
	r.mu.Unlock()

	deadline := start.Add(r.readTimeout)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if time.Now().After(deadline) {
			r.recordError()
			return nil, ErrTimeout
		}

		data, err := r.readOnce(desc)
		if err == nil {
			r.mu.Lock()
			r.bytes.put(key, data)
			r.mu.Unlock()
			return data, nil
		}
		lastErr = err

		if errors.Is(err, ErrUnreadable) || errors.Is(err, ErrShortRead) {
			if attempt == maxRetries {
				break
			}
			if time.Now().Add(retryDelay).After(deadline) {
				r.recordError()
				return nil, ErrTimeout
			}
			time.Sleep(retryDelay)
			continue
		}

		break
	}

	r.recordError()
	return nil, lastErr
}

func (r *Reader) recordError() {
	r.mu.Lock()
	r.counters.ReadErrors++
	r.mu.Unlock()
}

// readOnce performs one seek+read under the shared mutex so position
// changes on a given handle never interleave across callers.
func (r *Reader) readOnce(desc index.PacketDescriptor) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.files.get(desc.FilePath)
	if err != nil {
		return nil, errors.Wrap(ErrUnreadable, err.Error())
	}

	buf := make([]byte, desc.Size)
	n, err := f.ReadAt(buf, int64(desc.FileOffset))
	if err != nil && n == 0 {
		return nil, errors.Wrap(ErrUnreadable, err.Error())
	}
	if uint32(n) < desc.Size {
		return nil, ErrShortRead
	}
	return buf, nil
}

// ReadAt reads the descriptor nearest ts.
func (r *Reader) ReadAt(ts uint64) ([]byte, index.PacketDescriptor, error) {
	desc, ok := r.idx.FindClosest(ts)
	if !ok {
		return nil, index.PacketDescriptor{}, errors.New("reader: empty index")
	}
	data, err := r.Read(desc)
	return data, desc, err
}

// RangeCallback is invoked once per descriptor in ReadRange, in file-
// grouped, offset-sorted order to maximise sequential reads (§4.3).
type RangeCallback func(data []byte, desc index.PacketDescriptor)

// ReadRange reads every descriptor in [tsLo, tsHi], grouped by file_path and
// sorted by file_offset within each group.
func (r *Reader) ReadRange(tsLo, tsHi uint64, cb RangeCallback) error {
	descs := r.idx.Range(tsLo, tsHi)
	for _, group := range groupByFile(descs) {
		for _, d := range group {
			data, err := r.Read(d)
			if err != nil {
				return err
			}
			cb(data, d)
		}
	}
	return nil
}

// ReadQueryResult is one (bytes, descriptor) pair from ReadQueryAsync.
type ReadQueryResult struct {
	Data []byte
	Desc index.PacketDescriptor
}

// ReadQueryAsync runs the query then reads every matching descriptor
// concurrently via a bounded worker pool, cancellable through ctx (§5
// "dropping the future signals the worker to stop at the next descriptor
// boundary" — here, ctx cancellation stops scheduling further reads).
func (r *Reader) ReadQueryAsync(ctx context.Context, q query.Query) ([]ReadQueryResult, error) {
	descs := r.idx.Query(q)
	results := make([]ReadQueryResult, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, d := range descs {
		i, d := i, d
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, err := r.Read(d)
			if err != nil {
				return err
			}
			results[i] = ReadQueryResult{Data: data, Desc: d}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func groupByFile(descs []index.PacketDescriptor) [][]index.PacketDescriptor {
	order := make([]string, 0)
	groups := make(map[string][]index.PacketDescriptor)
	for _, d := range descs {
		if _, ok := groups[d.FilePath]; !ok {
			order = append(order, d.FilePath)
		}
		groups[d.FilePath] = append(groups[d.FilePath], d)
	}

	out := make([][]index.PacketDescriptor, 0, len(order))
	for _, path := range order {
		g := groups[path]
		sortByOffset(g)
		out = append(out, g)
	}
	return out
}

func sortByOffset(descs []index.PacketDescriptor) {
	sort.Slice(descs, func(i, j int) bool { return descs[i].FileOffset < descs[j].FileOffset })
}
