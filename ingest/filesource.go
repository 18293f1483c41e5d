// Package ingest turns a raw FX3 capture file on disk into a sequence of
// byte chunks for the StreamParser, adapted from the teacher's input.FileReader:
// the same open-once, scan-in-a-goroutine, optional tail-follow shape, but
// chunking raw bytes instead of decoding newline-delimited JSON envelopes.
package ingest

import (
	"io"
	"os"
	"time"
)

// Chunk is a contiguous slice of capture-file bytes together with the
// absolute file offset its first byte was read from, the unit StreamParser
// expects for carry-over bookkeeping across reads.
type Chunk struct {
	Data   []byte
	Offset uint64
}

// FileTailSource streams a capture file in fixed-size chunks, optionally
// following appended writes the way tail -f does.
type FileTailSource struct {
	path      string
	follow    bool
	chunkSize int

	file     *os.File
	offset   uint64
	chunks   chan Chunk
	stopChan chan struct{}
}

// NewFileTailSource constructs a source over path. When follow is true, the
// source blocks at EOF and retries instead of closing its channel.
func NewFileTailSource(path string, follow bool, chunkSize int) *FileTailSource {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &FileTailSource{
		path:      path,
		follow:    follow,
		chunkSize: chunkSize,
		chunks:    make(chan Chunk, 16),
		stopChan:  make(chan struct{}),
	}
}

// Start opens the capture file and begins emitting chunks in a goroutine.
func (f *FileTailSource) Start() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.file = file
	go f.readLoop()
	return nil
}

// Stop signals the read loop to exit and closes the underlying file.
func (f *FileTailSource) Stop() error {
	close(f.stopChan)
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Chunks returns the channel chunks are emitted on. It is closed once the
// source stops, either at EOF (non-follow mode) or via Stop.
func (f *FileTailSource) Chunks() <-chan Chunk {
	return f.chunks
}

func (f *FileTailSource) readLoop() {
	defer close(f.chunks)

	buf := make([]byte, f.chunkSize)
	for {
		select {
		case <-f.stopChan:
			return
		default:
		}

		n, err := f.file.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			chunk := Chunk{Data: data, Offset: f.offset}
			f.offset += uint64(n)

			select {
			case f.chunks <- chunk:
			case <-f.stopChan:
				return
			}
		}

		if err != nil {
			if err != io.EOF {
				return
			}
			if !f.follow {
				return
			}
			select {
			case <-f.stopChan:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}
	}
}
