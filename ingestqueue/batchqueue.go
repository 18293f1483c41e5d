// Package ingestqueue carries descriptor batches from StreamParser to
// IndexStore, generalizing the teacher's ConfirmationQueue (root queue.go):
// same in-memory container/list head plus joncrlsn/dque on-disk overflow,
// same sync.Cond-blocking Dequeue, same metrics ticker, but carrying
// []index.PacketDescriptor batches instead of opaque []byte messages.
package ingestqueue

import (
	"container/list"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/joncrlsn/dque"

	"github.com/fx3stream/capture-index/index"
)

// ErrEmpty is returned by a non-blocking dequeue attempt on an empty queue.
var ErrEmpty = errors.New("ingestqueue: queue is empty")

// MaxInMemory bounds how many batches are held in RAM before overflowing to
// the on-disk dque segment.
var MaxInMemory = 100

// batchItem is the on-disk unit dque persists; dque gob-encodes whatever
// ItemBuilder returns, so every field must be exported.
type batchItem struct {
	Descs []index.PacketDescriptor
}

func itemBuilder() interface{} {
	return &batchItem{}
}

// BatchQueue is a FIFO of descriptor batches: up to MaxInMemory pending
// batches are held in memory, and batches arriving while that portion is
// full overflow to an on-disk dque segment. Only the on-disk portion
// survives a crash; batches held in memory are lost.
type BatchQueue struct {
	disk     *dque.DQue
	mu       sync.Mutex
	nonEmpty *sync.Cond
	inMemory *list.List
	closed   bool

	onSize func(int)
}

// SetSizeReporter registers a callback invoked every 5 seconds with the
// current queue size, for a host process to wire into its own metrics
// (e.g. capture.QueueSize.Set) without this package depending on one
// specific metrics backend.
func (bq *BatchQueue) SetSizeReporter(fn func(int)) {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	bq.onSize = fn
}

// Open creates or re-opens a BatchQueue backed by directory.
func Open(directory string) (*BatchQueue, error) {
	qName := path.Base(directory)
	qDir := path.Dir(directory)
	const segmentSize = 1000

	disk, err := dque.NewOrOpen(qName, qDir, segmentSize, itemBuilder)
	if err != nil {
		return nil, err
	}
	if err := disk.TurboOn(); err != nil {
		log.Warnln("ingestqueue: dque TurboOn failed, falling back to fsync-per-write:", err)
	}

	bq := &BatchQueue{
		disk:     disk,
		inMemory: list.New(),
	}
	bq.nonEmpty = sync.NewCond(&bq.mu)
	go bq.reportSize()
	return bq, nil
}

func (bq *BatchQueue) reportSize() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		bq.mu.Lock()
		closed := bq.closed
		reporter := bq.onSize
		bq.mu.Unlock()
		if closed {
			return
		}
		if reporter != nil {
			reporter(bq.Size())
		}
	}
}

// Size returns the total number of queued batches, in memory plus on disk.
func (bq *BatchQueue) Size() int {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.inMemory.Len() + bq.disk.SizeUnsafe()
}

// Enqueue adds one descriptor batch, spilling to disk once the in-memory
// portion holds MaxInMemory batches.
func (bq *BatchQueue) Enqueue(batch []index.PacketDescriptor) {
	bq.mu.Lock()
	defer bq.mu.Unlock()

	if bq.inMemory.Len() < MaxInMemory {
		bq.inMemory.PushBack(batch)
	} else if err := bq.disk.Enqueue(&batchItem{Descs: batch}); err != nil {
		log.Errorln("ingestqueue: failed to enqueue batch to disk:", err)
	}
	bq.nonEmpty.Broadcast()
}

func (bq *BatchQueue) dequeueLocked() ([]index.PacketDescriptor, error) {
	if bq.inMemory.Len() == 0 {
		return nil, ErrEmpty
	}
	toReturn := bq.inMemory.Remove(bq.inMemory.Front()).([]index.PacketDescriptor)

	for bq.inMemory.Len() < MaxInMemory {
		item, err := bq.disk.Dequeue()
		if err == dque.ErrEmpty {
			break
		}
		if err != nil {
			log.Errorln("ingestqueue: failed to dequeue batch from disk:", err)
			break
		}
		bq.inMemory.PushBack(item.(*batchItem).Descs)
	}
	return toReturn, nil
}

// Dequeue blocks until a batch is available, then returns it.
func (bq *BatchQueue) Dequeue() ([]index.PacketDescriptor, error) {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	for {
		batch, err := bq.dequeueLocked()
		if err == ErrEmpty {
			if bq.closed {
				return nil, ErrEmpty
			}
			bq.nonEmpty.Wait()
			continue
		}
		return batch, err
	}
}

// TryDequeue returns immediately with ErrEmpty if no batch is queued.
func (bq *BatchQueue) TryDequeue() ([]index.PacketDescriptor, error) {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.dequeueLocked()
}

// Close unblocks any waiting Dequeue call and stops the metrics ticker.
func (bq *BatchQueue) Close() error {
	bq.mu.Lock()
	bq.closed = true
	bq.mu.Unlock()
	bq.nonEmpty.Broadcast()
	return bq.disk.Close()
}
