package capture

import (
	"github.com/pkg/errors"

	"github.com/fx3stream/capture-index/eventbus"
	"github.com/fx3stream/capture-index/feature"
	"github.com/fx3stream/capture-index/index"
	"github.com/fx3stream/capture-index/ingestqueue"
	"github.com/fx3stream/capture-index/reader"
)

// Core is the explicit-lifetime replacement for the source's process-wide
// IndexStore/PacketReader/FeatureExtractor singletons (Design Notes §9):
// one Core owns one of each, constructed explicitly and passed to callers
// by reference rather than reached for through global state.
type Core struct {
	cfg Config

	Index     *index.Store
	Reader    *reader.Reader
	Extractor *feature.Extractor
	Queue     *ingestqueue.BatchQueue
	Events    eventbus.Sink
}

// NewCore wires up a full pipeline from cfg: opens the session index,
// constructs the reader over it, the feature extractor, the ingest queue,
// and (if enabled) the event bus sink.
func NewCore(cfg Config) (*Core, error) {
	idx := index.New(cfg.SnapshotThreshold, cfg.BatchSnapshotThreshold)
	if err := idx.Open(cfg.BasePath, cfg.SessionID); err != nil {
		return nil, errors.Wrap(err, "capture: open index")
	}

	rdr := reader.New(idx, reader.Config{
		MaxOpenFiles:         cfg.MaxOpenFiles,
		IdleFileCloseSeconds: cfg.IdleFileCloseSeconds,
		ByteCacheBudgetBytes: cfg.ByteCacheBudgetBytes,
		ReadTimeoutMs:        cfg.ReadTimeoutMs,
	})

	q, err := ingestqueue.Open(cfg.QueueDirectory)
	if err != nil {
		return nil, errors.Wrap(err, "capture: open ingest queue")
	}
	q.SetSizeReporter(func(n int) { QueueSize.Set(float64(n)) })

	var sink eventbus.Sink = eventbus.NopSink{}
	if cfg.EventBus.Enable {
		s, err := newEventSink(cfg)
		if err != nil {
			log.Errorln("capture: event bus sink unavailable, falling back to no-op:", err)
		} else {
			sink = s
		}
	}

	return &Core{
		cfg:       cfg,
		Index:     idx,
		Reader:    rdr,
		Extractor: feature.New(),
		Queue:     q,
		Events:    sink,
	}, nil
}

func newEventSink(cfg Config) (eventbus.Sink, error) {
	switch cfg.EventBus.Kind {
	case "stomp":
		return eventbus.NewStompSink(cfg.EventBus.URL, "", cfg.EventBus.Topic, "", "")
	default:
		return eventbus.NewAMQPSink(cfg.EventBus.URL, cfg.EventBus.Exchange)
	}
}

// Close force-snapshots the index and releases every owned resource.
func (c *Core) Close() error {
	c.Reader.Close()
	if err := c.Queue.Close(); err != nil {
		log.Warnln("capture: ingest queue close failed:", err)
	}
	if err := c.Events.Close(); err != nil {
		log.Warnln("capture: event bus close failed:", err)
	}
	return c.Index.Close()
}

// Access returns the polymorphic index read capability (Design Notes §9).
func (c *Core) Access() index.Access {
	return c.Index
}

// Drain blocks, moving descriptor batches off the ingest queue and into the
// index, until the queue is closed (via Close) or Dequeue otherwise returns
// ingestqueue.ErrEmpty. Intended to run on its own goroutine for the
// lifetime of the process.
func (c *Core) Drain() {
	for {
		batch, err := c.Queue.Dequeue()
		if err != nil {
			return
		}
		c.Index.AppendBatch(batch)
		IndexAppends.Add(float64(len(batch)))
		IndexSize.Set(float64(c.Index.Count()))
	}
}
