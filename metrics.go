package capture

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors for every counter named in spec §4.3
// and the parser/index throughput numbers a complete ingest daemon needs.
// promauto registers them with the default registry at init time, exactly as
// the teacher's metrics.go does.
var (
	PacketsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_packets_parsed",
		Help: "Total packets successfully framed and validated by StreamParser",
	})

	PacketsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_packets_skipped",
		Help: "Total scan positions rejected by header/metadata validation",
	})

	ParserIterationCapHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_parser_iteration_cap_hits",
		Help: "Total parse() calls that terminated via the iteration cap",
	})

	IndexAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_index_appends",
		Help: "Total descriptors appended to the index",
	})

	IndexSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_index_snapshots",
		Help: "Total snapshot writes",
	})

	IndexSnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_index_snapshot_failures",
		Help: "Total snapshot writes that failed",
	})

	IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capture_index_size",
		Help: "Current descriptor count in the open index",
	})

	TotalReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_reader_total_reads",
		Help: "Total PacketReader.Read calls",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_reader_cache_hits",
		Help: "Total ByteCache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_reader_cache_misses",
		Help: "Total ByteCache misses",
	})

	ReadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_reader_read_errors",
		Help: "Total reads that returned a typed ReadError",
	})

	ReadDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capture_reader_read_duration_seconds",
		Help:    "PacketReader.Read latency",
		Buckets: prometheus.DefBuckets,
	})

	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capture_ingest_queue_size",
		Help: "Pending descriptor batches in the ingest queue (in-memory + on-disk)",
	})

	FeatureExtractionDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capture_feature_extraction_duration_ms",
		Help:    "FeatureExtractor.Extract wall time in milliseconds",
		Buckets: prometheus.DefBuckets,
	})

	FeatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_feature_failures",
		Help: "Total per-feature extraction failures, by feature name",
	}, []string{"feature"})
)

// StartMetrics starts the /metrics HTTP endpoint in a background goroutine,
// mirroring the teacher's StartMetrics. It does not check metrics.enable;
// the caller decides whether to start it.
func StartMetrics(port int) {
	listenAddress := ":" + strconv.Itoa(port)
	go func() {
		log.Debugln("Starting metrics at " + listenAddress + "/metrics")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(listenAddress, mux); err != nil {
			log.Errorln("Failed to listen and serve metrics:", err)
		}
	}()
}
