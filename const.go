package capture

const (
	// DefaultByteCacheBudgetBytes is the default ByteCache cost bound (§6).
	DefaultByteCacheBudgetBytes = 10 * 1024 * 1024

	// DefaultMaxOpenFiles is the FileCache capacity (§6).
	DefaultMaxOpenFiles = 20

	// DefaultIdleFileCloseSeconds is the FileCache sweeper threshold (§6).
	DefaultIdleFileCloseSeconds = 300

	// DefaultReadTimeoutMs is the per-read budget (§6).
	DefaultReadTimeoutMs = 5000

	// DefaultSnapshotThreshold triggers an auto-snapshot outside append_batch (§6).
	DefaultSnapshotThreshold = 10000

	// DefaultBatchSnapshotThreshold triggers a snapshot inside append_batch (§6).
	DefaultBatchSnapshotThreshold = 5000

	// DefaultParserEarlyTerminatePackets short-circuits a scan (§6).
	DefaultParserEarlyTerminatePackets = 32

	// DefaultParserStrideConfirmHits is how many consecutive deltas confirm a stride (§6).
	DefaultParserStrideConfirmHits = 3

	// DefaultParserStrideMissTolerance is how many consecutive disagreeing
	// deltas a learned stride survives before being discarded (§5.1 supplement).
	DefaultParserStrideMissTolerance = 2

	// MaxPacketPayloadBytes bounds a single packet's payload size (§3).
	MaxPacketPayloadBytes = 10 * 1024 * 1024
)

var (
	// BuildVersion, BuildCommit, BuildDate, and BuildBy can be stamped at
	// link time via -ldflags -X. The cmd/ binaries keep their own version
	// variables and do not read these.
	BuildVersion string
	BuildCommit  string
	BuildDate    string
	BuildBy      string
)
