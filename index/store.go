package index

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/fx3stream/capture-index/query"
)

// Default thresholds (§6); callers normally override these via Config.
const (
	DefaultSnapshotThreshold      = 10000
	DefaultBatchSnapshotThreshold = 5000
)

// Store is the in-memory sorted index of PacketDescriptors for one session,
// with JSON snapshot persistence (§4.2). Exactly one session is open per
// Store instance at a time; mutating operations and readers alike take mu,
// since index sizes are modest and read dominance isn't worth optimising
// for (§5).
type Store struct {
	mu sync.Mutex

	sessionPath string // base path without ".json", empty when closed
	descs       []PacketDescriptor
	tsIndex     map[uint64]int // timestamp -> lowest index id bearing it
	lastSaved   int

	SnapshotThreshold      int
	BatchSnapshotThreshold int
}

// New returns an unopened Store with the given thresholds. A zero threshold
// falls back to the spec default.
func New(snapshotThreshold, batchSnapshotThreshold int) *Store {
	if snapshotThreshold <= 0 {
		snapshotThreshold = DefaultSnapshotThreshold
	}
	if batchSnapshotThreshold <= 0 {
		batchSnapshotThreshold = DefaultBatchSnapshotThreshold
	}
	return &Store{
		SnapshotThreshold:      snapshotThreshold,
		BatchSnapshotThreshold: batchSnapshotThreshold,
	}
}

func (s *Store) path() string {
	return s.sessionPath + ".json"
}

// Open loads {basePath}/{sessionID}.json if it exists, else starts an empty
// index. Only one session may be open on a Store at a time.
func (s *Store) Open(basePath, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionPath != "" {
		return errors.New("index: a session is already open")
	}

	s.sessionPath = filepath.Join(basePath, sessionID)

	descs, err := readSnapshot(s.path())
	if err != nil {
		log.Warnln("index: snapshot load failed, starting empty index:", err)
		descs = nil
	}

	s.descs = descs
	s.rebuildTsIndex()
	s.lastSaved = len(s.descs)
	return nil
}

// Close force-snapshots and releases the session.
func (s *Store) Close() error {
	s.mu.Lock()
	path := s.path()
	descs := append([]PacketDescriptor(nil), s.descs...)
	s.mu.Unlock()

	if path == ".json" {
		return nil
	}
	if err := writeSnapshot(path, descs); err != nil {
		log.Errorln("index: close snapshot failed:", err)
		return err
	}

	s.mu.Lock()
	s.sessionPath = ""
	s.descs = nil
	s.tsIndex = nil
	s.lastSaved = 0
	s.mu.Unlock()
	return nil
}

func (s *Store) rebuildTsIndex() {
	s.tsIndex = make(map[uint64]int, len(s.descs))
	for i, d := range s.descs {
		if _, ok := s.tsIndex[d.TimestampNs]; !ok {
			s.tsIndex[d.TimestampNs] = i
		}
	}
}

// AppendOne appends a single descriptor and returns its assigned index id.
// Not persisted immediately (§4.2).
func (s *Store) AppendOne(d PacketDescriptor) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(d)
}

func (s *Store) appendLocked(d PacketDescriptor) int {
	id := len(s.descs)
	s.descs = append(s.descs, d)
	if _, ok := s.tsIndex[d.TimestampNs]; !ok {
		s.tsIndex[d.TimestampNs] = id
	}
	return id
}

// AppendBatch appends every descriptor atomically with respect to any
// concurrent reader (they're all added while mu is held) and triggers a
// snapshot once count-last_saved crosses BatchSnapshotThreshold.
func (s *Store) AppendBatch(descs []PacketDescriptor) {
	s.mu.Lock()
	for _, d := range descs {
		s.appendLocked(d)
	}
	needsSnapshot := len(s.descs)-s.lastSaved >= s.BatchSnapshotThreshold
	path := s.path()
	snap := needsSnapshot
	var toSave []PacketDescriptor
	if snap {
		toSave = append([]PacketDescriptor(nil), s.descs...)
	}
	s.mu.Unlock()

	if snap {
		s.writeAndRecordSnapshot(path, toSave)
	}
}

func (s *Store) writeAndRecordSnapshot(path string, descs []PacketDescriptor) {
	if err := writeSnapshot(path, descs); err != nil {
		log.Errorln("index: snapshot write failed, leaving state intact:", err)
		return
	}
	s.mu.Lock()
	s.lastSaved = len(descs)
	s.mu.Unlock()
}

// Snapshot writes the index to disk. If !force, it is a no-op unless
// count-last_saved >= SnapshotThreshold.
func (s *Store) Snapshot(force bool) error {
	s.mu.Lock()
	if !force && len(s.descs)-s.lastSaved < s.SnapshotThreshold {
		s.mu.Unlock()
		return nil
	}
	path := s.path()
	descs := append([]PacketDescriptor(nil), s.descs...)
	s.mu.Unlock()

	if err := writeSnapshot(path, descs); err != nil {
		log.Errorln("index: snapshot write failed:", err)
		return err
	}
	s.mu.Lock()
	s.lastSaved = len(descs)
	s.mu.Unlock()
	return nil
}

// Clear drops all descriptors and the timestamp map.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs = nil
	s.tsIndex = make(map[uint64]int)
	s.lastSaved = 0
}

// Count returns the current descriptor count.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.descs)
}

// All returns a copy of every descriptor, in timestamp (insertion) order.
func (s *Store) All() []PacketDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PacketDescriptor(nil), s.descs...)
}

// FindClosest returns the descriptor whose timestamp is nearest ts, ties
// going to the earlier entry. ok is false on an empty index.
func (s *Store) FindClosest(ts uint64) (PacketDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.descs) == 0 {
		return PacketDescriptor{}, false
	}

	i := sort.Search(len(s.descs), func(i int) bool {
		return s.descs[i].TimestampNs >= ts
	})

	if i == 0 {
		return s.descs[0], true
	}
	if i == len(s.descs) {
		return s.descs[len(s.descs)-1], true
	}

	before := s.descs[i-1]
	after := s.descs[i]
	if absDiff(after.TimestampNs, ts) < absDiff(before.TimestampNs, ts) {
		return after, true
	}
	return before, true
}

func absDiff(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return b - a
}

// Range returns every descriptor with tsLo <= timestamp <= tsHi, ascending.
func (s *Store) Range(tsLo, tsHi uint64) []PacketDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeLocked(tsLo, tsHi)
}

func (s *Store) rangeLocked(tsLo, tsHi uint64) []PacketDescriptor {
	if tsLo > tsHi {
		return nil
	}
	lo := sort.Search(len(s.descs), func(i int) bool {
		return s.descs[i].TimestampNs >= tsLo
	})
	hi := sort.Search(len(s.descs), func(i int) bool {
		return s.descs[i].TimestampNs > tsHi
	})
	if lo >= hi {
		return nil
	}
	out := make([]PacketDescriptor, hi-lo)
	copy(out, s.descs[lo:hi])
	return out
}

// Query applies a range, then each feature_filter conjunctively, then sorts
// and truncates to limit (§4.2). A malformed filter string rejects every
// descriptor rather than erroring, per spec §7's QueryBadFilter disposition.
func (s *Store) Query(q query.Query) []PacketDescriptor {
	filters, ok := q.ParseFilters()

	s.mu.Lock()
	candidates := s.rangeLocked(q.TimestampStart, q.TimestampEnd)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	out := candidates[:0:0]
	for _, d := range candidates {
		if matchesAll(d, filters) {
			out = append(out, d)
		}
	}

	if q.Descending {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].TimestampNs > out[j].TimestampNs
		})
	}

	if q.Limit == 0 {
		return nil
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matchesAll(d PacketDescriptor, filters []query.Filter) bool {
	for _, f := range filters {
		if !matches(d, f) {
			return false
		}
	}
	return true
}

func matches(d PacketDescriptor, f query.Filter) bool {
	var v Variant
	switch f.Field {
	case "command_type":
		v = IntVariant(int64(d.CommandType))
	case "sequence":
		v = IntVariant(int64(d.Sequence))
	case "size":
		v = IntVariant(int64(d.Size))
	case "batch_id":
		v = IntVariant(int64(d.BatchID))
	case "packet_index":
		v = IntVariant(int64(d.PacketIndex))
	case "valid_header":
		if f.Op != query.OpEq {
			return false
		}
		want := f.Raw == "true" || f.Raw == "1"
		return d.ValidHeader == want
	default:
		fv, ok := d.Features[f.Field]
		if !ok {
			return false
		}
		v = fv
	}

	if v.Kind == VariantStr {
		if f.Op != query.OpEq {
			return false
		}
		return v.Str == f.Raw
	}

	num, ok := v.AsFloat()
	if !ok {
		return false
	}
	switch f.Op {
	case query.OpEq:
		return num == f.Value
	case query.OpGt:
		return num > f.Value
	case query.OpGte:
		return num >= f.Value
	case query.OpLt:
		return num < f.Value
	case query.OpLte:
		return num <= f.Value
	default:
		return false
	}
}

// FindByCommand is a convenience query for one command_type filter.
func (s *Store) FindByCommand(cmd CommandType, limit int) []PacketDescriptor {
	q := query.Query{
		TimestampStart: 0,
		TimestampEnd:   ^uint64(0),
		FeatureFilters: []string{"command_type=" + itoa(int(cmd))},
		Limit:          limit,
	}
	return s.Query(q)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
