package parser

// Default tunables (§6); a host process normally overrides these via Config.
const (
	DefaultEarlyTerminatePackets = 32
	DefaultStrideConfirmHits     = 3
	DefaultStrideMissTolerance   = 2
)

// StreamParser is the stateful byte-stream framer of §4.1. A StreamParser is
// single-threaded: callers must serialise Parse calls on one instance, same
// as the teacher's packet readers expect serialised access to their wire
// buffers. Multiple parsers across multiple files are independent.
type StreamParser struct {
	carry []byte

	learnedStride   uint64
	strideMatches   int
	strideMisses    int
	pendingDelta    uint64
	pendingMatches  int
	lastAbsOffset   uint64
	haveLastOffset  bool

	emittedTotal int

	nextBatchID uint32

	// EarlyTerminatePackets, StrideConfirmHits, and StrideMissTolerance are
	// read at the start of each Parse call, so they may be adjusted between
	// calls.
	EarlyTerminatePackets int
	StrideConfirmHits     int

	// StrideMissTolerance is how many consecutive deltas disagreeing with an
	// already-learned stride are tolerated before the stride is discarded
	// and relearning restarts (§5.1 supplement). A single stray delta -
	// e.g. one dropped or corrupted frame in an otherwise regular stream -
	// no longer throws away a confirmed stride.
	StrideMissTolerance int
}

// New returns a StreamParser with the spec-default tunables.
func New() *StreamParser {
	return &StreamParser{
		EarlyTerminatePackets: DefaultEarlyTerminatePackets,
		StrideConfirmHits:     DefaultStrideConfirmHits,
		StrideMissTolerance:   DefaultStrideMissTolerance,
	}
}

// Reset drops carry-over and stride memory (§4.1 public contract).
func (s *StreamParser) Reset() {
	s.carry = nil
	s.learnedStride = 0
	s.strideMatches = 0
	s.strideMisses = 0
	s.pendingDelta = 0
	s.pendingMatches = 0
	s.haveLastOffset = false
	s.lastAbsOffset = 0
	s.emittedTotal = 0
}

// Parse consumes buf (plus any carry-over from a prior call tagged as
// starting at fileOffset), emits zero or more packets to sink, and updates
// learned stride. It never blocks and never returns an error: malformed
// input simply yields fewer packets (§4.1 Failure semantics).
func (s *StreamParser) Parse(buf []byte, fileOffset uint64, sink Sink) int {
	if len(buf) == 0 && len(s.carry) == 0 {
		return 0
	}

	work := make([]byte, 0, len(s.carry)+len(buf))
	work = append(work, s.carry...)
	work = append(work, buf...)
	offsetBase := fileOffset - uint64(len(s.carry))
	s.carry = nil

	maxIterations := len(work) / 4
	if maxIterations == 0 {
		maxIterations = 1
	}

	var batch []Packet
	count := 0
	pos := 0
	iterations := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		sink.OnBatch(batch)
		batch = nil
	}

	batchID := s.nextBatchID
	s.nextBatchID++
	packetIndex := uint32(0)

	earlyStop := false

scan:
	for pos < len(work) {
		iterations++
		if iterations > maxIterations {
			log.Warnln("parser: iteration cap reached, stopping scan for this buffer")
			break
		}

		if !hasSentinel(work, pos, startSentinel) {
			pos += 4
			continue
		}

		headerLen, found := findHeader(work, pos)
		if !found {
			// Boundary carry-over: within 32 bytes of the end a header
			// (at most maxHeaderLen bytes) may continue in the next buffer.
			if len(work)-pos < 32 {
				s.carry = append([]byte(nil), work[pos:]...)
				break
			}
			pos += 4
			continue
		}

		metaAt := pos + headerLen
		if metaAt+metadataLen > len(work) {
			s.carry = append([]byte(nil), work[pos:]...)
			break
		}

		meta := decodeMetadata(work, metaAt)
		if !meta.valid() {
			pos += 4
			continue
		}

		payloadStart := metaAt + metadataLen
		payloadSize := meta.payloadSize()
		payloadEnd := payloadStart + int(payloadSize)
		if payloadEnd > len(work) {
			s.carry = append([]byte(nil), work[pos:]...)
			break
		}

		payload := make([]byte, payloadSize)
		copy(payload, work[payloadStart:payloadEnd])

		absOffset := offsetBase + uint64(pos)
		pkt := Packet{
			FileOffset:  absOffset,
			Size:        payloadSize,
			CommandType: meta.type1,
			Sequence:    meta.repeat,
			ValidHeader: true,
			BatchID:     batchID,
			PacketIndex: packetIndex,
			Payload:     payload,
		}
		packetIndex++
		count++
		s.emittedTotal++
		batch = append(batch, pkt)
		if len(batch) >= batchFlushSize {
			flush()
		}

		s.learnStride(absOffset)

		pos = payloadEnd
		if s.learnedStride > 0 {
			predictedAbs := absOffset + s.learnedStride
			predictedPos := int(predictedAbs - offsetBase)
			if predictedPos >= pos && predictedPos < len(work) {
				pos = predictedPos
			}
		}

		if s.emittedTotal >= s.EarlyTerminatePackets && s.strideMatches >= s.StrideConfirmHits {
			earlyStop = true
			break scan
		}
	}

	if earlyStop {
		// Early termination intentionally abandons the remainder of
		// this buffer; there is nothing meaningful left to carry.
		s.carry = nil
	}

	flush()
	return count
}

// learnStride implements §4.1 step 5, supplemented per §5.1: three consecutive
// matching deltas between successive packet offsets confirm a stride; once
// confirmed, a delta that disagrees with the learned stride increments a miss
// counter rather than discarding it outright. The stride is only discarded
// and relearning restarted once StrideMissTolerance consecutive misses have
// been observed; any matching delta in between resets the miss counter.
func (s *StreamParser) learnStride(absOffset uint64) {
	if !s.haveLastOffset {
		s.lastAbsOffset = absOffset
		s.haveLastOffset = true
		return
	}

	delta := absOffset - s.lastAbsOffset
	s.lastAbsOffset = absOffset

	if s.learnedStride == 0 {
		if delta == s.pendingDelta {
			s.pendingMatches++
		} else {
			s.pendingDelta = delta
			s.pendingMatches = 1
		}
		if s.pendingMatches >= s.StrideConfirmHits {
			s.learnedStride = delta
			s.strideMatches = s.pendingMatches
			s.strideMisses = 0
		}
		return
	}

	if delta == s.learnedStride {
		s.strideMatches++
		s.strideMisses = 0
		return
	}

	tolerance := s.StrideMissTolerance
	if tolerance < 1 {
		tolerance = 1
	}

	s.strideMisses++
	if s.strideMisses < tolerance {
		// Within tolerance: keep the learned stride, wait to see whether
		// the next delta resumes the pattern or confirms a real change.
		return
	}

	// Consecutive misses exhausted tolerance: relearn from scratch using
	// this delta as the new confirmation candidate.
	s.learnedStride = 0
	s.strideMatches = 0
	s.strideMisses = 0
	s.pendingDelta = delta
	s.pendingMatches = 1
}
