package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame constructs one wire frame: start sentinel, padding bytes,
// mid sentinel, end-of-header sentinel, metadata words A/B, then a
// repeat*4 byte payload filled with fill.
func buildFrame(padding int, typ byte, repeat uint32, fill byte) []byte {
	buf := make([]byte, 0, 28+8+repeat*4)
	buf = append(buf, startSentinel[:]...)
	for i := 0; i < padding; i++ {
		buf = append(buf, 0xAB)
	}
	buf = append(buf, midSentinel[:]...)
	buf = append(buf, endHeaderSentinel[:]...)

	inv := ^repeat
	buf = append(buf, typ, byte(repeat>>16), byte(repeat>>8), byte(repeat))
	buf = append(buf, typ, byte(inv>>16), byte(inv>>8), byte(inv))

	for i := uint32(0); i < repeat*4; i++ {
		buf = append(buf, fill)
	}
	return buf
}

type collectingSink struct {
	packets []Packet
}

func (c *collectingSink) OnBatch(batch []Packet) {
	c.packets = append(c.packets, batch...)
}

func TestStreamParser_SinglePacketFraming(t *testing.T) {
	// Scenario A: header with no padding, type=0x11, repeat=2 (8 byte payload).
	buf := []byte{
		0x00, 0x00, 0x00, 0x00,
		0x99, 0x99, 0x99, 0x99,
		0x00, 0x00, 0x00, 0x00,
		0x11, 0x00, 0x00, 0x02,
		0x11, 0xFF, 0xFF, 0xFD,
		0xAA, 0xBB, 0xCC, 0xDD, 0xAA, 0xBB, 0xCC, 0xDD,
	}

	p := New()
	sink := &collectingSink{}
	count := p.Parse(buf, 0, sink)

	require.Equal(t, 1, count)
	require.Len(t, sink.packets, 1)
	pkt := sink.packets[0]
	assert.EqualValues(t, 8, pkt.Size)
	assert.EqualValues(t, 0x11, pkt.CommandType)
	assert.True(t, pkt.ValidHeader)
	assert.EqualValues(t, 0, pkt.FileOffset)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xAA, 0xBB, 0xCC, 0xDD}, pkt.Payload)
}

func TestStreamParser_CrossBufferCarry(t *testing.T) {
	buf := []byte{
		0x00, 0x00, 0x00, 0x00,
		0x99, 0x99, 0x99, 0x99,
		0x00, 0x00, 0x00, 0x00,
		0x11, 0x00, 0x00, 0x02,
		0x11, 0xFF, 0xFF, 0xFD,
		0xAA, 0xBB, 0xCC, 0xDD, 0xAA, 0xBB, 0xCC, 0xDD,
	}

	p := New()
	sink := &collectingSink{}

	first := p.Parse(buf[:6], 0, sink)
	assert.Equal(t, 0, first)
	assert.Empty(t, sink.packets)

	second := p.Parse(buf[6:], 6, sink)
	assert.Equal(t, 1, second)
	require.Len(t, sink.packets, 1)
	assert.EqualValues(t, 0, sink.packets[0].FileOffset)
}

func TestStreamParser_StrideLearningAndEarlyTermination(t *testing.T) {
	const frameSize = 64
	const padding = 0 // 12-byte header + 8 metadata + payload must total frameSize
	repeat := uint32((frameSize - 20) / 4)

	p := New()
	p.EarlyTerminatePackets = 32
	sink := &collectingSink{}

	var stream []byte
	const totalFrames = 40
	for i := 0; i < totalFrames; i++ {
		stream = append(stream, buildFrame(padding, 0x44, repeat, byte(i))...)
	}

	count := p.Parse(stream, 0, sink)

	assert.EqualValues(t, frameSize, p.learnedStride)
	assert.GreaterOrEqual(t, p.strideMatches, p.StrideConfirmHits)
	assert.Equal(t, 32, count)
	assert.Less(t, count, totalFrames)
}

func TestStreamParser_RandomBytesNeverEmitsInvalidPacket(t *testing.T) {
	rnd := make([]byte, 4096)
	seed := uint32(12345)
	for i := range rnd {
		seed = seed*1664525 + 1013904223
		rnd[i] = byte(seed >> 24)
	}

	p := New()
	sink := &collectingSink{}
	count := p.Parse(rnd, 0, sink)

	for _, pkt := range sink.packets {
		assert.True(t, pkt.ValidHeader)
		assert.Greater(t, pkt.Size, uint32(0))
		assert.LessOrEqual(t, pkt.Size, uint32(maxPayloadBytes))
	}
	_ = count
}

func TestStreamParser_LearnStride_TolerateSingleMissedDelta(t *testing.T) {
	p := New()
	p.StrideConfirmHits = 3
	p.StrideMissTolerance = 2

	// Confirm a stride of 100 with three matching deltas.
	p.learnStride(0)
	p.learnStride(100)
	p.learnStride(200)
	p.learnStride(300)
	require.EqualValues(t, 100, p.learnedStride)

	// One stray delta (a dropped frame) must not discard the stride.
	p.learnStride(450)
	assert.EqualValues(t, 100, p.learnedStride)
	assert.Equal(t, 1, p.strideMisses)

	// The pattern resumes: the miss counter resets and the stride survives.
	p.learnStride(550)
	assert.EqualValues(t, 100, p.learnedStride)
	assert.Equal(t, 0, p.strideMisses)
}

func TestStreamParser_LearnStride_RelearnsAfterConsecutiveMisses(t *testing.T) {
	p := New()
	p.StrideConfirmHits = 3
	p.StrideMissTolerance = 2

	p.learnStride(0)
	p.learnStride(100)
	p.learnStride(200)
	p.learnStride(300)
	require.EqualValues(t, 100, p.learnedStride)

	// Two consecutive misses exhaust tolerance: the stride is discarded.
	p.learnStride(450)
	p.learnStride(600)
	assert.EqualValues(t, 0, p.learnedStride)
	assert.Equal(t, 0, p.strideMisses)
}

func TestStreamParser_Reset(t *testing.T) {
	p := New()
	sink := &collectingSink{}
	p.Parse([]byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x02}, 0, sink)
	p.learnedStride = 64
	p.strideMatches = 5

	p.Reset()

	assert.Empty(t, p.carry)
	assert.EqualValues(t, 0, p.learnedStride)
	assert.Equal(t, 0, p.strideMatches)
}
