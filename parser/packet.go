// Package parser implements StreamParser, the stateful byte-stream framer
// described in spec §4.1: it locates packet headers across buffer
// boundaries, validates metadata, emits packets, and learns packet stride to
// accelerate subsequent scans.
package parser

// Packet is one framed, validated packet as emitted by StreamParser. It
// carries enough to build an index.PacketDescriptor without parser
// depending on the index package.
type Packet struct {
	FileOffset  uint64 // absolute byte offset of the frame's start sentinel in the file
	Size        uint32
	CommandType uint8
	Sequence    uint32
	ValidHeader bool
	BatchID     uint32
	PacketIndex uint32
	Payload     []byte // owned copy, safe to retain past this Parse call
}

// Sink receives batches of packets as StreamParser frames them. A batch is
// handed off every 1,000 packets and again at the end of each Parse call
// (§4.1 step 8).
type Sink interface {
	OnBatch(batch []Packet)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(batch []Packet)

func (f SinkFunc) OnBatch(batch []Packet) { f(batch) }

const batchFlushSize = 1000
