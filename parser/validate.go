package parser

// maxPayloadBytes bounds a single packet's payload (§4.1 validation rule 3).
const maxPayloadBytes = 10 * 1024 * 1024

// metadata is the decoded content of the two 4-byte metadata words following
// a header (§4.1): word A holds type1 and a 24-bit repeat count, word B
// holds type2 and the low 24 bits of repeat's bitwise inverse.
type metadata struct {
	type1  uint8
	type2  uint8
	repeat uint32 // 24-bit value, zero-extended
	invLo24 uint32
}

func decodeMetadata(buf []byte, at int) metadata {
	return metadata{
		type1:   buf[at],
		repeat:  uint32(buf[at+1])<<16 | uint32(buf[at+2])<<8 | uint32(buf[at+3]),
		type2:   buf[at+4],
		invLo24: uint32(buf[at+5])<<16 | uint32(buf[at+6])<<8 | uint32(buf[at+7]),
	}
}

// valid applies validation rules 1-3 of §4.1. Rule 4 (buffer has enough
// bytes for the full payload) is checked by the caller, which has the
// buffer length and needs to distinguish "invalid" from "needs carry-over".
func (m metadata) valid() bool {
	if m.type1 != m.type2 {
		return false
	}

	reconstructedInv := 0xFF000000 | m.invLo24
	notRepeat := ^m.repeat
	if reconstructedInv != notRepeat && (m.repeat^reconstructedInv) != 0xFFFFFFFF {
		return false
	}

	size := m.payloadSize()
	return size > 0 && size <= maxPayloadBytes
}

func (m metadata) payloadSize() uint32 {
	return m.repeat * 4
}
