package parser

// Sentinel byte sequences making up a frame header (§4.1, bit-exact):
//
//	offset+0   : startSentinel                (4 B)
//	offset+4   : <= maxHeaderPadding bytes of padding
//	             midSentinel                  (4 B)
//	             endHeaderSentinel             (4 B)
//	offset+H   : metadata word A / word B      (8 B)
//	offset+H+8 : payload
var (
	startSentinel     = [4]byte{0x00, 0x00, 0x00, 0x00}
	midSentinel       = [4]byte{0x99, 0x99, 0x99, 0x99}
	endHeaderSentinel = [4]byte{0x00, 0x00, 0x00, 0x00}
)

const (
	maxHeaderPadding = 16
	minHeaderLen     = 4 + 0 + 4 + 4  // start + no padding + mid + end
	maxHeaderLen     = 4 + maxHeaderPadding + 4 + 4
	metadataLen      = 8
)

func hasSentinel(buf []byte, pos int, s [4]byte) bool {
	if pos+4 > len(buf) {
		return false
	}
	return buf[pos] == s[0] && buf[pos+1] == s[1] && buf[pos+2] == s[2] && buf[pos+3] == s[3]
}

// findHeader attempts to locate a full three-sentinel header starting at
// pos, which must already hold the start sentinel. It searches the next 20
// bytes after the start sentinel for the mid sentinel immediately followed
// by the end-of-header sentinel (§4.1 step 3). Returns the header length
// (start..end of endHeaderSentinel, inclusive) and whether one was found.
func findHeader(buf []byte, pos int) (headerLen int, found bool) {
	searchStart := pos + 4
	searchEnd := searchStart + maxHeaderPadding
	if searchEnd > len(buf) {
		searchEnd = len(buf)
	}
	for k := searchStart; k <= searchEnd; k++ {
		if hasSentinel(buf, k, midSentinel) && hasSentinel(buf, k+4, endHeaderSentinel) {
			return (k + 8) - pos, true
		}
	}
	return 0, false
}
