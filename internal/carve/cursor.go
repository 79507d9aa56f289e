package carve

import "bytes"

// ProbePattern is matched instead of the local header signature itself: it is
// the version-needed (2.0) and flags (0x0008, data descriptor follows) fields
// that immediately follow "PK\x03\x04", and is more selective than the
// signature alone.
var ProbePattern = []byte{0x14, 0x00, 0x08, 0x00}

const (
	// probeOffset is the distance from a header start to the probe pattern.
	probeOffset = 4
	// AdvanceOnSuccess moves the cursor past a decoded entry's data descriptor
	// (signature, CRC-32, compressed and uncompressed sizes).
	AdvanceOnSuccess = 16
	// AdvanceOnDiscard resumes one byte after a rejected match so overlapping
	// headers are still found.
	AdvanceOnDiscard = 1
)

// Cursor is the scan position over one blob.
type Cursor struct {
	blob    []byte
	next    int
	match   int
	matches int
}

// NewCursor starts a scan at the beginning of blob.
func NewCursor(blob []byte) *Cursor {
	return &Cursor{blob: blob, match: -1}
}

// Next finds the next candidate header start at or after the current
// position. Matches too close to the start of the blob to have room for a
// signature are skipped.
func (c *Cursor) Next() (start int, ok bool) {
	for c.next < len(c.blob) {
		idx := bytes.Index(c.blob[c.next:], ProbePattern)
		if idx < 0 {
			c.next = len(c.blob)
			return 0, false
		}
		c.match = c.next + idx
		c.matches++
		start = c.match - probeOffset
		if start < 0 {
			c.next = c.match + AdvanceOnDiscard
			continue
		}
		return start, true
	}
	return 0, false
}

// Advance moves past the current candidate. A successful decode resumes after
// its data descriptor; anything else resumes one byte past the match.
func (c *Cursor) Advance(d Decoded) {
	if d.OK() {
		c.next = d.Header.DescriptorOffset + AdvanceOnSuccess
		return
	}
	c.next = c.match + AdvanceOnDiscard
}

// Matches is the number of probe pattern matches seen so far.
func (c *Cursor) Matches() int { return c.matches }

// Offset is the position the next search starts from.
func (c *Cursor) Offset() int { return c.next }
