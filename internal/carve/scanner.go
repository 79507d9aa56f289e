package carve

// Candidate is one probe match and what became of it.
type Candidate struct {
	Offset int
	Header Header
	Reason DiscardReason
	Entry  CarvedEntry
}

// Recovered reports whether the candidate produced an entry.
func (c Candidate) Recovered() bool { return c.Reason == DiscardNone }

// Scanner yields every candidate in a blob in scan order.
type Scanner struct {
	blob    []byte
	cursor  *Cursor
	limit   int64
	current Candidate
}

// NewScanner creates a scanner over blob. limit caps one inflated entry; zero
// selects MaxEntrySize.
func NewScanner(blob []byte, limit int64) *Scanner {
	if limit <= 0 {
		limit = MaxEntrySize
	}
	return &Scanner{blob: blob, cursor: NewCursor(blob), limit: limit}
}

// Scan advances to the next candidate. It returns false once the blob is
// exhausted.
func (s *Scanner) Scan() bool {
	start, ok := s.cursor.Next()
	if !ok {
		return false
	}
	decoded := DecodeHeader(s.blob, start)
	c := Candidate{Offset: start, Header: decoded.Header, Reason: decoded.Reason}
	if decoded.OK() {
		h := decoded.Header
		data, reason := Decompress(h.Method, s.blob[h.PayloadStart:h.DescriptorOffset], s.limit)
		if reason == DiscardNone {
			c.Entry = CarvedEntry{Name: NormalizeName(h.Name), Method: h.Method, Data: data, DecodeFailed: h.NameNotUTF8}
		} else {
			// Rescan from the match rather than trusting the bounds.
			c.Reason = reason
			decoded.Reason = reason
		}
	}
	s.cursor.Advance(decoded)
	s.current = c
	return true
}

// Candidate returns the candidate produced by the last call to Scan.
func (s *Scanner) Candidate() Candidate { return s.current }

// Matches is the number of probe matches seen so far.
func (s *Scanner) Matches() int { return s.cursor.Matches() }

// Offset is the position the next search starts from.
func (s *Scanner) Offset() int { return s.cursor.Offset() }
