package carve

import (
	"bytes"
	"encoding/binary"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	localHeaderLen = 30
	// MaxNameLength bounds the filename field of a plausible header.
	MaxNameLength = 1024
	// MaxExtraLength bounds the extra field of a plausible header.
	MaxExtraLength = 4096
)

// DescriptorSignature marks the data descriptor that ends each payload.
var DescriptorSignature = []byte{'P', 'K', 0x07, 0x08}

// DiscardReason explains why a candidate produced no entry.
type DiscardReason int

const (
	DiscardNone DiscardReason = iota
	DiscardTruncated
	DiscardHeaderBounds
	DiscardNoDescriptor
	DiscardUnsupportedMethod
	DiscardInflate
	DiscardTooLarge
	DiscardUnusableName
)

func (r DiscardReason) String() string {
	switch r {
	case DiscardNone:
		return "recovered"
	case DiscardTruncated:
		return "truncated header"
	case DiscardHeaderBounds:
		return "implausible name or extra length"
	case DiscardNoDescriptor:
		return "no data descriptor"
	case DiscardUnsupportedMethod:
		return "unsupported method"
	case DiscardInflate:
		return "inflate failed"
	case DiscardTooLarge:
		return "entry too large"
	case DiscardUnusableName:
		return "unusable name"
	default:
		return "unknown"
	}
}

// Header is the part of a local file header carving relies on.
type Header struct {
	Start            int
	Method           uint16
	Name             string
	NameNotUTF8      bool
	PayloadStart     int
	DescriptorOffset int
}

// PayloadLen is the number of bytes between the header and its data descriptor.
func (h Header) PayloadLen() int {
	return h.DescriptorOffset - h.PayloadStart
}

// Decoded is the outcome of decoding one candidate.
type Decoded struct {
	Header Header
	Reason DiscardReason
}

// OK reports whether the candidate decoded to a bounded payload.
func (d Decoded) OK() bool { return d.Reason == DiscardNone }

// DecodeHeader reads the local header at start and bounds its payload by the
// first data descriptor signature at or after the payload start.
func DecodeHeader(blob []byte, start int) Decoded {
	h := Header{Start: start}
	if start < 0 || start+localHeaderLen > len(blob) {
		return Decoded{Header: h, Reason: DiscardTruncated}
	}
	h.Method = binary.LittleEndian.Uint16(blob[start+8:])
	nameLen := int(binary.LittleEndian.Uint16(blob[start+26:]))
	extraLen := int(binary.LittleEndian.Uint16(blob[start+28:]))
	if nameLen > MaxNameLength || extraLen > MaxExtraLength {
		return Decoded{Header: h, Reason: DiscardHeaderBounds}
	}

	nameStart := start + localHeaderLen
	h.PayloadStart = nameStart + nameLen + extraLen
	if h.PayloadStart > len(blob) {
		return Decoded{Header: h, Reason: DiscardTruncated}
	}
	h.Name, h.NameNotUTF8 = decodeName(blob[nameStart : nameStart+nameLen])

	end := bytes.Index(blob[h.PayloadStart:], DescriptorSignature)
	if end < 0 {
		return Decoded{Header: h, Reason: DiscardNoDescriptor}
	}
	h.DescriptorOffset = h.PayloadStart + end

	if !usableName(h.Name) {
		return Decoded{Header: h, Reason: DiscardUnusableName}
	}
	return Decoded{Header: h}
}

// decodeName returns raw as UTF-8 when it is valid, and otherwise decodes it
// as IBM code page 437, the legacy zip name encoding, which maps every byte.
func decodeName(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), false
	}
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�"), true
	}
	return string(decoded), true
}

// usableName rejects names that cannot become a file entry inside the
// container: empty names, directories, and paths that climb out of the root.
func usableName(name string) bool {
	name = NormalizeName(name)
	if strings.TrimSpace(name) == "" || strings.HasSuffix(name, "/") {
		return false
	}
	cleaned := path.Clean(name)
	return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

// NormalizeName converts a stored name to the form written back into a
// container: slash separated with no leading slash.
func NormalizeName(name string) string {
	return strings.TrimLeft(strings.ReplaceAll(name, `\`, "/"), "/")
}
