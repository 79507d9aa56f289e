package carve

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

const (
	MethodStore   uint16 = 0
	MethodDeflate uint16 = 8

	// MaxEntrySize is the default ceiling on one inflated entry.
	MaxEntrySize int64 = 256 << 20
)

// Decompress reconstructs entry content from its payload. Deflated payloads
// are tried as raw deflate first and as zlib-wrapped deflate second; both
// framings occur in the wild, and the order is a heuristic that favours the
// zip-standard one. Output beyond limit bytes discards the entry.
func Decompress(method uint16, payload []byte, limit int64) ([]byte, DiscardReason) {
	if limit <= 0 {
		limit = MaxEntrySize
	}
	switch method {
	case MethodStore:
		if int64(len(payload)) > limit {
			return nil, DiscardTooLarge
		}
		return payload, DiscardNone
	case MethodDeflate:
		data, reason := inflate(flate.NewReader(bytes.NewReader(payload)), limit)
		if reason == DiscardNone || reason == DiscardTooLarge {
			return data, reason
		}
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, DiscardInflate
		}
		return inflate(zr, limit)
	default:
		return nil, DiscardUnsupportedMethod
	}
}

func inflate(rc io.ReadCloser, limit int64) ([]byte, DiscardReason) {
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, DiscardInflate
	}
	if int64(len(data)) > limit {
		return nil, DiscardTooLarge
	}
	return data, DiscardNone
}
