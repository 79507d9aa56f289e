// Package carve recovers zip entries from a byte blob that has lost its
// central directory.
//
// Recovery works from local file headers alone. A Cursor walks the blob
// looking for the bytes that follow a local header signature when the entry
// was written with a trailing data descriptor (version 2.0, flag 0x0008).
// DecodeHeader bounds each candidate by the next data descriptor signature,
// Decompress inflates the payload, and Carve collects the survivors in blob
// order. Malformed candidates are never errors: each one yields a
// DiscardReason and the scan moves on.
//
// The scan is sequential by construction. A successful decode moves the
// cursor past the entry's data descriptor, so the position of the next
// candidate depends on the outcome of the current one.
package carve
