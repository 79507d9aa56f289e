package ocf

import (
	"archive/zip"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

const (
	// MimeType is the canonical content of the mimetype entry.
	MimeType = "application/epub+zip"
	// MimeTypeName is the name of the first archive entry.
	MimeTypeName = "mimetype"
	// ContainerPath is where the container document lives in every archive.
	ContainerPath = "META-INF/container.xml"
)

// ErrPackaging is matched by every *PackagingError.
var ErrPackaging = errors.New("packaging failed")

// PackagingError reports a failure to produce an archive at Path.
type PackagingError struct {
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package %s: %v", e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// Is reports ErrPackaging as a match.
func (e *PackagingError) Is(target error) bool { return target == ErrPackaging }

// Writer streams entries into an OCF archive.
type Writer struct {
	zw       *zip.Writer
	modified time.Time
	names    map[string]struct{}
}

// NewWriter writes the mimetype entry and returns a Writer ready for content.
// An empty mimetype writes the canonical value.
func NewWriter(w io.Writer, mimetype []byte) (*Writer, error) {
	if len(mimetype) == 0 {
		mimetype = []byte(MimeType)
	}
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	ow := &Writer{zw: zw, modified: time.Now(), names: map[string]struct{}{MimeTypeName: {}}}

	// Raw so the local header carries CRC and sizes and no data descriptor follows.
	header := &zip.FileHeader{
		Name:               MimeTypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(mimetype),
		CompressedSize64:   uint64(len(mimetype)),
		UncompressedSize64: uint64(len(mimetype)),
	}
	mw, err := zw.CreateRaw(header)
	if err != nil {
		return nil, fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mw.Write(mimetype); err != nil {
		return nil, fmt.Errorf("write mimetype entry: %w", err)
	}
	return ow, nil
}

// Add writes a deflated entry. Names are slash separated and must be unique;
// a second mimetype entry is rejected.
func (w *Writer) Add(name string, r io.Reader) error {
	name = strings.TrimLeft(strings.ReplaceAll(name, `\`, "/"), "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("duplicate entry %q", name)
	}
	w.names[name] = struct{}{}

	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modified,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, r); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// Len returns the number of entries written, mimetype included.
func (w *Writer) Len() int {
	return len(w.names)
}

// Close writes the central directory.
func (w *Writer) Close() error {
	return w.zw.Close()
}
