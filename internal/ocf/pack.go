package ocf

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
)

// Entry is an in-memory archive member.
type Entry struct {
	Name string
	Data []byte
}

// PackDirectory archives every regular file below root into out, with the
// canonical mimetype first. A root-level "mimetype" file is not copied, and
// leftover partial files from interrupted atomic writes are ignored. Entries are
// sorted by name. It returns the number of entries written.
func PackDirectory(root, out string) (int, error) {
	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == MimeTypeName || fileutil.IsPartial(rel) {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return 0, &PackagingError{Path: out, Err: fmt.Errorf("walk %s: %w", root, err)}
	}
	sort.Strings(names)

	count := 0
	err = writeFile(out, nil, func(w *Writer) error {
		for _, name := range names {
			if err := addFile(w, name, filepath.Join(root, filepath.FromSlash(name))); err != nil {
				return err
			}
		}
		count = w.Len()
		return nil
	})
	return count, err
}

func addFile(w *Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.Add(name, f)
}

// WriteArchive writes entries to out in the given order after the mimetype
// entry. An empty mimetype writes the canonical value.
func WriteArchive(out string, mimetype []byte, entries []Entry) error {
	return writeFile(out, mimetype, func(w *Writer) error {
		for _, e := range entries {
			if e.Name == MimeTypeName {
				continue
			}
			if err := w.Add(e.Name, bytes.NewReader(e.Data)); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeFile builds an archive in a temporary file next to out and renames it
// into place once fill succeeds.
func writeFile(out string, mimetype []byte, fill func(*Writer) error) (err error) {
	fail := func(e error) error { return &PackagingError{Path: out, Err: e} }

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Errorf("create output directory: %w", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return fail(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w, err := NewWriter(tmp, mimetype)
	if err != nil {
		return fail(err)
	}
	if err := fill(w); err != nil {
		return fail(err)
	}
	if err := w.Close(); err != nil {
		return fail(fmt.Errorf("finish archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		return fail(fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
