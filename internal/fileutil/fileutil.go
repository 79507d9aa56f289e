package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PartSuffix ends the name of a file that is still being written.
const PartSuffix = ".part"

// WriteAtomic streams r into dst through a uniquely named hidden sibling that
// is renamed into place only after a complete write, so concurrent writers of
// the same dst never share a partial file. Parent directories are created. On
// failure the partial file is removed and dst is left untouched.
func WriteAtomic(dst string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}
	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*"+PartSuffix)
	if err != nil {
		return 0, err
	}
	part := out.Name()

	written, err := io.Copy(out, r)
	if err == nil {
		err = out.Chmod(0o644)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(part)
		return written, err
	}
	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return written, err
	}
	return written, nil
}

// IsPartial reports whether name (a base name or slash path) has the form of
// an in-progress WriteAtomic file: ".<base>.<digits>.part".
func IsPartial(name string) bool {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, PartSuffix) {
		return false
	}
	body := strings.TrimSuffix(name[1:], PartSuffix)
	dot := strings.LastIndexByte(body, '.')
	if dot <= 0 || dot == len(body)-1 {
		return false
	}
	for _, r := range body[dot+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NonEmptyFile reports whether path is a regular file with at least one byte.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// DirSize sums the sizes of regular files below path. Unreadable entries are skipped.
func DirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
