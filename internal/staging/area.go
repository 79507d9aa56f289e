package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockSuffix = ".lock"

// ErrOutsideArea is returned when a container path would resolve outside the area.
var ErrOutsideArea = errors.New("path escapes staging area")

// Area is one exclusive on-disk mirror of a book.
type Area struct {
	ID   string
	Path string
	lock *flock.Flock
}

// Create makes a new uniquely named area under root and locks it.
func Create(root string) (*Area, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("staging root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(root, id)
	lock := flock.New(dir + lockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire staging lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("staging area %s already locked", id)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, fmt.Errorf("create staging area: %w", err)
	}
	return &Area{ID: id, Path: dir, lock: lock}, nil
}

// Resolve maps a slash-separated container path to its location inside the area.
func (a *Area) Resolve(containerPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimLeft(containerPath, "/")))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrOutsideArea, containerPath)
	}
	return filepath.Join(a.Path, cleaned), nil
}

// Close releases the area. When remove is true the directory is deleted first.
func (a *Area) Close(remove bool) error {
	if a == nil {
		return nil
	}
	var errs []error
	if remove {
		if err := os.RemoveAll(a.Path); err != nil {
			errs = append(errs, fmt.Errorf("remove staging area: %w", err))
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release staging lock: %w", err))
		}
		if remove {
			_ = os.Remove(a.lock.Path())
		}
		a.lock = nil
	}
	return errors.Join(errs...)
}

// inUse reports whether another holder has the lock for dir.
func inUse(dir string) bool {
	if _, err := os.Stat(dir + lockSuffix); err != nil {
		return false
	}
	probe := flock.New(dir + lockSuffix)
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = probe.Unlock()
	return false
}
