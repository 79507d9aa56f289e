package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
)

// CleanStaleResult lists what a cleanup removed, what it left because another
// process holds the area, and what it failed to remove.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

type verdict int

const (
	keep verdict = iota
	held
	remove
)

// judge decides what to do with one area. A zero maxAge makes every unlocked
// area eligible.
func judge(dir string, modTime time.Time, maxAge time.Duration, now time.Time) verdict {
	if maxAge > 0 && now.Sub(modTime) <= maxAge {
		return keep
	}
	if inUse(dir) {
		return held
	}
	return remove
}

// CleanStale removes staging areas older than maxAge that no live process holds.
// A maxAge of zero removes every unlocked area. Lock files left behind by
// removed or crashed areas are deleted as well.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	now := time.Now()
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
			continue
		}

		switch judge(dir, info.ModTime(), maxAge, now) {
		case keep:
		case held:
			result.Skipped = append(result.Skipped, dir)
			if logger != nil {
				logger.Info("staging area in use; skipped",
					logging.String("path", dir),
					logging.String(logging.FieldEventType, "staging_cleanup_skipped"),
				)
			}
		case remove:
			if err := os.RemoveAll(dir); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
				logging.WarnWithContext(logger, "failed to remove stale staging area", "staging_cleanup_failed",
					logging.String("path", dir),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			_ = os.Remove(dir + lockSuffix)
			result.Removed = append(result.Removed, dir)
			if logger != nil {
				logger.Info("removed stale staging area",
					logging.String("path", dir),
					logging.Duration("age", now.Sub(info.ModTime()).Round(time.Second)),
					logging.String(logging.FieldEventType, "staging_cleanup"),
				)
			}
		}
	}

	removeOrphanLocks(stagingDir)
	return result
}

// removeOrphanLocks deletes lock files whose area directory is gone.
func removeOrphanLocks(stagingDir string) {
	locks, _ := filepath.Glob(filepath.Join(stagingDir, "*"+lockSuffix))
	for _, lockPath := range locks {
		dir := strings.TrimSuffix(lockPath, lockSuffix)
		if _, err := os.Stat(dir); err == nil || inUse(dir) {
			continue
		}
		_ = os.Remove(lockPath)
	}
}

// DirInfo describes one staging area.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified"`
	Size    int64     `json:"size_bytes"`
	InUse   bool      `json:"in_use"`
}

// ListDirectories returns every area under stagingDir, most recently
// modified first. A missing staging directory yields an empty list.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dir := filepath.Join(stagingDir, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dir,
			ModTime: info.ModTime(),
			Size:    fileutil.DirSize(dir),
			InUse:   inUse(dir),
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ModTime.After(dirs[j].ModTime) })
	return dirs, nil
}
