// Package cache reports and prunes the uv content cache directory. The
// cache is mutated without locking; concurrent external writers are
// tolerated by treating entries that vanish mid-traversal as non-fatal.
package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DownloadSubdir is the managed download directory inside the cache root.
const DownloadSubdir = "downloads"

// Manager owns the cache root and its download subdirectory.
type Manager struct {
	log  *zap.Logger
	root string

	// now is a seam for age-cutoff tests.
	now func() time.Time
}

// NewManager builds a Manager rooted at root.
func NewManager(log *zap.Logger, root string) *Manager {
	return &Manager{log: log, root: root, now: time.Now}
}

// Root returns the cache root path.
func (m *Manager) Root() string {
	return m.root
}

// EnsureLayout creates the cache root and download subdirectory if absent.
func (m *Manager) EnsureLayout() error {
	return os.MkdirAll(filepath.Join(m.root, DownloadSubdir), 0o755)
}

// Size sums the file sizes under the cache root. Files that disappear
// between listing and sizing (a race with uv's own cache activity) are
// skipped rather than failed. A missing root is an empty cache.
func (m *Manager) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Vanished mid-walk.
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}

// Clean prunes the cache and returns the bytes freed. olderThanDays > 0
// deletes only files whose modification time precedes now minus that many
// days, leaving directories and newer files untouched; per-file failures are
// logged and skipped. olderThanDays <= 0 wipes and recreates the whole
// layout; any failure there is fatal to the operation.
func (m *Manager) Clean(olderThanDays int) (int64, bool) {
	before, err := m.Size()
	if err != nil {
		m.log.Error("failed to size cache", zap.String("root", m.root), zap.Error(err))
		return 0, false
	}

	if olderThanDays > 0 {
		m.pruneOlderThan(olderThanDays)
	} else {
		m.log.Info("cleaning all cache files", zap.String("root", m.root))
		if err := os.RemoveAll(m.root); err != nil {
			m.log.Error("failed to clear cache", zap.Error(err))
			return 0, false
		}
		if err := m.EnsureLayout(); err != nil {
			m.log.Error("failed to recreate cache layout", zap.Error(err))
			return 0, false
		}
		m.log.Info("cleared all cache files")
	}

	after, err := m.Size()
	if err != nil {
		m.log.Error("failed to size cache after clean", zap.Error(err))
		return 0, false
	}

	freed := before - after
	m.log.Info("cache cleanup complete",
		zap.Int64("freed_bytes", freed), zap.Int64("remaining_bytes", after))
	return freed, true
}

func (m *Manager) pruneOlderThan(days int) {
	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)
	m.log.Info("cleaning cache files older than cutoff",
		zap.Int("days", days), zap.Time("cutoff", cutoff))

	_ = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) || info.ModTime().Equal(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			m.log.Warn("failed to remove cache file",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		m.log.Debug("removed old cache file", zap.String("path", path))
		return nil
	})
}
