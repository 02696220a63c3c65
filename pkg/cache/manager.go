package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/glorpus-work/brewcask/pkg/errors"
)

// DefaultManager implements the Manager interface for the download cache.
type DefaultManager struct {
	directory string
	now       func() time.Time
}

// NewManager creates a new cache manager.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory: directory,
		now:       time.Now,
	}
}

// Clean removes cached downloads according to the specified options.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}

	entries, err := cm.entries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheClean, err)
	}

	for _, entry := range entries {
		partial := strings.HasSuffix(entry.Name(), download.IncompleteSuffix)
		if !partial && !cm.stale(entry, options) {
			continue
		}

		path := filepath.Join(cm.directory, entry.Name())
		size := entry.Size()
		if !options.DryRun {
			if err := os.Remove(path); err != nil {
				return result, errors.Wrapf(err, "failed to remove %s", path)
			}
		}
		logger.Debug("Removed cached download", logger.Fields{"path": path, "dry_run": options.DryRun})

		result.Removed = append(result.Removed, path)
		result.TotalFreed += size
		if partial {
			result.IncompleteFreed += size
		} else {
			result.DownloadFreed += size
		}
	}

	return result, nil
}

// stale reports whether a complete download may be removed.
func (cm *DefaultManager) stale(entry os.FileInfo, options CleanOptions) bool {
	if options.All {
		return true
	}
	if options.Keep[entry.Name()] {
		return false
	}
	if options.MaxAge > 0 && cm.now().Sub(entry.ModTime()) < options.MaxAge {
		return false
	}
	return true
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.directory}

	entries, err := cm.entries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheInfo, err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), download.IncompleteSuffix) {
			info.IncompleteSize += entry.Size()
			info.IncompleteFiles++
			continue
		}
		info.DownloadSize += entry.Size()
		info.DownloadFiles++
	}
	info.TotalSize = info.DownloadSize + info.IncompleteSize

	return info, nil
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	cm.directory = dir
	return nil
}

// entries lists the regular files of the cache directory. A missing
// directory is an empty cache.
func (cm *DefaultManager) entries() ([]os.FileInfo, error) {
	dirEntries, err := os.ReadDir(cm.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []os.FileInfo
	for _, e := range dirEntries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, fi)
	}
	return files, nil
}
