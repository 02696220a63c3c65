package cache

import (
	"fmt"

	"github.com/glorpus-work/brewcask/internal/logger"
)

// CacheOperation renders the results of cache operations for the CLI.
type CacheOperation struct {
	manager Manager
}

// NewCacheOperation creates a new cache operation instance.
func NewCacheOperation(manager Manager) *CacheOperation {
	return &CacheOperation{
		manager: manager,
	}
}

// Clean cleans the cache and returns a human-readable summary.
func (op *CacheOperation) Clean(options CleanOptions) (string, error) {
	logger.Debug("Cleaning cache", logger.Fields{
		"all":     options.All,
		"keep":    len(options.Keep),
		"max_age": options.MaxAge.String(),
		"dry_run": options.DryRun,
	})

	result, err := op.manager.Clean(options)
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if result.TotalFreed == 0 && len(result.Removed) == 0 {
		return "No files were removed from the cache.", nil
	}

	verb := "Removed"
	if options.DryRun {
		verb = "Would remove"
	}
	msg := fmt.Sprintf("%s %d file(s), freeing %s.", verb, len(result.Removed), formatBytes(result.TotalFreed))
	if result.DownloadFreed > 0 {
		msg += fmt.Sprintf("\n- Downloads: %s", formatBytes(result.DownloadFreed))
	}
	if result.IncompleteFreed > 0 {
		msg += fmt.Sprintf("\n- Partial downloads: %s", formatBytes(result.IncompleteFreed))
	}
	return msg, nil
}

// GetInfo returns information about the cache.
func (op *CacheOperation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	return fmt.Sprintf(`Cache Information:
  Directory:  %s
  Total Size: %s
  Downloads:  %s (%d files)
  Partial:    %s (%d files)`,
		info.Directory,
		formatBytes(info.TotalSize),
		formatBytes(info.DownloadSize),
		info.DownloadFiles,
		formatBytes(info.IncompleteSize),
		info.IncompleteFiles,
	), nil
}

// GetDirectory returns the cache directory path.
func (op *CacheOperation) GetDirectory() string {
	return op.manager.GetDirectory()
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
