// Package cache inspects and prunes the download cache.
package cache

import "time"

// Manager defines the interface for cache management operations.
type Manager interface {
	Clean(options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
	GetDirectory() string
	SetDirectory(dir string) error
}

// CleanOptions specifies what to clean from the cache. Partial downloads
// are always removed.
type CleanOptions struct {
	// All removes every cached download.
	All bool
	// Keep holds the file names still referenced by installed casks.
	Keep map[string]bool
	// MaxAge removes unreferenced downloads older than this. Zero removes
	// every unreferenced download.
	MaxAge time.Duration
	// DryRun reports what would be removed without removing it.
	DryRun bool
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed      int64
	DownloadFreed   int64
	IncompleteFreed int64
	Removed         []string
}

// Info represents cache information.
type Info struct {
	Directory       string
	TotalSize       int64
	DownloadSize    int64
	DownloadFiles   int
	IncompleteSize  int64
	IncompleteFiles int
}
