//go:generate mockgen -destination=./mocks/manager.go . Manager

package download

import (
	"context"
	"net/url"
	"time"

	"github.com/glorpus-work/brewcask/pkg/auth"
)

// Manager defines the interface for downloading cask containers.
// It supports batching, de-duplication, resumption and integrity verification.
type Manager interface {
	// FetchAll downloads all items, respecting Options (e.g., concurrency and cache dir).
	// It returns a map from Item.ID to absolute local file path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item to a deterministic location (within opts.Dir).
	// It returns the absolute local file path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)

	// ResolvedSizeAndMtime asks the server for the size and modification time
	// of the resource without downloading it. Unknown values are zero.
	ResolvedSizeAndMtime(ctx context.Context, u *url.URL) (int64, time.Time, error)
}

// Item represents one remote resource to download.
type Item struct {
	ID       string   // stable identifier (e.g., cask token). Must be unique within a batch.
	URL      *url.URL // source URL to download
	Checksum string   // optional hex-encoded SHA-256 checksum; if provided, will be verified
	Filename string   // optional preferred filename; if empty, a name will be derived
	// Auth adds credentials to the request; nil sends none.
	Auth auth.Authenticator
}

// Options control the behavior of the download manager.
type Options struct {
	Dir         string        // destination directory (cache). Must be absolute.
	Concurrency int           // number of parallel downloads; if <=0, a sane default is used
	Timeout     time.Duration // per-item deadline; zero means none
	Force       bool          // ignore cached files and download again
}
