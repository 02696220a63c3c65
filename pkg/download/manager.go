package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/brewcask/internal/logger"
	pkgerrors "github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"golang.org/x/sync/errgroup"
)

// IncompleteSuffix marks a partial download that can be resumed.
const IncompleteSuffix = ".incomplete"

// ManagerImpl is an HTTP-based download manager with checksum verification,
// de-duplication by URL and resumption of interrupted transfers.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "brewcask/1.0"
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchAll downloads multiple items concurrently and returns a map of item IDs to downloaded file paths.
// Items sharing a URL are downloaded once.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	if err := prepareDir(opts.Dir); err != nil {
		return nil, err
	}

	byURL, order, err := buildURLIndex(items)
	if err != nil {
		return nil, err
	}

	results := make([]string, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, key := range order {
		indexes := byURL[key]
		g.Go(func() error {
			p, err := m.fetchOne(gctx, items[indexes[0]], opts)
			if err != nil {
				return err
			}
			// each goroutine owns a disjoint set of indexes
			for _, i := range indexes {
				results[i] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mapResultsByID(items, results), nil
}

func buildURLIndex(items []Item) (map[string][]int, []string, error) {
	byURL := make(map[string][]int)
	var order []string
	for i, it := range items {
		if it.URL == nil {
			return nil, nil, fmt.Errorf("item %d has nil URL: %w", i, pkgerrors.ErrDownloadFailed)
		}
		key := it.URL.String()
		if _, seen := byURL[key]; !seen {
			order = append(order, key)
		}
		byURL[key] = append(byURL[key], i)
	}
	return byURL, order, nil
}

func mapResultsByID(items []Item, results []string) map[string]string {
	out := make(map[string]string, len(items))
	for i, it := range items {
		out[it.ID] = results[i]
	}
	return out
}

// Fetch downloads a single item and returns the path to the downloaded file.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if err := prepareDir(opts.Dir); err != nil {
		return "", err
	}
	return m.fetchOne(ctx, item, opts)
}

func prepareDir(dir string) error {
	if dir == "" || !filepath.IsAbs(dir) {
		return fmt.Errorf("download dir must be absolute: %s: %w", dir, pkgerrors.ErrInvalidPath)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeSecure); err != nil {
		return pkgerrors.Wrap(err, "could not create download dir")
	}
	return nil
}

// ResolvedSizeAndMtime issues a HEAD request for u.
func (m *ManagerImpl) ResolvedSizeAndMtime(ctx context.Context, u *url.URL) (int64, time.Time, error) {
	if u == nil {
		return 0, time.Time{}, fmt.Errorf("nil URL: %w", pkgerrors.ErrDownloadFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), http.NoBody)
	if err != nil {
		return 0, time.Time{}, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, time.Time{}, classify(ctx, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, time.Time{}, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}

	size := max(resp.ContentLength, 0)
	var mtime time.Time
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			mtime = t
		}
	}
	return size, mtime, nil
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == nil {
		return "", fmt.Errorf("nil URL: %w", pkgerrors.ErrDownloadFailed)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	absPath := filepath.Join(opts.Dir, selectFilename(item))
	if !opts.Force {
		if reuse, ok := tryReuseExisting(absPath, item.Checksum); ok {
			logger.Debug("Reusing cached download", logger.Fields{"id": item.ID, "path": reuse})
			return reuse, nil
		}
	}

	partial := absPath + IncompleteSuffix
	if opts.Force {
		_ = os.Remove(partial)
	}
	if err := m.download(ctx, item, partial); err != nil {
		return "", err
	}

	if item.Checksum != "" {
		ok, err := verifySHA256(partial, item.Checksum)
		if err != nil {
			return "", err
		}
		if !ok {
			_ = os.Remove(partial)
			return "", fmt.Errorf("checksum mismatch for %s: %w", item.URL, pkgerrors.ErrFileHashMismatch)
		}
	}
	if err := finalizeFile(partial, absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// download writes the body of item.URL to partial, resuming from its current size.
func (m *ManagerImpl) download(ctx context.Context, item Item, partial string) error {
	var offset int64
	if st, err := os.Stat(partial); err == nil {
		offset = st.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	if item.Auth != nil {
		if err := item.Auth.Apply(req); err != nil {
			return pkgerrors.Wrap(err, "failed to authenticate request")
		}
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	logger.Debug("Downloading", logger.Fields{"id": item.ID, "url": item.URL.String(), "offset": offset})
	resp, err := m.client.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		// the partial file already holds the whole body
		return nil
	case resp.StatusCode == http.StatusOK:
		flags |= os.O_TRUNC
	default:
		return fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}

	f, err := os.OpenFile(partial, flags, fsutil.FileModeSecure)
	if err != nil {
		return pkgerrors.Wrap(err, "could not create partial file")
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return classify(ctx, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return pkgerrors.Wrap(err, "could not sync file")
	}
	if err := f.Close(); err != nil {
		return pkgerrors.Wrap(err, "could not close file")
	}
	return nil
}

// classify maps deadline failures to ErrDownloadTimeout.
func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", pkgerrors.ErrDownloadTimeout, err)
	}
	return fmt.Errorf("%w: %v", pkgerrors.ErrDownloadFailed, err)
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	return CacheFilename(item.URL)
}

// CacheFilename is the name a download of u is cached under: the hash of the
// URL followed by its last path element.
func CacheFilename(u *url.URL) string {
	h := sha256.Sum256([]byte(u.String()))
	prefix := hex.EncodeToString(h[:])
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return prefix
	}
	return prefix + "--" + base
}

func tryReuseExisting(absPath, checksum string) (string, bool) {
	if st, err := os.Stat(absPath); err == nil && st.Size() > 0 {
		if checksum == "" {
			return absPath, true
		}
		ok, err := verifySHA256(absPath, checksum)
		if err == nil && ok {
			return absPath, true
		}
	}
	return "", false
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeSecure); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}

// SHA256File returns the hex-encoded SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", pkgerrors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func verifySHA256(path string, wantHex string) (bool, error) {
	got, err := SHA256File(path)
	if err != nil {
		return false, err
	}
	return got == normalizeHex(wantHex), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
