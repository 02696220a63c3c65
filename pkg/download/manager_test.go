package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glorpus-work/brewcask/pkg/auth"
	pkgerrors "github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "cask container payload"

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

type rangeLog struct {
	mu     sync.Mutex
	values []string
}

func (l *rangeLog) add(v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, v)
}

func (l *rangeLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.values...)
}

func serve(t *testing.T, hits *atomic.Int32, ranges *rangeLog) *httptest.Server {
	t.Helper()
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if ranges != nil && r.Header.Get("Range") != "" {
			ranges.add(r.Header.Get("Range"))
		}
		if r.URL.Path == "/missing.zip" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.ServeContent(w, r, "foo.zip", modified, bytes.NewReader([]byte(payload)))
	}))
	t.Cleanup(server.Close)
	return server
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		expectedUA string
	}{
		{name: "default user agent", expectedUA: "brewcask/1.0"},
		{name: "custom user agent", userAgent: "agent/2.0", expectedUA: "agent/2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(time.Second, tt.userAgent)
			require.NotNil(t, m)
			assert.Equal(t, time.Second, m.client.Timeout)
			assert.Equal(t, tt.expectedUA, m.userAgent)
		})
	}
}

func TestFetch(t *testing.T) {
	server := serve(t, nil, nil)

	tests := []struct {
		name      string
		path      string
		checksum  string
		expectErr error
	}{
		{name: "no checksum", path: "/foo.zip"},
		{name: "valid checksum", path: "/foo.zip", checksum: sum(payload)},
		{name: "checksum with whitespace", path: "/foo.zip", checksum: " " + sum(payload) + " "},
		{name: "checksum mismatch", path: "/foo.zip", checksum: sum("other"), expectErr: pkgerrors.ErrFileHashMismatch},
		{name: "not found", path: "/missing.zip", expectErr: pkgerrors.ErrDownloadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			item := Item{ID: "foo", URL: mustURL(t, server.URL+tt.path), Checksum: tt.checksum}

			p, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: dir})
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries, "failed downloads must not leave files behind")
				return
			}
			require.NoError(t, err)
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.Equal(t, payload, string(data))
			assert.Equal(t, dir, filepath.Dir(p))
		})
	}
}

func TestFetch_Auth(t *testing.T) {
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)

	item := Item{ID: "foo", URL: mustURL(t, server.URL+"/foo.zip"), Auth: auth.BearerAuth{Token: "secret"}}
	_, err := NewManager(time.Second, "brewcask/test").Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "brewcask/test", gotAgent)
}

func TestFetch_RelativeDir(t *testing.T) {
	_, err := NewManager(time.Second, "").Fetch(context.Background(), Item{ID: "x", URL: mustURL(t, "http://example.invalid/x")}, Options{Dir: "relative"})
	require.ErrorIs(t, err, pkgerrors.ErrInvalidPath)
}

func TestFetch_ReusesCachedFile(t *testing.T) {
	var hits atomic.Int32
	server := serve(t, &hits, nil)
	m := NewManager(time.Second, "test")
	dir := t.TempDir()
	item := Item{ID: "foo", URL: mustURL(t, server.URL+"/foo.zip"), Checksum: sum(payload)}

	first, err := m.Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	second, err := m.Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	_, err = m.Fetch(context.Background(), item, Options{Dir: dir, Force: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetch_ResumesIncompleteDownload(t *testing.T) {
	ranges := &rangeLog{}
	server := serve(t, nil, ranges)
	dir := t.TempDir()
	item := Item{ID: "foo", URL: mustURL(t, server.URL+"/foo.zip"), Filename: "foo.zip", Checksum: sum(payload)}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.zip"+IncompleteSuffix), []byte(payload[:5]), 0o600))

	p, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"bytes=5-"}, ranges.all())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.NoFileExists(t, filepath.Join(dir, "foo.zip"+IncompleteSuffix))
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	item := Item{ID: "slow", URL: mustURL(t, server.URL+"/slow.dmg")}
	_, err := NewManager(0, "test").Fetch(context.Background(), item, Options{Dir: t.TempDir(), Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, pkgerrors.ErrDownloadTimeout)
}

func TestFetchAll_DeduplicatesByURL(t *testing.T) {
	var hits atomic.Int32
	server := serve(t, &hits, nil)
	shared := mustURL(t, server.URL+"/foo.zip")

	items := []Item{
		{ID: "a", URL: shared},
		{ID: "b", URL: shared},
		{ID: "c", URL: mustURL(t, server.URL+"/bar.zip")},
	}

	results, err := NewManager(5*time.Second, "test").FetchAll(context.Background(), items, Options{Dir: t.TempDir(), Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, results["a"], results["b"])
	assert.NotEqual(t, results["a"], results["c"])
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchAll_PropagatesFailure(t *testing.T) {
	server := serve(t, nil, nil)
	items := []Item{
		{ID: "ok", URL: mustURL(t, server.URL+"/foo.zip")},
		{ID: "bad", URL: mustURL(t, server.URL+"/missing.zip")},
	}

	_, err := NewManager(time.Second, "test").FetchAll(context.Background(), items, Options{Dir: t.TempDir()})
	require.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)

	_, err = NewManager(time.Second, "test").FetchAll(context.Background(), []Item{{ID: "nil"}}, Options{Dir: t.TempDir()})
	require.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
}

func TestResolvedSizeAndMtime(t *testing.T) {
	server := serve(t, nil, nil)

	size, mtime, err := NewManager(time.Second, "test").ResolvedSizeAndMtime(context.Background(), mustURL(t, server.URL+"/foo.zip"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)
	assert.True(t, mtime.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, _, err = NewManager(time.Second, "test").ResolvedSizeAndMtime(context.Background(), mustURL(t, server.URL+"/missing.zip"))
	require.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
}

func TestSelectFilename(t *testing.T) {
	u := mustURL(t, "https://example.com/releases/Foo-1.2.dmg?x=1")
	name := selectFilename(Item{URL: u})
	assert.Equal(t, sum(u.String())+"--Foo-1.2.dmg", name)
	assert.Equal(t, "given.zip", selectFilename(Item{URL: u, Filename: "given.zip"}))
	assert.Equal(t, sum("https://example.com"), selectFilename(Item{URL: mustURL(t, "https://example.com")}))
}

func TestSHA256File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(p, []byte(payload), 0o600))
	got, err := SHA256File(p)
	require.NoError(t, err)
	assert.Equal(t, sum(payload), got)

	_, err = SHA256File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
