package orchestrator

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheName(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return download.CacheFilename(u)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	f.define(t, "foo", "1.0")
	ctx := context.Background()
	require.NoError(t, f.orch.Install(ctx, []string{"foo"}, InstallOptions{}))
	// a newer definition was published but not installed yet
	f.define(t, "foo", "1.1")

	cacheDir := f.orch.Session.CacheDir
	installedDL := filepath.Join(cacheDir, cacheName(t, "https://example.com/foo-1.0.zip"))
	currentDL := filepath.Join(cacheDir, cacheName(t, "https://example.com/foo-1.1.zip"))
	staleDL := filepath.Join(cacheDir, cacheName(t, "https://example.com/foo-0.9.zip"))
	partial := staleDL + download.IncompleteSuffix
	for _, p := range []string{installedDL, currentDL, staleDL, partial} {
		require.NoError(t, os.WriteFile(p, []byte("payload"), 0o644))
	}

	msg, err := f.orch.Cleanup(CleanupOptions{DryRun: true})
	require.NoError(t, err)
	assert.Contains(t, msg, "Would remove")
	assert.FileExists(t, staleDL)

	_, err = f.orch.Cleanup(CleanupOptions{})
	require.NoError(t, err)
	assert.FileExists(t, installedDL)
	assert.FileExists(t, currentDL)
	assert.NoFileExists(t, staleDL)
	assert.NoFileExists(t, partial)

	_, err = f.orch.Cleanup(CleanupOptions{All: true})
	require.NoError(t, err)
	assert.NoFileExists(t, installedDL)

	info, err := f.orch.CacheInfo()
	require.NoError(t, err)
	assert.Contains(t, info, cacheDir)
}
