package caskroom

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "Caskroom"), nil)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(1500 * time.Millisecond)
		return clock
	}
	return s
}

// install stages version of token with a snapshot, as a finished install would.
func install(t *testing.T, s *Store, token, version string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(s.StagedPath(token, version), "Foo.app"), 0o755))
	_, err := s.WriteSnapshot(token, version, []byte(`{"token":"`+token+`"}`), model.FormatJSON)
	require.NoError(t, err)
}

func TestStore_Paths(t *testing.T) {
	s := NewStore("/opt/Caskroom", nil)
	assert.Equal(t, "/opt/Caskroom/foo", s.CaskPath("foo"))
	assert.Equal(t, "/opt/Caskroom/foo/1.0", s.StagedPath("foo", "1.0"))
	assert.Equal(t, "/opt/Caskroom/foo/.metadata", s.MetadataPath("foo"))
	assert.Equal(t, "/opt/Caskroom/foo/.metadata/1.0", s.MetadataVersionPath("foo", "1.0"))
}

func TestStore_Snapshots(t *testing.T) {
	s := newTestStore(t)

	first, err := s.WriteSnapshot("foo", "1.0", []byte("a"), model.FormatJSON)
	require.NoError(t, err)
	second, err := s.WriteSnapshot("foo", "1.0", []byte("token: foo"), model.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "20240501100001.500", filepath.Base(filepath.Dir(filepath.Dir(first))))

	latest, err := s.LatestSnapshot("foo", "1.0")
	require.NoError(t, err)
	assert.Equal(t, second, latest)
	assert.Equal(t, "foo.yaml", filepath.Base(latest))

	_, err = s.LatestSnapshot("foo", "2.0")
	assert.ErrorIs(t, err, errors.ErrNoMetadata)

	_, err = s.WriteSnapshot("foo", "1.0", nil, "rb")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestStore_InstalledVersion(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.IsInstalled("foo"))

	install(t, s, "foo", "2.0")
	install(t, s, "foo", "10.0")
	require.NoError(t, os.MkdirAll(s.StagedPath("foo", "1.0")+backupSuffix, 0o755))

	v, ok := s.InstalledVersion("foo")
	require.True(t, ok)
	assert.Equal(t, "10.0", v, "the version with the newest snapshot wins")
	assert.True(t, s.IsInstalled("foo"))

	versions, err := s.InstalledVersions("foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0", "2.0"}, versions)

	versions, err = s.InstalledVersions("bar")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestStore_Installed(t *testing.T) {
	s := newTestStore(t)
	tokens, err := s.Installed()
	require.NoError(t, err)
	assert.Empty(t, tokens)

	install(t, s, "zed", "1")
	install(t, s, "alpha", "1")
	require.NoError(t, os.MkdirAll(s.StagedPath("staged-only", "1"), 0o755))

	tokens, err = s.Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zed"}, tokens)
}

func TestStore_Config(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg, err := s.LoadConfig("foo")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	want := model.NewConfig(map[string]string{model.DirApp: "/Applications"})
	want.Explicit[model.DirApp] = "/Users/me/Applications"
	require.NoError(t, s.SaveConfig("foo", want))

	got, err := s.LoadConfig("foo")
	require.NoError(t, err)
	assert.Equal(t, "/Users/me/Applications", got.Dir(model.DirApp))

	require.NoError(t, s.DeleteConfig(ctx, "foo"))
	require.NoError(t, s.DeleteConfig(ctx, "foo"), "deleting twice is fine")

	require.NoError(t, os.WriteFile(s.configPath("foo"), []byte("{"), 0o644))
	_, err = s.LoadConfig("foo")
	assert.ErrorIs(t, err, errors.ErrConfigParse)
}

func TestStore_DownloadSHA(t *testing.T) {
	s := newTestStore(t)

	sha, err := s.LoadDownloadSHA("foo")
	require.NoError(t, err)
	assert.Empty(t, sha)

	require.NoError(t, s.SaveDownloadSHA("foo", "abc123"))
	sha, err = s.LoadDownloadSHA("foo")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)

	require.NoError(t, s.DeleteDownloadSHA(context.Background(), "foo"))
	sha, err = s.LoadDownloadSHA("foo")
	require.NoError(t, err)
	assert.Empty(t, sha)
}

func TestStore_BackupAndRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "foo", "1.0")

	require.NoError(t, s.Backup(ctx, "foo", "1.0"))
	assert.True(t, s.HasBackup("foo", "1.0"))
	assert.NoDirExists(t, s.StagedPath("foo", "1.0"))
	assert.Equal(t, []string{"1.0"}, s.PendingBackups("foo"))

	pending, err := s.Interrupted()
	require.NoError(t, err)
	assert.Equal(t, []Pending{{Token: "foo", Version: "1.0"}}, pending)

	// a half-written replacement is discarded by restore
	require.NoError(t, os.MkdirAll(filepath.Join(s.StagedPath("foo", "1.0"), "partial"), 0o755))

	require.NoError(t, s.Restore(ctx, "foo", "1.0"))
	assert.DirExists(t, filepath.Join(s.StagedPath("foo", "1.0"), "Foo.app"))
	assert.NoDirExists(t, filepath.Join(s.StagedPath("foo", "1.0"), "partial"))
	assert.False(t, s.HasBackup("foo", "1.0"))

	require.NoError(t, s.Restore(ctx, "foo", "1.0"), "restore without a backup is a no-op")
	_, err = s.LatestSnapshot("foo", "1.0")
	assert.NoError(t, err)
}

// treeState records the mode and content of every entry below root.
func treeState(t *testing.T, root string) map[string]string {
	t.Helper()
	state := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entry := info.Mode().String()
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry += " -> " + target
		case info.Mode().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entry += " " + string(data)
		}
		state[rel] = entry
		return nil
	}))
	return state
}

func TestStore_BackupRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "foo", "1.0")

	app := filepath.Join(s.StagedPath("foo", "1.0"), "Foo.app")
	require.NoError(t, os.MkdirAll(filepath.Join(app, "Contents", "MacOS"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Contents", "MacOS", "foo"), []byte("#!/bin/sh\necho foo\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Contents", "Info.plist"), []byte("<plist/>"), 0o600))
	require.NoError(t, os.Symlink("Contents/MacOS/foo", filepath.Join(app, "foo")))

	staged := treeState(t, s.StagedPath("foo", "1.0"))
	meta := treeState(t, s.MetadataVersionPath("foo", "1.0"))

	require.NoError(t, s.Backup(ctx, "foo", "1.0"))
	require.NoError(t, s.Restore(ctx, "foo", "1.0"))

	assert.Equal(t, staged, treeState(t, s.StagedPath("foo", "1.0")))
	assert.Equal(t, meta, treeState(t, s.MetadataVersionPath("foo", "1.0")))
	assert.False(t, s.HasBackup("foo", "1.0"))
}

func TestStore_BackupRequiresBothDirectories(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.StagedPath("foo", "1.0"), 0o755))

	err := s.Backup(context.Background(), "foo", "1.0")
	assert.ErrorIs(t, err, errors.ErrBackupIncomplete)
	assert.DirExists(t, s.StagedPath("foo", "1.0"))
}

func TestStore_PurgeBackup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "foo", "1.0")
	require.NoError(t, s.Backup(ctx, "foo", "1.0"))

	require.NoError(t, s.PurgeBackup(ctx, "foo", "1.0"))
	assert.False(t, s.HasBackup("foo", "1.0"))
	assert.Empty(t, s.PendingBackups("foo"))
	require.NoError(t, s.PurgeBackup(ctx, "foo", "1.0"))
}

func TestStore_PurgeVersionedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "foo", "1.0")
	install(t, s, "foo", "2.0")

	require.NoError(t, s.PurgeVersionedFiles(ctx, "foo", "1.0"))
	assert.NoDirExists(t, s.StagedPath("foo", "1.0"))
	assert.NoDirExists(t, s.MetadataVersionPath("foo", "1.0"))
	assert.DirExists(t, s.CaskPath("foo"))

	require.NoError(t, s.PurgeVersionedFiles(ctx, "foo", "2.0"))
	assert.NoDirExists(t, s.CaskPath("foo"), "empty cask directory is removed")
}

func TestStore_PurgeVersionedFilesKeepsConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "foo", "1.0")
	require.NoError(t, s.SaveConfig("foo", model.NewConfig(nil)))

	require.NoError(t, s.PurgeVersionedFiles(ctx, "foo", "1.0"))
	assert.FileExists(t, s.configPath("foo"))

	require.NoError(t, s.PurgeCaskroom(ctx, "foo"))
	assert.NoDirExists(t, s.CaskPath("foo"))
	require.NoError(t, s.PurgeCaskroom(ctx, "foo"))
}

func TestStore_PurgeReadOnlyTree(t *testing.T) {
	s := newTestStore(t)
	install(t, s, "foo", "1.0")
	ro := filepath.Join(s.StagedPath("foo", "1.0"), "Foo.app")
	require.NoError(t, os.WriteFile(filepath.Join(ro, "file"), []byte("x"), 0o444))
	require.NoError(t, os.Chmod(ro, 0o555))

	require.NoError(t, s.PurgeVersionedFiles(context.Background(), "foo", "1.0"))
	assert.NoDirExists(t, s.StagedPath("foo", "1.0"))
}

func TestStore_Migrate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	install(t, s, "old-foo", "1.0")

	require.NoError(t, s.Migrate(ctx, "old-foo", "foo"))
	assert.True(t, s.IsInstalled("foo"))

	snapshot, err := s.LatestSnapshot("foo", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "foo.json", filepath.Base(snapshot))

	link, err := os.Readlink(s.CaskPath("old-foo"))
	require.NoError(t, err)
	assert.Equal(t, "foo", link)

	require.NoError(t, s.Migrate(ctx, "old-foo", "foo"), "migrating twice is a no-op")
	tokens, err := s.Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, tokens)
}

func TestStore_EnsureRoot(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureRoot(context.Background()))
	assert.DirExists(t, s.Root())
	require.NoError(t, s.EnsureRoot(context.Background()))
}
