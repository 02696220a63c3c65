package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/command/mocks"
	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestManager_CreateAndExtractAll(t *testing.T) {
	tempDir := t.TempDir()
	files := map[string]string{
		"Foo.app/Contents/Info.plist":  "<plist/>",
		"Foo.app/Contents/MacOS/foo":   "binary",
		"Foo.app/Contents/Resources/x": "resource",
	}
	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, files)

	am := NewManager(nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		create func(context.Context, string, string) error
		file   string
	}{
		{"tar.gz", am.Create, "foo.tar.gz"},
		{"zip", am.CreateZip, "foo.zip"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			archivePath := filepath.Join(tempDir, tc.file)
			require.NoError(t, tc.create(ctx, sourceDir, archivePath))

			typ, err := am.Detect(ctx, archivePath)
			require.NoError(t, err)
			assert.Equal(t, TypeArchive, typ)

			dest := filepath.Join(tempDir, "out-"+tc.name)
			require.NoError(t, am.Extract(ctx, archivePath, dest, Options{}))
			for path, content := range files {
				data, err := os.ReadFile(filepath.Join(dest, path))
				require.NoError(t, err, path)
				assert.Equal(t, content, string(data))
			}
		})
	}
}

func TestManager_ExtractAll_Symlinks(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		wantErr bool
	}{
		{name: "inside the bundle", link: "Contents/MacOS/foo"},
		{name: "up to the destination", link: ".."},
		{name: "parent of the destination", link: "../../outside", wantErr: true},
		{name: "absolute", link: "/etc", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tempDir := t.TempDir()
			sourceDir := filepath.Join(tempDir, "source")
			writeTree(t, sourceDir, map[string]string{"Foo.app/Contents/MacOS/foo": "binary"})
			require.NoError(t, os.Symlink(tc.link, filepath.Join(sourceDir, "Foo.app", "link")))

			am := NewManager(nil)
			ctx := context.Background()
			archivePath := filepath.Join(tempDir, "foo.tar.gz")
			require.NoError(t, am.Create(ctx, sourceDir, archivePath))

			dest := filepath.Join(tempDir, "out")
			err := am.ExtractAll(ctx, archivePath, dest)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "escapes the destination")
				_, statErr := os.Lstat(filepath.Join(dest, "Foo.app", "link"))
				assert.True(t, os.IsNotExist(statErr))
				return
			}
			require.NoError(t, err)
			target, err := os.Readlink(filepath.Join(dest, "Foo.app", "link"))
			require.NoError(t, err)
			assert.Equal(t, tc.link, target)
		})
	}
}

func TestManager_ExtractNaked(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "download--1.0")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\necho hi\n"), 0o755))

	am := NewManager(nil)
	typ, err := am.Detect(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, TypeNaked, typ)

	dest := filepath.Join(tempDir, "staged")
	require.NoError(t, am.ExtractNestedly(context.Background(), src, dest, Options{Name: "tool"}))

	info, err := os.Stat(filepath.Join(dest, "tool"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestManager_ExtractNestedly_SingleInnerArchive(t *testing.T) {
	tempDir := t.TempDir()
	am := NewManager(nil)
	ctx := context.Background()

	inner := filepath.Join(tempDir, "inner")
	writeTree(t, inner, map[string]string{"Foo.app/Contents/Info.plist": "<plist/>"})

	wrapper := filepath.Join(tempDir, "wrapper")
	require.NoError(t, os.MkdirAll(wrapper, 0o755))
	require.NoError(t, am.CreateZip(ctx, inner, filepath.Join(wrapper, "Foo.zip")))

	outer := filepath.Join(tempDir, "outer.tar.gz")
	require.NoError(t, am.Create(ctx, wrapper, outer))

	dest := filepath.Join(tempDir, "staged")
	require.NoError(t, am.ExtractNestedly(ctx, outer, dest, Options{}))

	assert.FileExists(t, filepath.Join(dest, "Foo.app", "Contents", "Info.plist"))
	assert.NoFileExists(t, filepath.Join(dest, "Foo.zip"))
}

func TestManager_ExtractNestedly_KeepsMultipleEntries(t *testing.T) {
	tempDir := t.TempDir()
	am := NewManager(nil)
	ctx := context.Background()

	src := filepath.Join(tempDir, "src")
	writeTree(t, src, map[string]string{"README": "read me", "bin/foo": "foo"})
	outer := filepath.Join(tempDir, "foo.zip")
	require.NoError(t, am.CreateZip(ctx, src, outer))

	dest := filepath.Join(tempDir, "staged")
	require.NoError(t, am.ExtractNestedly(ctx, outer, dest, Options{}))
	assert.FileExists(t, filepath.Join(dest, "README"))
	assert.FileExists(t, filepath.Join(dest, "bin", "foo"))
}

func TestManager_ExtractCompressedFile(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "tool.gz")

	f, err := os.Create(src)
	require.NoError(t, err)
	w, err := archives.Gz{}.OpenWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	am := NewManager(nil)
	typ, err := am.Detect(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, TypeCompressed, typ)

	dest := filepath.Join(tempDir, "out")
	require.NoError(t, am.Extract(context.Background(), src, dest, Options{}))
	data, err := os.ReadFile(filepath.Join(dest, "tool"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestManager_ExtractDMG(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "Foo.dmg")
	require.NoError(t, os.WriteFile(src, []byte("not really a disk image"), 0o644))

	var mount string
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, cmd command.Cmd) (command.Result, error) {
			require.Equal(t, "attach", cmd.Args[0])
			mount = cmd.Args[len(cmd.Args)-2]
			writeTree(t, mount, map[string]string{"Foo.app/Contents/Info.plist": "<plist/>", ".Trashes/x": ""})
			return command.Result{}, nil
		}),
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, cmd command.Cmd) (command.Result, error) {
			assert.Equal(t, []string{"detach", "-force", mount}, cmd.Args)
			return command.Result{}, nil
		}),
	)

	dest := filepath.Join(tempDir, "staged")
	require.NoError(t, NewManager(runner).Extract(context.Background(), src, dest, Options{}))
	assert.FileExists(t, filepath.Join(dest, "Foo.app", "Contents", "Info.plist"))
	assert.NoDirExists(t, filepath.Join(dest, ".Trashes"))
}

func TestManager_TypeOverride(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "payload.zip")
	require.NoError(t, os.WriteFile(src, []byte("plain"), 0o644))

	dest := filepath.Join(tempDir, "out")
	require.NoError(t, NewManager(nil).Extract(context.Background(), src, dest, Options{Type: "naked", Name: "Foo.pkg"}))
	assert.FileExists(t, filepath.Join(dest, "Foo.pkg"))
}
