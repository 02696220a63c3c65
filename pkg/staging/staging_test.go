package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/archive"
	pkgerrors "github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/quarantine/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func zipOf(t *testing.T, dir string, files map[string]string, out string) {
	t.Helper()
	src := filepath.Join(dir, "src-"+filepath.Base(out))
	for name, content := range files {
		full := filepath.Join(src, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	require.NoError(t, archive.NewManager(nil).CreateZip(context.Background(), src, out))
}

func TestStager_Extract(t *testing.T) {
	dir := t.TempDir()
	download := filepath.Join(dir, "abc--Foo.zip")
	zipOf(t, dir, map[string]string{"Foo.app/Contents/Info.plist": "<plist/>"}, download)

	dest := filepath.Join(dir, "Caskroom", "foo", "1.0")
	cask := &model.Cask{Token: "foo", URL: "https://example.com/Foo.zip"}

	require.NoError(t, NewStager(archive.NewManager(nil), nil).Extract(context.Background(), download, dest, cask, Options{Quarantine: true}))
	assert.FileExists(t, filepath.Join(dest, "Foo.app", "Contents", "Info.plist"))
}

func TestStager_ExtractNakedUsesURLBasename(t *testing.T) {
	dir := t.TempDir()
	download := filepath.Join(dir, "abc--foo-cli")
	require.NoError(t, os.WriteFile(download, []byte("#!/bin/sh\n"), 0o755))

	dest := filepath.Join(dir, "staged")
	cask := &model.Cask{Token: "foo-cli", URL: "https://example.com/dl/foo-cli?arch=arm", Container: &model.Container{Type: "naked"}}

	require.NoError(t, NewStager(archive.NewManager(nil), nil).Extract(context.Background(), download, dest, cask, Options{}))
	assert.FileExists(t, filepath.Join(dest, "foo-cli"))
}

func TestStager_ExtractNestedContainer(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "payload", "Inner.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(inner), 0o755))
	zipOf(t, dir, map[string]string{"Foo.app/Contents/Info.plist": "<plist/>"}, inner)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload", "README"), []byte("readme"), 0o444))

	download := filepath.Join(dir, "Outer.tar.gz")
	require.NoError(t, archive.NewManager(nil).Create(context.Background(), filepath.Join(dir, "payload"), download))

	dest := filepath.Join(dir, "staged")
	cask := &model.Cask{Token: "foo", URL: "https://example.com/Outer.tar.gz", Container: &model.Container{Nested: "Inner.zip"}}

	require.NoError(t, NewStager(archive.NewManager(nil), nil).Extract(context.Background(), download, dest, cask, Options{}))
	assert.FileExists(t, filepath.Join(dest, "Foo.app", "Contents", "Info.plist"))
	assert.NoFileExists(t, filepath.Join(dest, "README"))
}

func TestStager_ExtractErrors(t *testing.T) {
	dir := t.TempDir()
	download := filepath.Join(dir, "Foo.zip")
	zipOf(t, dir, map[string]string{"a": "a"}, download)

	tests := []struct {
		name      string
		container *model.Container
		target    error
	}{
		{name: "missing nested container", container: &model.Container{Nested: "missing.dmg"}, target: pkgerrors.ErrFileNotFound},
		{name: "nested path escapes", container: &model.Container{Nested: "../../etc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cask := &model.Cask{Token: "foo", URL: "https://example.com/Foo.zip", Container: tt.container}
			err := NewStager(archive.NewManager(nil), nil).Extract(context.Background(), download, filepath.Join(dir, "out"), cask, Options{})

			var extractErr *pkgerrors.ExtractionError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, "foo", extractErr.Token)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestStager_Quarantine(t *testing.T) {
	dir := t.TempDir()
	download := filepath.Join(dir, "Foo.zip")
	zipOf(t, dir, map[string]string{"Foo.app/x": "x"}, download)
	cask := &model.Cask{Token: "foo", URL: "https://example.com/Foo.zip"}

	t.Run("propagates when enabled and available", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := mocks.NewMockQuarantiner(ctrl)
		dest := filepath.Join(t.TempDir(), "staged")
		q.EXPECT().Available().Return(true)
		q.EXPECT().Propagate(gomock.Any(), download, dest).Return(nil)

		require.NoError(t, NewStager(archive.NewManager(nil), q).Extract(context.Background(), download, dest, cask, Options{Quarantine: true}))
	})

	t.Run("skipped when unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := mocks.NewMockQuarantiner(ctrl)
		q.EXPECT().Available().Return(false)

		require.NoError(t, NewStager(archive.NewManager(nil), q).Extract(context.Background(), download, filepath.Join(t.TempDir(), "s"), cask, Options{Quarantine: true}))
	})

	t.Run("skipped when disabled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := mocks.NewMockQuarantiner(ctrl)

		require.NoError(t, NewStager(archive.NewManager(nil), q).Extract(context.Background(), download, filepath.Join(t.TempDir(), "s"), cask, Options{}))
	})

	t.Run("propagation failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := mocks.NewMockQuarantiner(ctrl)
		q.EXPECT().Available().Return(true)
		q.EXPECT().Propagate(gomock.Any(), gomock.Any(), gomock.Any()).Return(&pkgerrors.QuarantineError{Op: "propagate", Err: errors.New("denied")})

		err := NewStager(archive.NewManager(nil), q).Extract(context.Background(), download, filepath.Join(t.TempDir(), "s"), cask, Options{Quarantine: true})
		var qerr *pkgerrors.QuarantineError
		assert.ErrorAs(t, err, &qerr)
	})
}
