// Package archive detects cask containers and unpacks them.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/mholt/archives"
)

// Type classifies a container.
type Type string

// Container types.
const (
	TypeArchive    Type = "archive"    // tar, zip, 7z, rar and compressed tarballs
	TypeCompressed Type = "compressed" // a single compressed file such as foo.gz
	TypeDMG        Type = "dmg"
	TypeNaked      Type = "naked" // copied as-is, e.g. a .pkg or a bare binary
)

// Options control a single extraction.
type Options struct {
	// Type skips detection when set. Unknown values fall back to detection.
	Type string
	// Name is the file name used for naked and compressed containers.
	Name string
}

// Manager handles archive extraction and creation operations.
type Manager struct {
	runner command.Runner
}

// NewManager creates a new Manager. The runner mounts disk images.
func NewManager(runner command.Runner) *Manager {
	return &Manager{runner: runner}
}

// Detect classifies the container at path by content, falling back to the
// file extension for disk images.
func (am *Manager) Detect(ctx context.Context, path string) (Type, error) {
	if strings.EqualFold(filepath.Ext(path), ".dmg") {
		return TypeDMG, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(path), f)
	if errors.Is(err, archives.NoMatch) {
		return TypeNaked, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to identify %s: %w", path, err)
	}
	if _, ok := format.(archives.Extractor); ok {
		return TypeArchive, nil
	}
	if _, ok := format.(archives.Decompressor); ok {
		return TypeCompressed, nil
	}
	return TypeNaked, nil
}

// Extract unpacks src into destDir.
func (am *Manager) Extract(ctx context.Context, src, destDir string, opts Options) error {
	typ, err := am.containerType(ctx, src, opts.Type)
	if err != nil {
		return err
	}
	return am.extractAs(ctx, typ, src, destDir, opts.Name)
}

// ExtractNestedly extracts src and, when the result is a single file, keeps
// unpacking that file into destDir. Otherwise the extracted entries are made
// user-writable and copied into destDir.
func (am *Manager) ExtractNestedly(ctx context.Context, src, destDir string, opts Options) error {
	typ, err := am.containerType(ctx, src, opts.Type)
	if err != nil {
		return err
	}
	if typ == TypeNaked {
		return am.extractAs(ctx, typ, src, destDir, opts.Name)
	}

	tmp, err := os.MkdirTemp("", "brewcask-unpack-*")
	if err != nil {
		return fmt.Errorf("failed to create unpack directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := am.extractAs(ctx, typ, src, tmp, opts.Name); err != nil {
		return err
	}

	children, err := os.ReadDir(tmp)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", tmp, err)
	}
	if len(children) == 1 && children[0].Type().IsRegular() {
		child := children[0].Name()
		logger.Debug("Unpacking nested container", logger.Fields{"name": child})
		return am.ExtractNestedly(ctx, filepath.Join(tmp, child), destDir, Options{Name: child})
	}

	if err := fsutil.MakeUserWritable(tmp); err != nil {
		return fmt.Errorf("failed to make %s writable: %w", tmp, err)
	}
	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	for _, c := range children {
		if err := fsutil.CopyTree(filepath.Join(tmp, c.Name()), filepath.Join(destDir, c.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (am *Manager) extractAs(ctx context.Context, typ Type, src, destDir, name string) error {
	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if name == "" {
		name = filepath.Base(src)
	}

	logger.Debug("Extracting container", logger.Fields{"path": src, "type": string(typ), "dest": destDir})

	switch typ {
	case TypeDMG:
		return am.extractDMG(ctx, src, destDir)
	case TypeCompressed:
		return am.decompress(ctx, src, filepath.Join(destDir, strings.TrimSuffix(name, filepath.Ext(name))))
	case TypeNaked:
		return fsutil.CopyTree(src, filepath.Join(destDir, name))
	default:
		return am.ExtractAll(ctx, src, destDir)
	}
}

func (am *Manager) containerType(ctx context.Context, src, override string) (Type, error) {
	switch strings.ToLower(override) {
	case "dmg":
		return TypeDMG, nil
	case "naked", "pkg":
		return TypeNaked, nil
	}
	return am.Detect(ctx, src)
}

// ExtractAll extracts all files from an archive to the specified destination directory
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return am.extractEntry(fsys, path, destDir, d)
	})
}

// extractEntry processes a single archive entry and writes it to destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath := filepath.Join(destDir, path)
	if !within(destDir, targetPath) {
		return fmt.Errorf("archive entry %s escapes the destination", path)
	}

	if d.IsDir() {
		return os.MkdirAll(targetPath, fsutil.DirModeDefault)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return am.writeSymlink(fsys, path, destDir, targetPath, info)
	}
	return am.writeRegularFile(fsys, path, targetPath, info)
}

// writeSymlink recreates the symlink stored at path. Tar and zip entries
// carry the target in their header; other formats store it as file content.
// Links must stay inside destDir so later entries cannot be written through
// them.
func (am *Manager) writeSymlink(fsys fs.FS, path, destDir, targetPath string, info fs.FileInfo) error {
	var link string
	if fi, ok := info.(archives.FileInfo); ok && fi.LinkTarget != "" {
		link = fi.LinkTarget
	} else {
		f, err := fsys.Open(path)
		if err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", path, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to read symlink target %s: %w", path, err)
		}
		link = string(data)
	}
	if filepath.IsAbs(link) || !within(destDir, filepath.Join(filepath.Dir(targetPath), link)) {
		return fmt.Errorf("archive symlink %s -> %s escapes the destination", path, link)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", path, err)
	}
	_ = os.Remove(targetPath)
	return os.Symlink(link, targetPath)
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	dir, path = filepath.Clean(dir), filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// writeRegularFile writes a regular file from the archive entry to targetPath and preserves metadata.
func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	perm := info.Mode().Perm() | fsutil.ModeUserWrite
	dstFile, err := fsutil.CreateFilePerm(targetPath, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}
	if err := os.Chmod(targetPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", targetPath, err)
	}
	return os.Chtimes(targetPath, info.ModTime(), info.ModTime())
}

func (am *Manager) decompress(ctx context.Context, src, target string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = f.Close() }()

	format, stream, err := archives.Identify(ctx, filepath.Base(src), f)
	if err != nil {
		return fmt.Errorf("failed to identify %s: %w", src, err)
	}
	dec, ok := format.(archives.Decompressor)
	if !ok {
		return fmt.Errorf("%s is not a compressed file", src)
	}
	rc, err := dec.OpenReader(stream)
	if err != nil {
		return fmt.Errorf("failed to open decompressor for %s: %w", src, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := fsutil.CreateFilePerm(target, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to decompress %s: %w", src, err)
	}
	return nil
}

// extractDMG mounts the image read-only, copies its contents and detaches it.
func (am *Manager) extractDMG(ctx context.Context, src, destDir string) error {
	if am.runner == nil {
		return fmt.Errorf("cannot mount %s: no command runner configured", src)
	}
	mount, err := os.MkdirTemp("", "brewcask-dmg-*")
	if err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}
	defer func() { _ = os.RemoveAll(mount) }()

	attach := command.Cmd{
		Name:  "/usr/bin/hdiutil",
		Args:  []string{"attach", "-plist", "-nobrowse", "-readonly", "-noidme", "-mountpoint", mount, src},
		Input: "qn\n",
	}
	if _, err := am.runner.Run(ctx, attach); err != nil {
		return fmt.Errorf("failed to mount %s: %w", src, err)
	}
	defer func() {
		detach := command.Cmd{Name: "/usr/bin/hdiutil", Args: []string{"detach", "-force", mount}}
		if _, err := am.runner.Run(context.WithoutCancel(ctx), detach); err != nil {
			logger.Warn("Failed to detach disk image", logger.Fields{"mount": mount, "error": err.Error()})
		}
	}()

	entries, err := os.ReadDir(mount)
	if err != nil {
		return fmt.Errorf("failed to list mounted image: %w", err)
	}
	for _, e := range entries {
		if isDMGMetadata(e.Name()) {
			continue
		}
		if err := fsutil.CopyTree(filepath.Join(mount, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return fmt.Errorf("failed to copy %s from image: %w", e.Name(), err)
		}
	}
	return nil
}

func isDMGMetadata(name string) bool {
	switch name {
	case ".Trashes", ".fseventsd", ".Spotlight-V100", ".DS_Store", ".background", ".VolumeIcon.icns":
		return true
	}
	return false
}

// Create writes sourceDir as a gzip-compressed tarball.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	return am.create(ctx, sourceDir, archivePath, archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	})
}

// CreateZip writes sourceDir as a zip file.
func (am *Manager) CreateZip(ctx context.Context, sourceDir, archivePath string) error {
	return am.create(ctx, sourceDir, archivePath, archives.Zip{})
}

func (am *Manager) create(ctx context.Context, sourceDir, archivePath string, format archives.Archiver) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	if err := format.Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}
