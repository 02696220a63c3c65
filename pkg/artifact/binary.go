package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// Binary links an executable from the staged path into the binary dir.
type Binary struct {
	Source string
	Target string
}

// NewBinary returns a Binary artifact. An empty target defaults to the base
// name of source.
func NewBinary(source, target string) (*Binary, error) {
	if source == "" {
		return nil, fmt.Errorf("binary artifact needs a source")
	}
	if target == "" {
		target = filepath.Base(source)
	}
	return &Binary{Source: source, Target: target}, nil
}

func (b *Binary) Kind() model.Kind { return model.KindBinary }
func (b *Binary) Key() string      { return b.Source + "->" + b.Target }
func (b *Binary) String() string   { return fmt.Sprintf("Binary '%s' -> '%s'", b.Source, b.Target) }

func (b *Binary) sourcePath(ac *Context) string {
	if filepath.IsAbs(b.Source) {
		return b.Source
	}
	return filepath.Join(ac.Cask.StagedPath(), b.Source)
}

func (b *Binary) targetPath(ac *Context) string {
	if filepath.IsAbs(b.Target) {
		return b.Target
	}
	return filepath.Join(ac.Dir(model.DirBinary), b.Target)
}

// Install symlinks the source and makes it executable.
func (b *Binary) Install(ctx context.Context, ac *Context) error {
	source, target := b.sourcePath(ac), b.targetPath(ac)

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("it seems the Binary source '%s' is not there", source)
	}
	if info.Mode().IsRegular() && info.Mode().Perm()&0o111 == 0 {
		if err := os.Chmod(source, info.Mode().Perm()|0o111); err != nil {
			return fmt.Errorf("could not make %s executable: %w", source, err)
		}
	}

	if link, err := os.Readlink(target); err == nil && link == source {
		return nil
	}
	if fsutil.Exists(target) {
		if !ac.Force {
			return fmt.Errorf("it seems there is already a Binary at '%s'", target)
		}
		if err := fsutil.Remove(ctx, ac.Runner, target); err != nil {
			return err
		}
	}

	if err := fsutil.MkdirAll(ctx, ac.Runner, filepath.Dir(target)); err != nil {
		return fmt.Errorf("could not create %s: %w", filepath.Dir(target), err)
	}
	logger.Info(fmt.Sprintf("Linking Binary '%s' to '%s'", filepath.Base(source), target), logger.Fields{"cask": ac.Cask.Token})
	return os.Symlink(source, target)
}

// Uninstall removes the link. Anything that is not a symlink is left alone.
func (b *Binary) Uninstall(ctx context.Context, ac *Context) error {
	target := b.targetPath(ac)
	info, err := os.Lstat(target)
	if err != nil {
		return nil
	}
	if info.Mode()&os.ModeSymlink == 0 {
		logger.Warn(fmt.Sprintf("'%s' is not a symlink; not removing", target), logger.Fields{"cask": ac.Cask.Token})
		return nil
	}
	logger.Info(fmt.Sprintf("Unlinking Binary '%s'", target), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.Remove(ctx, ac.Runner, target)
}
