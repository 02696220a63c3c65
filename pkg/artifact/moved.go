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

var movedDirs = map[model.Kind]string{
	model.KindApp:      model.DirApp,
	model.KindSuite:    model.DirApp,
	model.KindPrefPane: model.DirPrefPane,
	model.KindQLPlugin: model.DirQLPlugin,
	model.KindFont:     model.DirFont,
	model.KindService:  model.DirService,
}

var movedNames = map[model.Kind]string{
	model.KindApp:      "App",
	model.KindSuite:    "Suite",
	model.KindPrefPane: "Preference Pane",
	model.KindQLPlugin: "QuickLook Plugin",
	model.KindFont:     "Font",
	model.KindService:  "Service",
}

// Moved is an artifact that is moved out of the staged path into a
// configured directory: apps, suites, preference panes, QuickLook plugins,
// fonts and services.
type Moved struct {
	kind   model.Kind
	Source string
	// Target is relative to the configured directory unless absolute.
	Target string
}

// NewMoved returns a Moved artifact of kind. An empty target defaults to
// the base name of source.
func NewMoved(kind model.Kind, source, target string) (*Moved, error) {
	if _, ok := movedDirs[kind]; !ok {
		return nil, fmt.Errorf("%s artifacts cannot be moved", kind)
	}
	if source == "" {
		return nil, fmt.Errorf("%s artifact needs a source", kind)
	}
	if target == "" {
		target = filepath.Base(source)
	}
	return &Moved{kind: kind, Source: source, Target: target}, nil
}

func (m *Moved) Kind() model.Kind { return m.kind }
func (m *Moved) Key() string      { return m.Source + "->" + m.Target }

func (m *Moved) String() string {
	return fmt.Sprintf("%s '%s' -> '%s'", movedNames[m.kind], m.Source, m.Target)
}

// SourcePath is the location of the artifact inside the staged path.
func (m *Moved) SourcePath(ac *Context) string {
	if filepath.IsAbs(m.Source) {
		return m.Source
	}
	return filepath.Join(ac.Cask.StagedPath(), m.Source)
}

// TargetPath is the activated location of the artifact.
func (m *Moved) TargetPath(ac *Context) string {
	if filepath.IsAbs(m.Target) {
		return m.Target
	}
	return filepath.Join(ac.Dir(movedDirs[m.kind]), m.Target)
}

// Install moves the staged artifact to its target.
func (m *Moved) Install(ctx context.Context, ac *Context) error {
	source, target := m.SourcePath(ac), m.TargetPath(ac)
	name := movedNames[m.kind]

	if !fsutil.Exists(source) {
		return fmt.Errorf("it seems the %s source '%s' is not there", name, source)
	}

	if fsutil.Exists(target) {
		switch {
		case ac.Adopt:
			logger.Info(fmt.Sprintf("Adopting existing %s at '%s'", name, target), logger.Fields{"cask": ac.Cask.Token})
			return fsutil.RemoveAll(ctx, ac.Runner, source)
		case ac.Force:
			logger.Warn(fmt.Sprintf("It seems there is already a %s at '%s'; overwriting", name, target), logger.Fields{"cask": ac.Cask.Token})
			if err := fsutil.RemoveAll(ctx, ac.Runner, target); err != nil {
				return fmt.Errorf("could not remove existing %s '%s': %w", name, target, err)
			}
		default:
			return fmt.Errorf("it seems there is already a %s at '%s'", name, target)
		}
	}

	if err := fsutil.MkdirAll(ctx, ac.Runner, filepath.Dir(target)); err != nil {
		return fmt.Errorf("could not create %s: %w", filepath.Dir(target), err)
	}
	logger.Info(fmt.Sprintf("Moving %s '%s' to '%s'", name, filepath.Base(source), target), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.Rename(ctx, ac.Runner, source, target)
}

// Uninstall moves the artifact back into the staged path so a later restore
// finds it there. Without a staged path the target is deleted.
func (m *Moved) Uninstall(ctx context.Context, ac *Context) error {
	source, target := m.SourcePath(ac), m.TargetPath(ac)
	name := movedNames[m.kind]

	if _, err := os.Lstat(target); err != nil {
		logger.Warn(fmt.Sprintf("It seems the %s '%s' is already gone", name, target), logger.Fields{"cask": ac.Cask.Token})
		return nil
	}

	if !fsutil.IsDir(ac.Cask.StagedPath()) {
		logger.Info(fmt.Sprintf("Removing %s '%s'", name, target), logger.Fields{"cask": ac.Cask.Token})
		return fsutil.RemoveAll(ctx, ac.Runner, target)
	}

	if fsutil.Exists(source) {
		if !ac.Force {
			return fmt.Errorf("it seems there is already a %s at '%s'", name, source)
		}
		if err := fsutil.RemoveAll(ctx, ac.Runner, source); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(source), fsutil.DirModeDefault); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Moving %s '%s' back to '%s'", name, filepath.Base(target), source), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.Rename(ctx, ac.Runner, target, source)
}
