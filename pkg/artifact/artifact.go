// Package artifact implements the handlers that activate and deactivate the
// artifacts of a cask. A handler advertises what it can do by implementing
// any of Installer, Uninstaller, PostUninstaller and Zapper.
package artifact

import (
	"context"

	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/hook"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// Installer activates an artifact.
type Installer interface {
	model.Artifact
	Install(ctx context.Context, ac *Context) error
}

// Uninstaller deactivates an artifact.
type Uninstaller interface {
	model.Artifact
	Uninstall(ctx context.Context, ac *Context) error
}

// PostUninstaller runs after every artifact of the cask was uninstalled.
type PostUninstaller interface {
	model.Artifact
	PostUninstall(ctx context.Context, ac *Context) error
}

// Zapper removes user data left behind by a cask.
type Zapper interface {
	model.Artifact
	Zap(ctx context.Context, ac *Context) error
}

// Context carries everything a handler needs for one operation.
type Context struct {
	Cask    *model.Cask
	Verbose bool
	// Force replaces existing targets and tolerates missing ones.
	Force bool
	// Adopt keeps an existing target in place of the staged copy.
	Adopt bool
	// Predecessor is the cask being replaced by an upgrade.
	Predecessor *model.Cask
	// Successor is the cask replacing this one during an upgrade.
	Successor *model.Cask
	Runner    command.Runner
	Scripts   hook.Executor
	// TrashDir receives paths of trash directives; deleted when empty.
	TrashDir string
	// HomeDir expands "~" in uninstall paths.
	HomeDir string
}

// Dir resolves a configured directory of the cask.
func (ac *Context) Dir(key string) string {
	return ac.Cask.Config.Dir(key)
}

func (ac *Context) hookContext(phase hook.Phase) *hook.Context {
	hc := &hook.Context{
		Token:      ac.Cask.Token,
		Version:    ac.Cask.Version,
		StagedPath: ac.Cask.StagedPath(),
		Phase:      phase,
		Dirs:       map[string]string{},
	}
	if ac.Predecessor != nil {
		hc.Predecessor = ac.Predecessor.Version
	}
	if ac.Successor != nil {
		hc.Successor = ac.Successor.Version
	}
	for _, key := range []string{model.DirApp, model.DirBinary, model.DirFont, model.DirService, model.DirPrefPane, model.DirQLPlugin} {
		hc.Dirs[key] = ac.Dir(key)
	}
	return hc
}
