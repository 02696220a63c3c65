//go:generate mockgen -destination=./mocks/formulae.go . Formulae

package installer

import (
	"context"
	"time"

	"github.com/glorpus-work/brewcask/pkg/analytics"
	"github.com/glorpus-work/brewcask/pkg/caskroom"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/definition"
	"github.com/glorpus-work/brewcask/pkg/depgraph"
	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/hook"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/platform"
	"github.com/glorpus-work/brewcask/pkg/staging"
)

// Formulae installs formula dependencies.
type Formulae interface {
	depgraph.FormulaRegistry
	Install(ctx context.Context, names ...string) error
}

// Session holds the collaborators shared by every transaction of one
// invocation. The dependency graph is built once per session.
type Session struct {
	Store     *caskroom.Store
	Loader    definition.Loader
	Downloads download.Manager
	Extractor staging.Extractor
	Formulae  Formulae
	Runner    command.Runner
	Scripts   hook.Executor
	Analytics analytics.Reporter
	Platform  platform.Platform

	// CacheDir receives downloads; it must be absolute.
	CacheDir        string
	DownloadTimeout time.Duration
	// GitHubToken is sent with downloads from GitHub.
	GitHubToken string
	TrashDir    string
	HomeDir     string
	// Hooks.OnEvent may be called from several goroutines while
	// downloads are prefetched.
	Hooks Hooks

	graph *depgraph.Graph
}

// New returns an installer for c.
func (s *Session) New(c *model.Cask, opts Options) *Installer {
	return &Installer{s: s, cask: c, opts: opts}
}

// Load implements depgraph.CaskResolver.
func (s *Session) Load(token string) (*model.Cask, error) {
	return s.Loader.Load(token, nil)
}

// IsInstalled implements depgraph.CaskResolver.
func (s *Session) IsInstalled(token string) bool {
	return s.Store.IsInstalled(token)
}

// Graph returns the dependency graph of the session.
func (s *Session) Graph() *depgraph.Graph {
	if s.graph == nil {
		s.graph = depgraph.New(s, s.Formulae)
	}
	return s.graph
}

// LoadInstalled evaluates the definition token was installed from, with the
// config it was installed with.
func (s *Session) LoadInstalled(token string) (*model.Cask, error) {
	version, ok := s.Store.InstalledVersion(token)
	if !ok {
		return nil, &errors.NotInstalledError{Token: token}
	}
	snapshot, err := s.Store.LatestSnapshot(token, version)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Store.LoadConfig(token)
	if err != nil {
		return nil, err
	}
	return s.Loader.LoadInstalled(snapshot, cfg)
}

func (s *Session) analytics() analytics.Reporter {
	if s.Analytics == nil {
		return analytics.Noop{}
	}
	return s.Analytics
}
