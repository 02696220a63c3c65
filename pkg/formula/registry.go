// Package formula answers dependency and install-state questions about
// formulae by asking the brew command.
package formula

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
)

// DefaultBrew is used when no brew executable is configured.
const DefaultBrew = "brew"

type installedKeg struct {
	Version string `json:"version"`
}

type info struct {
	Name         string         `json:"name"`
	Dependencies []string       `json:"dependencies"`
	Installed    []installedKeg `json:"installed"`
	LinkedKeg    string         `json:"linked_keg"`
}

type infoDocument struct {
	Formulae []info `json:"formulae"`
}

// BrewRegistry reads formula information from `brew info --json=v2`. Answers
// are cached for the lifetime of the registry.
type BrewRegistry struct {
	runner command.Runner
	brew   string

	mu    sync.Mutex
	cache map[string]*info
}

// NewBrewRegistry returns a registry that runs brew through runner.
func NewBrewRegistry(runner command.Runner, brew string) *BrewRegistry {
	if brew == "" {
		brew = DefaultBrew
	}
	return &BrewRegistry{runner: runner, brew: brew, cache: make(map[string]*info)}
}

// Dependencies returns the direct dependencies of a formula.
func (r *BrewRegistry) Dependencies(ctx context.Context, name string) ([]string, error) {
	i, err := r.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return i.Dependencies, nil
}

// IsInstalled reports whether any version of the formula is installed.
func (r *BrewRegistry) IsInstalled(ctx context.Context, name string) bool {
	i, err := r.lookup(ctx, name)
	if err != nil {
		logger.Debug("Formula lookup failed", logger.Fields{"formula": name, "error": err})
		return false
	}
	return len(i.Installed) > 0
}

// IsLinked reports whether an installed version of the formula is the
// linked one.
func (r *BrewRegistry) IsLinked(ctx context.Context, name string) bool {
	i, err := r.lookup(ctx, name)
	if err != nil || i.LinkedKeg == "" {
		return false
	}
	for _, k := range i.Installed {
		if k.Version == i.LinkedKeg {
			return true
		}
	}
	return false
}

// Install installs formulae with brew.
func (r *BrewRegistry) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"install", "--formula"}, names...)
	if _, err := r.runner.Run(ctx, command.Cmd{Name: r.brew, Args: args, Env: []string{"HOMEBREW_NO_AUTO_UPDATE=1"}}); err != nil {
		return fmt.Errorf("could not install formulae %v: %w", names, err)
	}
	r.mu.Lock()
	for _, n := range names {
		delete(r.cache, n)
	}
	r.mu.Unlock()
	return nil
}

func (r *BrewRegistry) lookup(ctx context.Context, name string) (*info, error) {
	r.mu.Lock()
	if i, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return i, nil
	}
	r.mu.Unlock()

	res, err := r.runner.Run(ctx, command.Cmd{Name: r.brew, Args: []string{"info", "--json=v2", "--formula", name}})
	if err != nil {
		return nil, fmt.Errorf("brew info %s: %w", name, err)
	}
	var doc infoDocument
	if err := json.Unmarshal([]byte(res.Stdout), &doc); err != nil {
		return nil, fmt.Errorf("brew info %s: %w", name, err)
	}
	if len(doc.Formulae) == 0 {
		return nil, fmt.Errorf("no formula named '%s'", name)
	}

	i := &doc.Formulae[0]
	r.mu.Lock()
	r.cache[name] = i
	r.mu.Unlock()
	return i, nil
}
