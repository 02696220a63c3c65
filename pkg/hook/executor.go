//go:generate mockgen -destination=./mocks/executor.go . Executor

// Package hook runs the scripted blocks of a cask (preflight, postflight and
// their uninstall counterparts) as Tengo programs.
package hook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/errors"
)

// Phase names the lifecycle point a script runs at.
type Phase string

// Script phases.
const (
	PhasePreflight           Phase = "preflight"
	PhasePostflight          Phase = "postflight"
	PhaseUninstallPreflight  Phase = "uninstall_preflight"
	PhaseUninstallPostflight Phase = "uninstall_postflight"
)

// Context is exposed to scripts as the "cask" and "dirs" modules.
type Context struct {
	Token      string
	Version    string
	StagedPath string
	Phase      Phase
	// Predecessor is the version being replaced during an upgrade.
	Predecessor string
	// Successor is the version about to replace this one during an upgrade.
	Successor string
	Dirs      map[string]string
}

// Executor runs a script body.
type Executor interface {
	Execute(ctx context.Context, script string, hc *Context) error
}

// TengoExecutor is the default Executor.
type TengoExecutor struct{}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{}
}

// Execute runs script. A single-line script ending in ".tengo" is read from
// the staged path instead of being run inline. A script that sets a
// non-empty "err" variable fails.
func (e *TengoExecutor) Execute(ctx context.Context, script string, hc *Context) error {
	body, err := e.resolve(script, hc)
	if err != nil {
		return err
	}

	logger.Debug("Executing script block", logger.Fields{
		"token": hc.Token,
		"phase": string(hc.Phase),
	})

	moduleMap := stdlib.GetModuleMap(stdlib.AllModuleNames()...)
	setupModules(moduleMap, hc)

	s := tengo.NewScript(body)
	s.SetImports(moduleMap)
	if err := s.Add("err", ""); err != nil {
		return errors.Wrap(err, "failed to declare err variable")
	}

	compiled, err := s.RunContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "%s script failed for %s", hc.Phase, hc.Token)
	}

	if v := compiled.Get("err"); v != nil {
		if msg, ok := v.Value().(string); ok && msg != "" {
			return errors.Wrapf(errors.ErrHookScript, "%s script for %s: %s", hc.Phase, hc.Token, msg)
		}
	}
	return nil
}

func (e *TengoExecutor) resolve(script string, hc *Context) ([]byte, error) {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return nil, errors.Wrapf(errors.ErrHookScript, "empty %s script for %s", hc.Phase, hc.Token)
	}
	if strings.ContainsRune(trimmed, '\n') || !strings.HasSuffix(trimmed, ".tengo") {
		return []byte(script), nil
	}

	path := trimmed
	if !filepath.IsAbs(path) {
		path = filepath.Join(hc.StagedPath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return data, nil
}

func setupModules(moduleMap *tengo.ModuleMap, hc *Context) {
	moduleMap.AddBuiltinModule("cask", map[string]tengo.Object{
		"token":       &tengo.String{Value: hc.Token},
		"version":     &tengo.String{Value: hc.Version},
		"staged_path": &tengo.String{Value: hc.StagedPath},
		"phase":       &tengo.String{Value: string(hc.Phase)},
		"predecessor": &tengo.String{Value: hc.Predecessor},
		"successor":   &tengo.String{Value: hc.Successor},
	})

	dirs := make(map[string]tengo.Object, len(hc.Dirs))
	for k, v := range hc.Dirs {
		dirs[k] = &tengo.String{Value: v}
	}
	moduleMap.AddBuiltinModule("dirs", dirs)
}
