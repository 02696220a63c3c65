//go:generate mockgen -destination=./mocks/loader.go . Loader

package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/platform"
)

// Loader resolves cask references into evaluated casks.
type Loader interface {
	// Load resolves a token, a qualified "tap/token" or a path to a definition file.
	Load(ref string, cfg *model.Config) (*model.Cask, error)
	// LoadInstalled evaluates a definition snapshot written at install time.
	LoadInstalled(path string, cfg *model.Config) (*model.Cask, error)
	// Reevaluate evaluates the source of cask again with another config.
	Reevaluate(cask *model.Cask, cfg *model.Config) (*model.Cask, error)
}

var extensions = []string{".yaml", ".yml", ".json"}

// FileLoader reads definitions from tap directories laid out as
// <taps>/<tap>/Casks/<token>.{yaml,yml,json}.
type FileLoader struct {
	tapsDir  string
	caskroom string
	platform platform.Platform
	defaults map[string]string
}

// NewFileLoader returns a loader over tapsDir. Casks it returns are staged
// under caskroom; defaults seeds the config of callers that pass none.
func NewFileLoader(tapsDir, caskroom string, p platform.Platform, defaults map[string]string) *FileLoader {
	return &FileLoader{tapsDir: tapsDir, caskroom: caskroom, platform: p, defaults: defaults}
}

// Load implements Loader.
func (l *FileLoader) Load(ref string, cfg *model.Config) (*model.Cask, error) {
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	return l.loadFile(path, tokenOf(path), cfg)
}

// LoadInstalled implements Loader.
func (l *FileLoader) LoadInstalled(path string, cfg *model.Config) (*model.Cask, error) {
	return l.loadFile(path, tokenOf(path), cfg)
}

// Reevaluate implements Loader.
func (l *FileLoader) Reevaluate(cask *model.Cask, cfg *model.Config) (*model.Cask, error) {
	def, err := Parse(cask.Source, cask.SourceFormat, cask.Token)
	if err != nil {
		return nil, err
	}
	def.Path = cask.SourcePath
	return l.evaluate(def, cfg)
}

func (l *FileLoader) loadFile(path, token string, cfg *model.Config) (*model.Cask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.UnavailableError{Token: token, Reason: fmt.Sprintf("'%s' does not exist", path)}
		}
		return nil, &errors.UnreadableError{Token: token, Err: err}
	}
	def, err := Parse(data, formatOf(path), token)
	if err != nil {
		return nil, err
	}
	def.Path = path
	return l.evaluate(def, cfg)
}

func (l *FileLoader) evaluate(def *Definition, cfg *model.Config) (*model.Cask, error) {
	if cfg == nil {
		cfg = model.NewConfig(l.defaults)
	}
	c, err := Evaluate(def, cfg, l.platform)
	if err != nil {
		return nil, err
	}
	c.Caskroom = l.caskroom
	return c, nil
}

// resolve maps a reference to a definition file.
func (l *FileLoader) resolve(ref string) (string, error) {
	if hasDefinitionExt(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", &errors.UnavailableError{Token: tokenOf(ref), Reason: fmt.Sprintf("'%s' does not exist", ref)}
		}
		return ref, nil
	}

	if tap, token, ok := splitQualified(ref); ok {
		if path, found := findIn(filepath.Join(l.tapsDir, tap, "Casks"), token); found {
			return path, nil
		}
		return "", &errors.UnavailableError{Token: ref, Reason: fmt.Sprintf("no such cask in tap '%s'", tap)}
	}

	taps, err := l.taps()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, tap := range taps {
		if path, found := findIn(filepath.Join(l.tapsDir, tap, "Casks"), ref); found {
			matches = append(matches, path)
		}
	}
	if len(matches) > 1 {
		logger.Warn("Cask found in multiple taps, using the first", logger.Fields{"token": ref, "paths": matches})
	}
	if len(matches) > 0 {
		return matches[0], nil
	}

	if path, found := l.findRenamed(taps, ref); found {
		logger.Info("Cask was renamed", logger.Fields{"old": ref, "new": tokenOf(path)})
		return path, nil
	}
	return "", &errors.UnavailableError{Token: ref}
}

// findRenamed scans the taps for a definition listing ref in old_tokens.
func (l *FileLoader) findRenamed(taps []string, ref string) (string, bool) {
	for _, tap := range taps {
		dir := filepath.Join(l.tapsDir, tap, "Casks")
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !hasDefinitionExt(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			def, err := Parse(data, formatOf(path), tokenOf(path))
			if err != nil {
				continue
			}
			for _, old := range def.OldTokens {
				if old == ref {
					return path, true
				}
			}
		}
	}
	return "", false
}

// taps lists tap directories in name order; a qualified tap such as
// "homebrew/cask" is two levels deep.
func (l *FileLoader) taps() ([]string, error) {
	var taps []string
	err := filepath.WalkDir(l.tapsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == l.tapsDir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() && d.Name() == "Casks" {
			rel, relErr := filepath.Rel(l.tapsDir, filepath.Dir(path))
			if relErr != nil {
				return relErr
			}
			taps = append(taps, filepath.ToSlash(rel))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not list taps")
	}
	sort.Strings(taps)
	return taps, nil
}

func findIn(dir, token string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, token+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func splitQualified(ref string) (string, string, bool) {
	i := strings.LastIndex(ref, "/")
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}

func hasDefinitionExt(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func tokenOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatOf(path string) string {
	if filepath.Ext(path) == ".json" {
		return model.FormatJSON
	}
	return model.FormatYAML
}
