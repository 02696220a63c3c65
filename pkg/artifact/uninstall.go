package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// ScriptDirective runs an executable as part of an uninstall or zap stanza.
type ScriptDirective struct {
	Executable string
	Args       []string
	Sudo       bool
}

// Directives is the body of an uninstall or zap stanza. They are always
// dispatched in the order of the fields below.
type Directives struct {
	LaunchCtl []string
	Quit      []string
	Script    *ScriptDirective
	PkgUtil   []string
	Delete    []string
	Trash     []string
	Rmdir     []string
}

func (d Directives) key() string {
	parts := []string{
		strings.Join(d.LaunchCtl, ","), strings.Join(d.Quit, ","),
		strings.Join(d.PkgUtil, ","), strings.Join(d.Delete, ","),
		strings.Join(d.Trash, ","), strings.Join(d.Rmdir, ","),
	}
	if d.Script != nil {
		parts = append(parts, d.Script.Executable, strings.Join(d.Script.Args, " "), strconv.FormatBool(d.Script.Sudo))
	}
	return strings.Join(parts, "|")
}

// Empty reports whether no directive is set.
func (d Directives) Empty() bool {
	return len(d.LaunchCtl) == 0 && len(d.Quit) == 0 && d.Script == nil && len(d.PkgUtil) == 0 &&
		len(d.Delete) == 0 && len(d.Trash) == 0 && len(d.Rmdir) == 0
}

// Uninstall is the uninstall stanza. Everything except rmdir runs in the
// uninstall phase; rmdir runs afterwards, once the other artifacts are gone.
type Uninstall struct {
	Directives
}

func (u *Uninstall) Kind() model.Kind { return model.KindUninstall }
func (u *Uninstall) Key() string      { return u.key() }
func (u *Uninstall) String() string   { return "uninstall stanza" }

// Uninstall dispatches every directive but rmdir.
func (u *Uninstall) Uninstall(ctx context.Context, ac *Context) error {
	keep := successorPaths(ac)
	d := u.Directives
	d.Rmdir = nil
	return dispatch(ctx, ac, d, keep)
}

// PostUninstall removes the directories listed under rmdir.
func (u *Uninstall) PostUninstall(ctx context.Context, ac *Context) error {
	return dispatch(ctx, ac, Directives{Rmdir: u.Rmdir}, successorPaths(ac))
}

// Zap is the zap stanza.
type Zap struct {
	Directives
}

func (z *Zap) Kind() model.Kind { return model.KindZap }
func (z *Zap) Key() string      { return z.key() }
func (z *Zap) String() string   { return "zap stanza" }

// Zap dispatches every directive.
func (z *Zap) Zap(ctx context.Context, ac *Context) error {
	return dispatch(ctx, ac, z.Directives, nil)
}

// successorPaths collects the paths the successor's uninstall stanza will
// handle itself; they must survive the upgrade.
func successorPaths(ac *Context) map[string]bool {
	if ac.Successor == nil {
		return nil
	}
	keep := map[string]bool{}
	for _, a := range ac.Successor.ArtifactsOfKind(model.KindUninstall) {
		u, ok := a.(*Uninstall)
		if !ok {
			continue
		}
		for _, p := range slices.Concat(u.Delete, u.Trash, u.Rmdir) {
			keep[p] = true
		}
	}
	return keep
}

func dispatch(ctx context.Context, ac *Context, d Directives, keep map[string]bool) error {
	for _, label := range d.LaunchCtl {
		if err := launchctl(ctx, ac, label); err != nil {
			return err
		}
	}
	for _, id := range d.Quit {
		quit(ctx, ac, id)
	}
	if d.Script != nil {
		if err := script(ctx, ac, d.Script); err != nil {
			return err
		}
	}
	for _, id := range d.PkgUtil {
		if err := pkgutil(ctx, ac, id); err != nil {
			return err
		}
	}

	kept := func(p string) bool {
		if keep[p] {
			logger.Debug("Keeping path used by the successor", logger.Fields{"cask": ac.Cask.Token, "path": p})
			return true
		}
		return false
	}
	for _, p := range d.Delete {
		if kept(p) {
			continue
		}
		if err := forEachPath(ac, p, func(path string) error { return remove(ctx, ac, path) }); err != nil {
			return err
		}
	}
	for _, p := range d.Trash {
		if kept(p) {
			continue
		}
		if err := forEachPath(ac, p, func(path string) error { return trash(ctx, ac, path) }); err != nil {
			return err
		}
	}
	for _, p := range d.Rmdir {
		if kept(p) {
			continue
		}
		if err := forEachPath(ac, p, func(path string) error { return rmdir(ctx, ac, path) }); err != nil {
			return err
		}
	}
	return nil
}

func launchctl(ctx context.Context, ac *Context, label string) error {
	for _, sudo := range []bool{false, true} {
		if _, err := ac.Runner.Run(ctx, command.Cmd{Name: "/bin/launchctl", Args: []string{"list", label}, Sudo: sudo}); err != nil {
			continue
		}
		logger.Info(fmt.Sprintf("Removing launchctl service %s", label), logger.Fields{"cask": ac.Cask.Token})
		if _, err := ac.Runner.Run(ctx, command.Cmd{Name: "/bin/launchctl", Args: []string{"remove", label}, Sudo: sudo}); err != nil {
			return fmt.Errorf("could not remove launchctl service %s: %w", label, err)
		}
	}

	plists := []string{
		filepath.Join(ac.HomeDir, "Library", "LaunchAgents", label+".plist"),
		filepath.Join("/Library/LaunchAgents", label+".plist"),
		filepath.Join("/Library/LaunchDaemons", label+".plist"),
	}
	for _, p := range plists {
		if !fsutil.Exists(p) {
			continue
		}
		if err := fsutil.Remove(ctx, ac.Runner, p); err != nil {
			return fmt.Errorf("could not remove %s: %w", p, err)
		}
	}
	return nil
}

// quit asks a running application to quit. Failures are only reported.
func quit(ctx context.Context, ac *Context, bundleID string) {
	if runtime.GOOS != "darwin" {
		return
	}
	res, err := ac.Runner.Run(ctx, command.Cmd{
		Name: "/usr/bin/osascript",
		Args: []string{"-e", fmt.Sprintf(`application id %q is running`, bundleID)},
	})
	if err != nil || strings.TrimSpace(res.Stdout) != "true" {
		return
	}
	logger.Info(fmt.Sprintf("Quitting application '%s'", bundleID), logger.Fields{"cask": ac.Cask.Token})
	if _, err := ac.Runner.Run(ctx, command.Cmd{
		Name: "/usr/bin/osascript",
		Args: []string{"-e", fmt.Sprintf(`tell application id %q to quit`, bundleID)},
	}); err != nil {
		logger.Warn(fmt.Sprintf("Application '%s' did not quit", bundleID), logger.Fields{"error": err.Error()})
	}
}

func script(ctx context.Context, ac *Context, s *ScriptDirective) error {
	executable := s.Executable
	if !filepath.IsAbs(executable) {
		executable = filepath.Join(ac.Cask.StagedPath(), executable)
	}
	logger.Info(fmt.Sprintf("Running uninstall script %s", filepath.Base(executable)), logger.Fields{"cask": ac.Cask.Token})
	_, err := ac.Runner.Run(ctx, command.Cmd{Name: executable, Args: s.Args, Sudo: s.Sudo})
	return err
}

func pkgutil(ctx context.Context, ac *Context, pattern string) error {
	res, err := ac.Runner.Run(ctx, command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--pkgs=" + pattern}})
	if err != nil {
		// no receipts match
		return nil
	}
	for _, id := range command.Lines(res.Stdout) {
		logger.Info(fmt.Sprintf("Uninstalling packages with pkgutil matching %s: %s", pattern, id), logger.Fields{"cask": ac.Cask.Token})
		if err := forgetPackage(ctx, ac, id); err != nil {
			return err
		}
	}
	return nil
}

func forgetPackage(ctx context.Context, ac *Context, id string) error {
	files, err := ac.Runner.Run(ctx, command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--only-files", "--files", id}})
	if err != nil {
		return fmt.Errorf("could not list files of %s: %w", id, err)
	}
	var paths []string
	for _, rel := range command.Lines(files.Stdout) {
		paths = append(paths, filepath.Join("/", rel))
	}
	for start := 0; start < len(paths); start += 500 {
		end := min(start+500, len(paths))
		args := append([]string{"-f", "--"}, paths[start:end]...)
		if _, err := ac.Runner.Run(ctx, command.Cmd{Name: "/bin/rm", Args: args, Sudo: true}); err != nil {
			return fmt.Errorf("could not remove files of %s: %w", id, err)
		}
	}

	dirs, err := ac.Runner.Run(ctx, command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--only-dirs", "--files", id}})
	if err == nil {
		rels := command.Lines(dirs.Stdout)
		// deepest first so parents can become empty
		slices.SortFunc(rels, func(a, b string) int { return strings.Count(b, "/") - strings.Count(a, "/") })
		for _, rel := range rels {
			dir := filepath.Join("/", rel)
			if isProtected(dir, ac.HomeDir) {
				continue
			}
			_, _ = ac.Runner.Run(ctx, command.Cmd{Name: "/bin/rmdir", Args: []string{"--", dir}, Sudo: true})
		}
	}

	if _, err := ac.Runner.Run(ctx, command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--forget", id}, Sudo: true}); err != nil {
		return fmt.Errorf("could not forget %s: %w", id, err)
	}
	return nil
}

// forEachPath expands "~" and glob patterns and calls fn for every match.
func forEachPath(ac *Context, pattern string, fn func(string) error) error {
	expanded := pattern
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		expanded = filepath.Join(ac.HomeDir, strings.TrimPrefix(expanded, "~"))
	}
	if !filepath.IsAbs(expanded) {
		return fmt.Errorf("uninstall path '%s' is not absolute", pattern)
	}
	expanded = filepath.Clean(expanded)

	matches := []string{expanded}
	if strings.ContainsAny(expanded, "*?[") {
		var err error
		if matches, err = filepath.Glob(expanded); err != nil {
			return fmt.Errorf("invalid uninstall pattern '%s': %w", pattern, err)
		}
	}
	for _, m := range matches {
		if isProtected(m, ac.HomeDir) {
			logger.Warn(fmt.Sprintf("Refusing to remove protected path '%s'", m), logger.Fields{"cask": ac.Cask.Token})
			continue
		}
		if _, err := os.Lstat(m); err != nil {
			continue
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func isProtected(path, home string) bool {
	protected := []string{
		"/", "/Applications", "/Library", "/System", "/Users", "/Volumes", "/bin", "/etc",
		"/private", "/sbin", "/tmp", "/usr", "/usr/local", "/usr/local/bin", "/var",
	}
	if home != "" {
		protected = append(protected, home,
			filepath.Join(home, "Applications"), filepath.Join(home, "Desktop"),
			filepath.Join(home, "Documents"), filepath.Join(home, "Downloads"),
			filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support"),
			filepath.Join(home, "Library", "Caches"), filepath.Join(home, "Library", "Preferences"))
	}
	return slices.Contains(protected, filepath.Clean(path))
}

func remove(ctx context.Context, ac *Context, path string) error {
	logger.Info(fmt.Sprintf("Removing files: %s", path), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.RemoveAll(ctx, ac.Runner, path)
}

func trash(ctx context.Context, ac *Context, path string) error {
	if ac.TrashDir == "" {
		return remove(ctx, ac, path)
	}
	if err := os.MkdirAll(ac.TrashDir, fsutil.DirModeDefault); err != nil {
		return err
	}
	dest := filepath.Join(ac.TrashDir, filepath.Base(path))
	for i := 2; fsutil.Exists(dest); i++ {
		dest = filepath.Join(ac.TrashDir, fmt.Sprintf("%s %d", filepath.Base(path), i))
	}
	logger.Info(fmt.Sprintf("Trashing files: %s", path), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.Rename(ctx, ac.Runner, path, dest)
}

func rmdir(ctx context.Context, ac *Context, path string) error {
	if !fsutil.IsDir(path) {
		return nil
	}
	_ = fsutil.Remove(ctx, ac.Runner, filepath.Join(path, ".DS_Store"))
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) > 0 {
		logger.Debug("Directory not empty; keeping it", logger.Fields{"path": path})
		return nil
	}
	logger.Info(fmt.Sprintf("Removing directory if empty: %s", path), logger.Fields{"cask": ac.Cask.Token})
	return fsutil.Remove(ctx, ac.Runner, path)
}
