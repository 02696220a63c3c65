// Package installer implements the install, uninstall, zap and upgrade
// transactions of a single cask. Every transaction that fails part way
// leaves the caskroom and the activated artifacts as they were before it
// started.
package installer

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/analytics"
	"github.com/glorpus-work/brewcask/pkg/artifact"
	"github.com/glorpus-work/brewcask/pkg/auth"
	"github.com/glorpus-work/brewcask/pkg/depgraph"
	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/staging"
)

// Installer runs the transactions of one cask.
type Installer struct {
	s     *Session
	cask  *model.Cask
	opts  Options
	state State

	downloadPath string
}

// Cask returns the cask the installer operates on. It changes when the
// config is merged during Install.
func (i *Installer) Cask() *model.Cask { return i.cask }

// State returns how far the install got.
func (i *Installer) State() State { return i.state }

// DownloadPath returns the fetched container, or "" before Fetch.
func (i *Installer) DownloadPath() string { return i.downloadPath }

func (i *Installer) emit(phase, msg string) {
	emit(i.s.Hooks, Event{Phase: phase, Token: i.cask.Token, Msg: msg})
}

func (i *Installer) artifactContext(c, predecessor, successor *model.Cask) *artifact.Context {
	return &artifact.Context{
		Cask:        c,
		Verbose:     i.opts.Verbose,
		Force:       i.opts.Force,
		Adopt:       i.opts.Adopt,
		Predecessor: predecessor,
		Successor:   successor,
		Runner:      i.s.Runner,
		Scripts:     i.s.Scripts,
		TrashDir:    i.s.TrashDir,
		HomeDir:     i.s.HomeDir,
	}
}

// Fetch checks the checksum policy and the host requirements, downloads the
// container and installs missing dependencies.
func (i *Installer) Fetch(ctx context.Context) error {
	if i.opts.RequireSHA && i.cask.NoCheck() && !i.opts.Force {
		return &errors.NoShasumError{Token: i.cask.Token}
	}
	if err := i.checkRequirements(); err != nil {
		return err
	}
	if _, err := i.Download(ctx); err != nil {
		return err
	}

	if !i.opts.InstalledAsDependency && !i.opts.SkipCaskDeps {
		if err := i.installDependencies(ctx); err != nil {
			return err
		}
	}
	i.state = StateFetched
	return nil
}

func (i *Installer) checkRequirements() error {
	dep := i.cask.DependsOn
	if dep.MacOS != "" {
		ok, err := i.s.Platform.SatisfiesMacOS(dep.MacOS)
		if err != nil {
			return &errors.RequirementError{Token: i.cask.Token, Requirement: fmt.Sprintf("macOS %s (%v)", dep.MacOS, err)}
		}
		if !ok {
			return &errors.RequirementError{Token: i.cask.Token, Requirement: "macOS " + dep.MacOS}
		}
	}
	if !i.s.Platform.MatchesArch(dep.Arch) {
		return &errors.RequirementError{
			Token:       i.cask.Token,
			Requirement: fmt.Sprintf("architecture %s, but this host is %s", errors.ToSentence(dep.Arch), i.s.Platform.Arch),
		}
	}
	return nil
}

// Download fetches the container into the cache without touching the
// caskroom. Casks without a checksum are refused when RequireSHA is set.
func (i *Installer) Download(ctx context.Context) (string, error) {
	c := i.cask
	if i.opts.RequireSHA && c.NoCheck() && !i.opts.Force {
		return "", &errors.NoShasumError{Token: c.Token}
	}
	i.emit(PhaseFetching, c.URL)
	path, err := i.download(ctx)
	if err != nil {
		return "", err
	}
	i.downloadPath = path
	return path, nil
}

func (i *Installer) download(ctx context.Context) (string, error) {
	c := i.cask
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" {
		return "", &errors.DownloadError{Token: c.Token, Err: fmt.Errorf("invalid url %q", c.URL)}
	}
	item := download.Item{ID: c.Token, URL: u, Auth: auth.ForURL(u, c.URLHeaders, i.s.GitHubToken)}
	if !c.NoCheck() {
		item.Checksum = c.SHA256
	}
	// "latest" casks publish new builds under the same URL.
	opts := download.Options{Dir: i.s.CacheDir, Timeout: i.s.DownloadTimeout, Force: c.IsLatest() || i.opts.Force}

	path, err := i.s.Downloads.Fetch(ctx, item, opts)
	if err != nil {
		if errors.Is(err, errors.ErrDownloadTimeout) {
			return "", &errors.DownloadTimeoutError{Token: c.Token, Err: err}
		}
		return "", &errors.DownloadError{Token: c.Token, Err: err}
	}
	return path, nil
}

func (i *Installer) installDependencies(ctx context.Context) error {
	if !i.cask.HasDependencies() {
		return nil
	}
	graph := i.s.Graph()
	nodes, err := graph.Resolve(ctx, i.cask)
	if err != nil {
		return err
	}
	missing := graph.Missing(ctx, nodes)
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for _, n := range missing {
		names = append(names, n.Name)
	}
	i.emit(PhaseDependencies, errors.ToSentence(names))
	logger.Info("Installing dependencies", logger.Fields{"cask": i.cask.Token, "dependencies": names})

	for _, n := range missing {
		switch n.Kind {
		case depgraph.NodeFormula:
			if err := i.s.Formulae.Install(ctx, n.Name); err != nil {
				return fmt.Errorf("dependency of '%s': %w", i.cask.Token, err)
			}
		case depgraph.NodeCask:
			dep := i.s.New(n.Cask, Options{
				Verbose:               i.opts.Verbose,
				RequireSHA:            i.opts.RequireSHA,
				Quarantine:            i.opts.Quarantine,
				NoBinaries:            i.opts.NoBinaries,
				InstalledAsDependency: true,
			})
			if err := dep.Install(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckConflicts fails when a cask listed in conflicts_with is installed.
// Tokens that do not resolve are ignored.
func (i *Installer) CheckConflicts() error {
	for _, token := range i.cask.ConflictsWith.Casks {
		other, err := i.s.Loader.Load(token, nil)
		if err != nil {
			logger.Debug("Ignoring unresolvable conflict", logger.Fields{"cask": i.cask.Token, "conflict": token, "error": err})
			continue
		}
		if i.s.Store.IsInstalled(other.Token) {
			return &errors.ConflictError{Token: i.cask.Token, Conflicting: other.Token}
		}
	}
	return nil
}

// Stage unpacks the download into the staged path and snapshots the
// definition. Versioned files are purged on failure.
func (i *Installer) Stage(ctx context.Context) error {
	c := i.cask
	i.emit(PhaseStaging, c.StagedPath())
	err := i.stage(ctx)
	if err != nil {
		if purgeErr := i.PurgeVersionedFiles(ctx); purgeErr != nil {
			logger.Error("Could not clean up after failed staging", logger.Fields{"cask": c.Token, "error": purgeErr})
		}
		return err
	}
	i.state = StateStaged
	return nil
}

func (i *Installer) stage(ctx context.Context) error {
	c := i.cask
	if err := i.s.Store.EnsureRoot(ctx); err != nil {
		return err
	}
	if i.downloadPath == "" {
		return fmt.Errorf("cask '%s' was not fetched", c.Token)
	}
	if err := i.s.Extractor.Extract(ctx, i.downloadPath, c.StagedPath(), c, staging.Options{Quarantine: i.opts.Quarantine}); err != nil {
		return err
	}
	if _, err := i.s.Store.WriteSnapshot(c.Token, c.Version, c.Source, c.SourceFormat); err != nil {
		return errors.Wrapf(err, "could not save definition of '%s'", c.Token)
	}
	return nil
}

// InstallArtifacts activates the artifacts in order. When one fails, those
// already activated are deactivated in reverse order, versioned files are
// purged and the original error is returned.
func (i *Installer) InstallArtifacts(ctx context.Context, predecessor *model.Cask) error {
	c := i.cask
	ac := i.artifactContext(c, predecessor, nil)
	var installed []artifact.Installer

	fail := func(err error) error {
		i.rollback(ctx, ac, installed)
		if purgeErr := i.PurgeVersionedFiles(ctx); purgeErr != nil {
			logger.Error("Could not clean up after failed install", logger.Fields{"cask": c.Token, "error": purgeErr})
		}
		i.state = StateCreated
		return err
	}

	for _, a := range c.Artifacts.All() {
		inst, ok := a.(artifact.Installer)
		if !ok {
			continue
		}
		if i.opts.NoBinaries && a.Kind() == model.KindBinary {
			logger.Debug("Skipping binary", logger.Fields{"cask": c.Token, "artifact": a.String()})
			continue
		}
		i.emit(PhaseInstalling, a.String())
		if err := inst.Install(ctx, ac); err != nil {
			return fail(&errors.ArtifactError{Token: c.Token, Artifact: a.String(), Err: err})
		}
		installed = append(installed, inst)
	}

	if err := i.persist(); err != nil {
		return fail(err)
	}
	i.state = StateArtifactsInstalled
	return nil
}

// persist records the install config and, for latest casks, the checksum
// of the download.
func (i *Installer) persist() error {
	c := i.cask
	if err := i.s.Store.SaveConfig(c.Token, c.Config); err != nil {
		return errors.Wrapf(err, "could not save config of '%s'", c.Token)
	}
	if !c.IsLatest() || i.downloadPath == "" {
		return nil
	}
	sha, err := download.SHA256File(i.downloadPath)
	if err != nil {
		return err
	}
	if err := i.s.Store.SaveDownloadSHA(c.Token, sha); err != nil {
		return errors.Wrapf(err, "could not save download checksum of '%s'", c.Token)
	}
	return nil
}

// rollback deactivates installed artifacts, most recent first. Failures are
// logged; the caller returns the error that caused the rollback.
func (i *Installer) rollback(ctx context.Context, ac *artifact.Context, installed []artifact.Installer) {
	if len(installed) == 0 {
		return
	}
	i.emit(PhaseRollback, fmt.Sprintf("reverting %d artifact(s)", len(installed)))
	for _, a := range slices.Backward(installed) {
		if u, ok := a.(artifact.Uninstaller); ok {
			if err := u.Uninstall(ctx, ac); err != nil {
				logger.Error("Rollback failed", logger.Fields{"cask": i.cask.Token, "artifact": a.String(), "error": err})
			}
		}
		if p, ok := a.(artifact.PostUninstaller); ok {
			if err := p.PostUninstall(ctx, ac); err != nil {
				logger.Error("Rollback failed", logger.Fields{"cask": i.cask.Token, "artifact": a.String(), "error": err})
			}
		}
	}
}

// Install runs the whole install transaction.
func (i *Installer) Install(ctx context.Context) (err error) {
	store := i.s.Store
	token := i.cask.Token

	i.migrateOldTokens(ctx)
	if pending := store.PendingBackups(token); len(pending) > 0 {
		return fmt.Errorf("cask '%s' %s: %w; run 'brewcask recover' first", token, pending[0], errors.ErrPendingBackup)
	}
	oldConfig, err := store.LoadConfig(token)
	if err != nil {
		logger.Warn("Ignoring unreadable config", logger.Fields{"cask": token, "error": err})
		oldConfig = nil
	}
	if store.IsInstalled(token) && !i.opts.Force && !i.opts.Reinstall && !i.opts.Upgrade {
		return &errors.AlreadyInstalledError{Token: token}
	}

	if err := i.CheckConflicts(); err != nil {
		return err
	}
	i.printCaveats()
	if err := i.Fetch(ctx); err != nil {
		return err
	}

	if i.opts.Reinstall && store.IsInstalled(token) {
		if err := i.uninstallExisting(ctx); err != nil {
			return err
		}
	}

	backedUp := false
	if i.opts.Force && fsutil.IsDir(i.cask.StagedPath()) && fsutil.IsDir(store.MetadataVersionPath(token, i.cask.Version)) {
		if err := store.Backup(ctx, token, i.cask.Version); err != nil {
			return err
		}
		backedUp = true
	}
	defer func() {
		if !backedUp {
			return
		}
		if err != nil {
			if restoreErr := store.Restore(ctx, token, i.cask.Version); restoreErr != nil {
				logger.Error("Could not restore backup", logger.Fields{"cask": token, "error": restoreErr})
			}
			return
		}
		if purgeErr := store.PurgeBackup(ctx, token, i.cask.Version); purgeErr != nil {
			logger.Warn("Could not remove backup", logger.Fields{"cask": token, "error": purgeErr})
		}
	}()

	if err := i.Stage(ctx); err != nil {
		return err
	}

	merged, err := i.s.Loader.Reevaluate(i.cask, i.cask.Config.Merge(oldConfig))
	if err != nil {
		if purgeErr := i.PurgeVersionedFiles(ctx); purgeErr != nil {
			logger.Error("Could not clean up after failed install", logger.Fields{"cask": token, "error": purgeErr})
		}
		return err
	}
	i.cask = merged

	if err := i.InstallArtifacts(ctx, nil); err != nil {
		return err
	}

	i.s.analytics().Report(analytics.Event{
		Name:      analytics.EventInstall,
		Token:     token,
		Version:   i.cask.Version,
		OnRequest: !i.opts.InstalledAsDependency,
	})
	i.state = StateComplete
	i.emit(PhaseDone, fmt.Sprintf("%s was successfully installed", token))
	logger.Success(fmt.Sprintf("%s was successfully installed!", token), logger.Fields{"version": i.cask.Version})
	return nil
}

// migrateOldTokens moves the caskroom entry of a renamed cask to its new token.
func (i *Installer) migrateOldTokens(ctx context.Context) {
	store := i.s.Store
	for _, old := range i.cask.OldTokens {
		if old == i.cask.Token || !store.IsInstalled(old) || store.IsInstalled(i.cask.Token) {
			continue
		}
		if err := store.Migrate(ctx, old, i.cask.Token); err != nil {
			logger.Warn("Could not migrate renamed cask", logger.Fields{"from": old, "to": i.cask.Token, "error": err})
		}
	}
}

func (i *Installer) printCaveats() {
	if i.cask.Caveats == "" {
		return
	}
	i.emit(PhaseCaveats, i.cask.Caveats)
	logger.Info("Caveats", logger.Fields{"cask": i.cask.Token, "caveats": i.cask.Caveats})
}

// uninstallExisting removes the installed version before a reinstall.
func (i *Installer) uninstallExisting(ctx context.Context) error {
	installed, err := i.s.LoadInstalled(i.cask.Token)
	if err != nil {
		logger.Warn("Falling back to the current definition", logger.Fields{"cask": i.cask.Token, "error": err})
		installed = i.cask
	}
	old := i.s.New(installed, Options{
		Verbose:   i.opts.Verbose,
		Force:     true,
		Reinstall: true,
		Upgrade:   i.opts.Upgrade,
	})
	if i.opts.Zap {
		return old.Zap(ctx)
	}
	return old.Uninstall(ctx)
}

// PurgeVersionedFiles removes the staged and metadata directories of the
// cask's version.
func (i *Installer) PurgeVersionedFiles(ctx context.Context) error {
	return i.s.Store.PurgeVersionedFiles(ctx, i.cask.Token, i.cask.Version)
}

// Backup moves the staged and metadata directories aside.
func (i *Installer) Backup(ctx context.Context) error {
	return i.s.Store.Backup(ctx, i.cask.Token, i.cask.Version)
}

// Restore moves a backup back into place; it is a no-op without one.
func (i *Installer) Restore(ctx context.Context) error {
	return i.s.Store.Restore(ctx, i.cask.Token, i.cask.Version)
}

// PurgeBackup deletes the backup.
func (i *Installer) PurgeBackup(ctx context.Context) error {
	return i.s.Store.PurgeBackup(ctx, i.cask.Token, i.cask.Version)
}
