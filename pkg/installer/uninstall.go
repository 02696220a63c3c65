package installer

import (
	"context"
	"fmt"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/artifact"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// installedCask returns the cask as it was installed, falling back to the
// current definition when the snapshot cannot be evaluated.
func (i *Installer) installedCask() *model.Cask {
	installed, err := i.s.LoadInstalled(i.cask.Token)
	if err != nil {
		logger.Debug("Using the current definition", logger.Fields{"cask": i.cask.Token, "error": err})
		return i.cask
	}
	return installed
}

// Uninstall deactivates the installed version and removes its files. The
// persisted config and download checksum survive reinstalls and upgrades.
func (i *Installer) Uninstall(ctx context.Context) error {
	token := i.cask.Token
	store := i.s.Store
	if !store.IsInstalled(token) && !i.opts.Force {
		return &errors.NotInstalledError{Token: token}
	}

	installed := i.installedCask()
	i.emit(PhaseUninstalling, installed.Version)
	if err := i.uninstallArtifacts(ctx, installed, nil); err != nil {
		return err
	}

	if !i.opts.Reinstall && !i.opts.Upgrade {
		if err := store.DeleteConfig(ctx, token); err != nil {
			return err
		}
		if err := store.DeleteDownloadSHA(ctx, token); err != nil {
			return err
		}
	}
	if err := store.PurgeVersionedFiles(ctx, token, installed.Version); err != nil {
		return err
	}
	if i.opts.Force {
		if err := store.PurgeCaskroom(ctx, token); err != nil {
			return err
		}
	}
	i.emit(PhaseDone, fmt.Sprintf("%s was successfully uninstalled", token))
	logger.Success(fmt.Sprintf("%s was successfully uninstalled!", token))
	return nil
}

// Zap uninstalls the cask, dispatches its zap stanzas and removes every
// staged version.
func (i *Installer) Zap(ctx context.Context) error {
	token := i.cask.Token
	i.emit(PhaseZapping, token)
	logger.Info("Implied uninstall", logger.Fields{"cask": token})

	if err := i.uninstallArtifacts(ctx, i.installedCask(), nil); err != nil {
		return err
	}

	zaps := i.cask.ArtifactsOfKind(model.KindZap)
	if len(zaps) == 0 {
		logger.Warn(fmt.Sprintf("No zap stanza present for cask '%s'", token))
	}
	ac := i.artifactContext(i.cask, nil, nil)
	for _, a := range zaps {
		z, ok := a.(artifact.Zapper)
		if !ok {
			continue
		}
		if err := z.Zap(ctx, ac); err != nil {
			return &errors.ArtifactError{Token: token, Artifact: a.String(), Err: err}
		}
	}

	if err := i.s.Store.PurgeCaskroom(ctx, token); err != nil {
		return err
	}
	i.emit(PhaseDone, fmt.Sprintf("%s was zapped", token))
	return nil
}

// UninstallArtifacts deactivates the installer's own cask. During an
// upgrade successor is the version replacing it.
func (i *Installer) UninstallArtifacts(ctx context.Context, successor *model.Cask) error {
	return i.uninstallArtifacts(ctx, i.cask, successor)
}

// uninstallArtifacts runs the uninstall phase of every artifact, then the
// post-uninstall phase of every artifact.
func (i *Installer) uninstallArtifacts(ctx context.Context, c, successor *model.Cask) error {
	ac := i.artifactContext(c, nil, successor)
	all := c.Artifacts.All()

	for _, a := range all {
		u, ok := a.(artifact.Uninstaller)
		if !ok {
			continue
		}
		i.emit(PhaseUninstalling, a.String())
		if err := u.Uninstall(ctx, ac); err != nil {
			return &errors.ArtifactError{Token: c.Token, Artifact: a.String(), Err: err}
		}
	}
	for _, a := range all {
		p, ok := a.(artifact.PostUninstaller)
		if !ok {
			continue
		}
		if err := p.PostUninstall(ctx, ac); err != nil {
			return &errors.ArtifactError{Token: c.Token, Artifact: a.String(), Err: err}
		}
	}
	return nil
}
