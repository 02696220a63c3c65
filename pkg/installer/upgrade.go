package installer

import (
	"context"
	"fmt"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/hashicorp/go-version"
)

// Direction classifies a version change.
func Direction(from, to string) string {
	a, errA := version.NewVersion(from)
	b, errB := version.NewVersion(to)
	if errA != nil || errB != nil {
		if from == to {
			return "reinstall"
		}
		return "upgrade"
	}
	switch a.Compare(b) {
	case 1:
		return "downgrade"
	case 0:
		return "reinstall"
	}
	return "upgrade"
}

// Upgrade replaces the installed cask of old with the cask of newer. old
// must be built from the installed definition. On failure every step taken
// so far is undone and the original error is returned.
func Upgrade(ctx context.Context, old, newer *Installer) (err error) {
	token := old.cask.Token
	if pending := old.s.Store.PendingBackups(token); len(pending) > 0 {
		return fmt.Errorf("cask '%s' %s: %w; run 'brewcask recover' first", token, pending[0], errors.ErrPendingBackup)
	}

	merged, err := newer.s.Loader.Reevaluate(newer.cask, newer.cask.Config.Merge(old.cask.Config))
	if err != nil {
		return err
	}
	newer.cask = merged
	newer.opts.Upgrade = true
	old.opts.Upgrade = true

	direction := Direction(old.cask.Version, newer.cask.Version)
	newer.emit(PhaseUpgrading, fmt.Sprintf("%s %s -> %s (%s)", token, old.cask.Version, newer.cask.Version, direction))

	started := false
	staged := false
	newInstalled := false
	defer func() {
		if err == nil {
			return
		}
		logger.Warn("Reverting upgrade", logger.Fields{"cask": token, "error": err})
		newer.emit(PhaseRollback, "reverting upgrade")
		if newInstalled {
			if uninstallErr := newer.UninstallArtifacts(ctx, old.cask); uninstallErr != nil {
				logger.Error("Could not remove new artifacts", logger.Fields{"cask": token, "error": uninstallErr})
			}
		}
		// old and new share versioned paths when the version is unchanged
		if staged {
			if purgeErr := newer.PurgeVersionedFiles(ctx); purgeErr != nil {
				logger.Error("Could not purge new version", logger.Fields{"cask": token, "error": purgeErr})
			}
		}
		if started {
			if restoreErr := old.Restore(ctx); restoreErr != nil {
				logger.Error("Could not restore backup", logger.Fields{"cask": token, "error": restoreErr})
			}
			if installErr := old.InstallArtifacts(ctx, newer.cask); installErr != nil {
				logger.Error("Could not reinstall previous version", logger.Fields{"cask": token, "error": installErr})
				return
			}
			logger.Warn(fmt.Sprintf("Rolled back %s to %s", token, old.cask.Version))
		}
	}()

	if err := newer.CheckConflicts(); err != nil {
		return err
	}
	newer.printCaveats()
	if err := newer.Fetch(ctx); err != nil {
		return err
	}

	if err := old.UninstallArtifacts(ctx, newer.cask); err != nil {
		return err
	}
	started = true
	if err := old.Backup(ctx); err != nil {
		return err
	}

	staged = true
	if err := newer.Stage(ctx); err != nil {
		return err
	}
	if err := newer.InstallArtifacts(ctx, old.cask); err != nil {
		return err
	}
	newInstalled = true

	if err := old.PurgeBackup(ctx); err != nil {
		return err
	}
	newer.state = StateComplete
	newer.emit(PhaseDone, fmt.Sprintf("%s %s -> %s", token, old.cask.Version, newer.cask.Version))
	logger.Success(fmt.Sprintf("%s was successfully upgraded!", token), logger.Fields{"from": old.cask.Version, "to": newer.cask.Version})
	return nil
}
