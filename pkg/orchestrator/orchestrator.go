// Package orchestrator runs installer transactions over batches of casks.
// A failing cask never stops the batch; failures are aggregated.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/caskroom"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/installer"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// New constructs an Orchestrator around a session.
// Hooks can be empty if no event handling is needed.
func New(s *installer.Session, hooks Hooks) *Orchestrator {
	return &Orchestrator{Session: s, Hooks: hooks}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// batch runs fn for every token, stopping early only when ctx is done.
func (o *Orchestrator) batch(ctx context.Context, tokens []string, fn func(string) error) error {
	if len(tokens) == 0 {
		return errors.ErrNoCasksSpecified
	}
	var errs []error
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := fn(token); err != nil {
			emit(o.Hooks, Event{Phase: "error", ID: token, Msg: err.Error()})
			errs = append(errs, err)
		}
	}
	emit(o.Hooks, Event{Phase: "done"})
	return errors.Aggregate(errs...)
}

// Install installs every token. Casks that are already installed are
// reported and skipped.
func (o *Orchestrator) Install(ctx context.Context, tokens []string, opts InstallOptions) error {
	return o.batch(ctx, tokens, func(token string) error {
		c, err := o.Session.Load(token)
		if err != nil {
			return err
		}
		emit(o.Hooks, Event{Phase: "planning", ID: c.Token, Msg: c.Token + " " + c.Version})
		if opts.DryRun {
			return nil
		}
		emit(o.Hooks, Event{Phase: "installing", ID: c.Token, Msg: c.Version})
		err = o.Session.New(c, opts.Options).Install(ctx)
		var already *errors.AlreadyInstalledError
		if !opts.Reinstall && errors.As(err, &already) {
			logger.Warn(already.Error(), logger.Fields{"cask": c.Token})
			return nil
		}
		return err
	})
}

// Reinstall uninstalls and installs every token again. Casks that are not
// installed are simply installed.
func (o *Orchestrator) Reinstall(ctx context.Context, tokens []string, opts InstallOptions) error {
	opts.Reinstall = true
	return o.Install(ctx, tokens, opts)
}

// Uninstall removes every token. With opts.Zap set the casks are zapped.
func (o *Orchestrator) Uninstall(ctx context.Context, tokens []string, opts UninstallOptions) error {
	return o.batch(ctx, tokens, func(token string) error {
		c, err := o.loadForRemoval(token)
		if err != nil {
			return err
		}
		phase := "uninstalling"
		if opts.Zap {
			phase = "zapping"
		}
		emit(o.Hooks, Event{Phase: "planning", ID: c.Token, Msg: phase + " " + c.Token})
		if opts.DryRun {
			return nil
		}
		emit(o.Hooks, Event{Phase: phase, ID: c.Token})
		inst := o.Session.New(c, opts.Options)
		if opts.Zap {
			return inst.Zap(ctx)
		}
		return inst.Uninstall(ctx)
	})
}

// Zap uninstalls every token and removes the files listed in its zap stanza.
func (o *Orchestrator) Zap(ctx context.Context, tokens []string, opts UninstallOptions) error {
	opts.Zap = true
	return o.Uninstall(ctx, tokens, opts)
}

// loadForRemoval prefers the current definition and falls back to the
// installed one when the cask disappeared from every tap.
func (o *Orchestrator) loadForRemoval(token string) (*model.Cask, error) {
	c, err := o.Session.Load(token)
	if err == nil {
		return c, nil
	}
	installed, installedErr := o.Session.LoadInstalled(token)
	if installedErr != nil {
		return nil, err
	}
	logger.Debug("Using the installed definition", logger.Fields{"cask": token, "error": err})
	return installed, nil
}

// Upgrade upgrades the given tokens, or every outdated cask when tokens is
// empty. Named casks are checked greedily.
func (o *Orchestrator) Upgrade(ctx context.Context, tokens []string, opts UpgradeOptions) error {
	var (
		targets []OutdatedCask
		errs    []error
	)
	if len(tokens) == 0 {
		outdated, err := o.Outdated(ctx, opts.Greedy)
		if err != nil {
			errs = append(errs, err)
		}
		targets = outdated
	} else {
		for _, token := range tokens {
			if !o.Session.IsInstalled(token) {
				errs = append(errs, &errors.NotInstalledError{Token: token})
				continue
			}
			oc, ok, err := o.outdated(ctx, token, true)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !ok {
				logger.Info(fmt.Sprintf("%s %s is already up-to-date", token, oc.Installed))
				continue
			}
			targets = append(targets, oc)
		}
	}

	if len(targets) == 0 {
		emit(o.Hooks, Event{Phase: "done", Msg: "no casks to upgrade"})
		return errors.Aggregate(errs...)
	}
	for _, oc := range targets {
		emit(o.Hooks, Event{Phase: "planning", ID: oc.Token, Msg: fmt.Sprintf("%s %s -> %s", oc.Token, oc.Installed, oc.Current)})
	}
	if opts.DryRun {
		emit(o.Hooks, Event{Phase: "done", Msg: "dry-run"})
		return errors.Aggregate(errs...)
	}

	upgradeErr := o.batch(ctx, tokensOf(targets), func(token string) error {
		return o.upgrade(ctx, token, opts)
	})
	return errors.Aggregate(append(errs, upgradeErr)...)
}

func (o *Orchestrator) upgrade(ctx context.Context, token string, opts UpgradeOptions) error {
	installed, err := o.Session.LoadInstalled(token)
	if err != nil {
		return err
	}
	current, err := o.Session.Load(token)
	if err != nil {
		return err
	}
	emit(o.Hooks, Event{Phase: "upgrading", ID: token, Msg: installed.Version + " -> " + current.Version})
	old := o.Session.New(installed, installer.Options{Verbose: opts.Verbose})
	return installer.Upgrade(ctx, old, o.Session.New(current, opts.Options))
}

// Recover restores the backups left by interrupted upgrades and reactivates
// the restored versions.
func (o *Orchestrator) Recover(ctx context.Context) error {
	pending, err := o.Session.Store.Interrupted()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("Nothing to recover")
		return nil
	}
	var errs []error
	for _, p := range pending {
		if err := o.recover(ctx, p); err != nil {
			emit(o.Hooks, Event{Phase: "error", ID: p.Token, Msg: err.Error()})
			errs = append(errs, fmt.Errorf("recover %s %s: %w", p.Token, p.Version, err))
		}
	}
	emit(o.Hooks, Event{Phase: "done"})
	return errors.Aggregate(errs...)
}

func (o *Orchestrator) recover(ctx context.Context, p caskroom.Pending) error {
	store := o.Session.Store
	emit(o.Hooks, Event{Phase: "recovering", ID: p.Token, Msg: p.Version})

	// Anything staged next to the backup belongs to the interrupted new version.
	versions, err := store.InstalledVersions(p.Token)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v == p.Version {
			continue
		}
		if err := store.PurgeVersionedFiles(ctx, p.Token, v); err != nil {
			return err
		}
	}
	if err := store.Restore(ctx, p.Token, p.Version); err != nil {
		return err
	}

	c, err := o.Session.LoadInstalled(p.Token)
	if err != nil {
		return err
	}
	if err := o.Session.New(c, installer.Options{Force: true}).InstallArtifacts(ctx, nil); err != nil {
		return err
	}
	logger.Success(fmt.Sprintf("Recovered %s %s", p.Token, p.Version))
	return nil
}

func tokensOf(casks []OutdatedCask) []string {
	out := make([]string, 0, len(casks))
	for _, c := range casks {
		out = append(out, c.Token)
	}
	return out
}
