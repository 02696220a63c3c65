package orchestrator

import (
	"context"
	"sync"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/installer"
	"github.com/glorpus-work/brewcask/pkg/model"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Outdated lists installed casks whose definition has moved on. Casks that
// track "latest" or update themselves are only considered when greedy is
// set. Casks that no tap provides anymore are skipped.
func (o *Orchestrator) Outdated(ctx context.Context, greedy bool) ([]OutdatedCask, error) {
	tokens, err := o.Session.Store.Installed()
	if err != nil {
		return nil, err
	}
	var (
		out  []OutdatedCask
		errs []error
	)
	for _, token := range tokens {
		oc, ok, err := o.outdated(ctx, token, greedy)
		if err != nil {
			var unavailable *errors.UnavailableError
			if errors.As(err, &unavailable) {
				logger.Warn("Skipping cask without definition", logger.Fields{"cask": token})
				continue
			}
			errs = append(errs, err)
			continue
		}
		if ok {
			out = append(out, oc)
		}
	}
	return out, errors.Aggregate(errs...)
}

func (o *Orchestrator) outdated(ctx context.Context, token string, greedy bool) (OutdatedCask, bool, error) {
	installed, _ := o.Session.Store.InstalledVersion(token)
	oc := OutdatedCask{Token: token, Installed: installed}
	c, err := o.Session.Load(token)
	if err != nil {
		return oc, false, err
	}
	oc.Current = c.Version

	if (c.IsLatest() || c.AutoUpdates) && !greedy {
		return oc, false, nil
	}
	if c.IsLatest() && installed == model.VersionLatest {
		changed, err := o.latestChanged(ctx, c)
		return oc, changed, err
	}
	return oc, installed != c.Version, nil
}

// latestChanged downloads a "latest" cask again and compares the checksum
// with the one recorded at install time.
func (o *Orchestrator) latestChanged(ctx context.Context, c *model.Cask) (bool, error) {
	recorded, err := o.Session.Store.LoadDownloadSHA(c.Token)
	if err != nil || recorded == "" {
		return true, nil
	}
	path, err := o.Session.New(c, installer.Options{}).Download(ctx)
	if err != nil {
		return false, err
	}
	sha, err := download.SHA256File(path)
	if err != nil {
		return false, err
	}
	return sha != recorded, nil
}

// Fetch downloads the containers of tokens into the cache without
// installing anything. Downloads run concurrently; the returned map holds
// the path of every successful download.
func (o *Orchestrator) Fetch(ctx context.Context, tokens []string, opts FetchOptions) (map[string]string, error) {
	if len(tokens) == 0 {
		return nil, errors.ErrNoCasksSpecified
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(tokens))
		errs  []error
	)
	report := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		emit(o.Hooks, e)
	}
	fail := func(token string, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		report(Event{Phase: "error", ID: token, Msg: err.Error()})
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, token := range tokens {
		c, err := o.Session.Load(token)
		if err != nil {
			fail(token, err)
			continue
		}
		report(Event{Phase: "fetching", ID: c.Token, Msg: c.URL})
		inst := o.Session.New(c, installer.Options{RequireSHA: opts.RequireSHA, Force: opts.Force})
		g.Go(func() error {
			path, err := inst.Download(ctx)
			if err != nil {
				fail(c.Token, err)
				return nil
			}
			mu.Lock()
			paths[c.Token] = path
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report(Event{Phase: "done"})
	return paths, errors.Aggregate(errs...)
}
