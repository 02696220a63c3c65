package orchestrator

import (
	"net/url"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/cache"
	"github.com/glorpus-work/brewcask/pkg/download"
)

// Cleanup prunes the download cache. Downloads of installed versions and of
// the current definitions of installed casks are kept unless opts.All is set.
// It returns a summary of what was removed.
func (o *Orchestrator) Cleanup(opts CleanupOptions) (string, error) {
	keep, err := o.referencedDownloads()
	if err != nil {
		return "", err
	}
	op := cache.NewCacheOperation(cache.NewManager(o.Session.CacheDir))
	return op.Clean(cache.CleanOptions{
		All:    opts.All,
		Keep:   keep,
		MaxAge: opts.MaxAge,
		DryRun: opts.DryRun,
	})
}

// CacheInfo summarizes the download cache.
func (o *Orchestrator) CacheInfo() (string, error) {
	return cache.NewCacheOperation(cache.NewManager(o.Session.CacheDir)).GetInfo()
}

func (o *Orchestrator) referencedDownloads() (map[string]bool, error) {
	tokens, err := o.Session.Store.Installed()
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool)
	add := func(raw string) {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
			keep[download.CacheFilename(u)] = true
		}
	}
	for _, token := range tokens {
		if c, err := o.Session.LoadInstalled(token); err == nil {
			add(c.URL)
		} else {
			logger.Debug("Installed definition unreadable", logger.Fields{"cask": token, "error": err})
		}
		if c, err := o.Session.Load(token); err == nil {
			add(c.URL)
		}
	}
	return keep, nil
}
