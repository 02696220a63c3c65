//go:generate mockgen -destination=./mocks/extractor.go . Extractor

// Package staging unpacks a verified download into a cask's staged path.
package staging

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/archive"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/quarantine"
)

// Options control a single staging run.
type Options struct {
	// Quarantine propagates the download's provenance to the staged files.
	Quarantine bool
}

// Extractor unpacks a download for a cask.
type Extractor interface {
	Extract(ctx context.Context, downloadPath, destination string, cask *model.Cask, opts Options) error
}

// Stager is the default Extractor.
type Stager struct {
	archives   *archive.Manager
	quarantine quarantine.Quarantiner
}

// NewStager returns a Stager. q may be nil to disable quarantine support.
func NewStager(archives *archive.Manager, q quarantine.Quarantiner) *Stager {
	return &Stager{archives: archives, quarantine: q}
}

// Extract unpacks downloadPath into destination. Any failure is returned as
// an *errors.ExtractionError; cleaning up destination is the caller's job.
func (s *Stager) Extract(ctx context.Context, downloadPath, destination string, cask *model.Cask, opts Options) error {
	if err := s.extract(ctx, downloadPath, destination, cask); err != nil {
		return &errors.ExtractionError{Token: cask.Token, Path: downloadPath, Err: err}
	}

	if opts.Quarantine && s.quarantine != nil && s.quarantine.Available() {
		logger.Debug("Propagating quarantine attribute", logger.Fields{"cask": cask.Token, "dest": destination})
		if err := s.quarantine.Propagate(ctx, downloadPath, destination); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stager) extract(ctx context.Context, downloadPath, destination string, cask *model.Cask) error {
	primary := archive.Options{Name: basename(cask, downloadPath)}
	if cask.Container != nil {
		primary.Type = cask.Container.Type
	}

	if cask.Container == nil || cask.Container.Nested == "" {
		return s.archives.ExtractNestedly(ctx, downloadPath, destination, primary)
	}

	tmp, err := os.MkdirTemp("", "brewcask-nested-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := s.archives.Extract(ctx, downloadPath, tmp, primary); err != nil {
		return err
	}

	nested := filepath.Join(tmp, cask.Container.Nested)
	if !strings.HasPrefix(nested, filepath.Clean(tmp)+string(os.PathSeparator)) {
		return fmt.Errorf("nested container %q escapes the outer container", cask.Container.Nested)
	}
	if !fsutil.Exists(nested) {
		return fmt.Errorf("nested container %q not found: %w", cask.Container.Nested, errors.ErrFileNotFound)
	}
	if err := fsutil.MakeUserWritable(nested); err != nil {
		return fmt.Errorf("failed to make %s writable: %w", nested, err)
	}

	logger.Debug("Extracting nested container", logger.Fields{"cask": cask.Token, "nested": cask.Container.Nested})
	return s.archives.ExtractNestedly(ctx, nested, destination, archive.Options{Name: filepath.Base(nested)})
}

// basename is the file name the download had on the server.
func basename(cask *model.Cask, downloadPath string) string {
	if u, err := url.Parse(cask.URL); err == nil && u.Path != "" {
		if b := path.Base(u.Path); b != "/" && b != "." {
			return b
		}
	}
	return filepath.Base(downloadPath)
}
