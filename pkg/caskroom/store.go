// Package caskroom owns the on-disk state of installed casks: staged
// versions, metadata snapshots, persisted config and upgrade backups.
package caskroom

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
)

const (
	metadataDir     = ".metadata"
	backupSuffix    = ".upgrading"
	configFile      = "config.json"
	downloadSHAFile = "LATEST_DOWNLOAD_SHA256"
	casksDir        = "Casks"

	// TimestampLayout names snapshot directories; it sorts lexicographically.
	TimestampLayout = "20060102150405.000"
)

// Store manages the caskroom rooted at a single directory.
type Store struct {
	root   string
	runner command.Runner
	now    func() time.Time
}

// Pending describes a backup left behind by an interrupted transaction.
type Pending struct {
	Token   string
	Version string
}

// NewStore returns a Store for root. The runner is used when removals or
// renames need elevated privileges.
func NewStore(root string, runner command.Runner) *Store {
	return &Store{root: root, runner: runner, now: time.Now}
}

// Root returns the caskroom directory.
func (s *Store) Root() string { return s.root }

// CaskPath is <root>/<token>.
func (s *Store) CaskPath(token string) string {
	return filepath.Join(s.root, token)
}

// StagedPath is <root>/<token>/<version>.
func (s *Store) StagedPath(token, version string) string {
	return filepath.Join(s.root, token, version)
}

// MetadataPath is <root>/<token>/.metadata.
func (s *Store) MetadataPath(token string) string {
	return filepath.Join(s.root, token, metadataDir)
}

// MetadataVersionPath is <root>/<token>/.metadata/<version>.
func (s *Store) MetadataVersionPath(token, version string) string {
	return filepath.Join(s.MetadataPath(token), version)
}

func (s *Store) configPath(token string) string {
	return filepath.Join(s.MetadataPath(token), configFile)
}

func (s *Store) downloadSHAPath(token string) string {
	return filepath.Join(s.MetadataPath(token), downloadSHAFile)
}

// EnsureRoot creates the caskroom, escalating when the parent is not writable.
func (s *Store) EnsureRoot(ctx context.Context) error {
	if fsutil.IsDir(s.root) {
		return nil
	}
	logger.Debug("Creating caskroom", logger.Fields{"path": s.root})
	return fsutil.MkdirAll(ctx, s.runner, s.root)
}

// WriteSnapshot stores the source definition of an installed version under a
// fresh timestamp directory and returns the path written.
func (s *Store) WriteSnapshot(token, version string, source []byte, format string) (string, error) {
	if format != model.FormatJSON && format != model.FormatYAML {
		return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format)
	}
	stamp := s.now().UTC().Format(TimestampLayout)
	dir := filepath.Join(s.MetadataVersionPath(token, version), stamp, casksDir)
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return "", errors.Wrap(err, "could not create metadata directory")
	}
	path := filepath.Join(dir, token+"."+format)
	if err := fsutil.WriteFileAtomic(path, source, fsutil.FileModeDefault); err != nil {
		return "", err
	}
	return path, nil
}

// LatestSnapshot returns the definition file of the newest snapshot of version.
func (s *Store) LatestSnapshot(token, version string) (string, error) {
	stamps, err := listDirs(s.MetadataVersionPath(token, version))
	if err != nil || len(stamps) == 0 {
		return "", fmt.Errorf("%s %s: %w", token, version, errors.ErrNoMetadata)
	}
	latest := filepath.Join(s.MetadataVersionPath(token, version), stamps[len(stamps)-1], casksDir)
	for _, ext := range []string{model.FormatJSON, model.FormatYAML} {
		candidate := filepath.Join(latest, token+"."+ext)
		if fsutil.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s %s: %w", token, version, errors.ErrNoMetadata)
}

// latestStamp returns the newest snapshot timestamp of version, or "".
func (s *Store) latestStamp(token, version string) string {
	stamps, err := listDirs(s.MetadataVersionPath(token, version))
	if err != nil || len(stamps) == 0 {
		return ""
	}
	return stamps[len(stamps)-1]
}

// InstalledVersions lists the staged version directories of token in
// lexical order. Backups and hidden directories are skipped.
func (s *Store) InstalledVersions(token string) ([]string, error) {
	dirs, err := listDirs(s.CaskPath(token))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return dirs, nil
}

// InstalledVersion returns the version whose metadata was written last.
func (s *Store) InstalledVersion(token string) (string, bool) {
	versions, err := listDirs(s.MetadataPath(token))
	if err != nil {
		return "", false
	}
	var best, bestStamp string
	for _, v := range versions {
		if stamp := s.latestStamp(token, v); stamp > bestStamp {
			best, bestStamp = v, stamp
		}
	}
	return best, best != ""
}

// IsInstalled reports whether token has an installed version with metadata.
func (s *Store) IsInstalled(token string) bool {
	_, ok := s.InstalledVersion(token)
	return ok
}

// Installed lists every installed token in lexical order.
func (s *Store) Installed() ([]string, error) {
	tokens, err := listDirs(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, t := range tokens {
		if s.IsInstalled(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveConfig persists the config a cask was installed with.
func (s *Store) SaveConfig(token string, cfg *model.Config) error {
	data, err := cfg.MarshalIndent()
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConfigMarshal, err)
	}
	if err := os.MkdirAll(s.MetadataPath(token), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "could not create metadata directory")
	}
	return fsutil.WriteFileAtomic(s.configPath(token), data, fsutil.FileModeDefault)
}

// LoadConfig returns the persisted config, or nil when none was saved.
func (s *Store) LoadConfig(token string) (*model.Config, error) {
	data, err := os.ReadFile(s.configPath(token))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := model.ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrConfigParse, s.configPath(token), err)
	}
	return cfg, nil
}

// DeleteConfig removes the persisted config.
func (s *Store) DeleteConfig(ctx context.Context, token string) error {
	return fsutil.Remove(ctx, s.runner, s.configPath(token))
}

// SaveDownloadSHA records the checksum of the last download of a "latest" cask.
func (s *Store) SaveDownloadSHA(token, sha string) error {
	if err := os.MkdirAll(s.MetadataPath(token), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "could not create metadata directory")
	}
	return fsutil.WriteFileAtomic(s.downloadSHAPath(token), []byte(sha+"\n"), fsutil.FileModeDefault)
}

// LoadDownloadSHA returns the recorded checksum, or "" when none was saved.
func (s *Store) LoadDownloadSHA(token string) (string, error) {
	data, err := os.ReadFile(s.downloadSHAPath(token))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// DeleteDownloadSHA removes the recorded checksum.
func (s *Store) DeleteDownloadSHA(ctx context.Context, token string) error {
	return fsutil.Remove(ctx, s.runner, s.downloadSHAPath(token))
}

func (s *Store) backupPaths(token, version string) (string, string) {
	return s.StagedPath(token, version) + backupSuffix, s.MetadataVersionPath(token, version) + backupSuffix
}

// HasBackup reports whether both backup directories of version exist.
func (s *Store) HasBackup(token, version string) bool {
	staged, meta := s.backupPaths(token, version)
	return fsutil.IsDir(staged) && fsutil.IsDir(meta)
}

// Backup renames the staged and metadata directories of version aside.
// Both have to exist.
func (s *Store) Backup(ctx context.Context, token, version string) error {
	staged, meta := s.StagedPath(token, version), s.MetadataVersionPath(token, version)
	if !fsutil.IsDir(staged) || !fsutil.IsDir(meta) {
		return fmt.Errorf("%s %s: %w", token, version, errors.ErrBackupIncomplete)
	}
	stagedBackup, metaBackup := s.backupPaths(token, version)

	logger.Debug("Backing up installed version", logger.Fields{"cask": token, "version": version})
	if err := fsutil.Rename(ctx, s.runner, staged, stagedBackup); err != nil {
		return errors.Wrapf(err, "could not back up %s", staged)
	}
	if err := fsutil.Rename(ctx, s.runner, meta, metaBackup); err != nil {
		// undo the first rename so nothing is left half moved
		_ = fsutil.Rename(ctx, s.runner, stagedBackup, staged)
		return errors.Wrapf(err, "could not back up %s", meta)
	}
	return nil
}

// Restore moves a backup of version back into place, replacing whatever is
// currently staged. It is a no-op when no complete backup exists.
func (s *Store) Restore(ctx context.Context, token, version string) error {
	if !s.HasBackup(token, version) {
		return nil
	}
	staged, meta := s.StagedPath(token, version), s.MetadataVersionPath(token, version)
	stagedBackup, metaBackup := s.backupPaths(token, version)

	logger.Debug("Restoring backup", logger.Fields{"cask": token, "version": version})
	for _, p := range []string{staged, meta} {
		if fsutil.Exists(p) {
			if err := fsutil.RemoveAll(ctx, s.runner, p); err != nil {
				return errors.Wrapf(err, "could not remove %s", p)
			}
		}
	}
	if err := fsutil.Rename(ctx, s.runner, stagedBackup, staged); err != nil {
		return errors.Wrapf(err, "could not restore %s", staged)
	}
	if err := fsutil.Rename(ctx, s.runner, metaBackup, meta); err != nil {
		return errors.Wrapf(err, "could not restore %s", meta)
	}
	return nil
}

// PurgeBackup deletes any backup of version.
func (s *Store) PurgeBackup(ctx context.Context, token, version string) error {
	stagedBackup, metaBackup := s.backupPaths(token, version)
	for _, p := range []string{stagedBackup, metaBackup} {
		if !fsutil.Exists(p) {
			continue
		}
		if err := fsutil.RemoveAll(ctx, s.runner, p); err != nil {
			return errors.Wrapf(err, "could not remove backup %s", p)
		}
	}
	return nil
}

// PendingBackups lists the versions of token that still have a backup.
func (s *Store) PendingBackups(token string) []string {
	entries, err := os.ReadDir(s.CaskPath(token))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), backupSuffix) {
			continue
		}
		version := strings.TrimSuffix(e.Name(), backupSuffix)
		if s.HasBackup(token, version) {
			out = append(out, version)
		}
	}
	return out
}

// Interrupted lists every backup left behind by an interrupted transaction.
func (s *Store) Interrupted() ([]Pending, error) {
	tokens, err := listDirs(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Pending
	for _, t := range tokens {
		for _, v := range s.PendingBackups(t) {
			out = append(out, Pending{Token: t, Version: v})
		}
	}
	return out, nil
}

// PurgeVersionedFiles removes the staged and metadata directories of
// version, then the metadata and cask directories if they became empty.
func (s *Store) PurgeVersionedFiles(ctx context.Context, token, version string) error {
	logger.Debug("Purging versioned files", logger.Fields{"cask": token, "version": version})
	for _, p := range []string{s.StagedPath(token, version), s.MetadataVersionPath(token, version)} {
		if !fsutil.Exists(p) {
			continue
		}
		if err := fsutil.RemoveAll(ctx, s.runner, p); err != nil {
			return errors.Wrapf(err, "could not remove %s", p)
		}
	}
	removeIfEmpty(s.MetadataPath(token))
	removeIfEmpty(s.CaskPath(token))
	return nil
}

// PurgeCaskroom removes everything stored for token.
func (s *Store) PurgeCaskroom(ctx context.Context, token string) error {
	if !fsutil.Exists(s.CaskPath(token)) {
		return nil
	}
	logger.Debug("Purging caskroom", logger.Fields{"cask": token})
	return fsutil.RemoveAll(ctx, s.runner, s.CaskPath(token))
}

// Migrate renames the caskroom entry of oldToken to newToken and leaves a
// symlink at the old path.
func (s *Store) Migrate(ctx context.Context, oldToken, newToken string) error {
	from, to := s.CaskPath(oldToken), s.CaskPath(newToken)
	if fi, err := os.Lstat(from); err != nil || fi.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	if fsutil.Exists(to) {
		return nil
	}
	logger.Info("Migrating renamed cask", logger.Fields{"from": oldToken, "to": newToken})
	if err := fsutil.Rename(ctx, s.runner, from, to); err != nil {
		return errors.Wrapf(err, "could not migrate %s", oldToken)
	}
	if err := s.renameSnapshots(newToken, oldToken); err != nil {
		return err
	}
	return os.Symlink(newToken, from)
}

// renameSnapshots renames Casks/<old>.<ext> to Casks/<new>.<ext> in every snapshot.
func (s *Store) renameSnapshots(newToken, oldToken string) error {
	pattern := filepath.Join(s.MetadataPath(newToken), "*", "*", casksDir, oldToken+".*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, m := range matches {
		renamed := filepath.Join(filepath.Dir(m), newToken+filepath.Ext(m))
		if err := os.Rename(m, renamed); err != nil {
			return errors.Wrapf(err, "could not rename snapshot %s", m)
		}
	}
	return nil
}

// listDirs returns the visible, non-backup subdirectories of dir in lexical order.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, backupSuffix) {
			continue
		}
		if !e.IsDir() {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err == nil {
		logger.Debug("Removed empty directory", logger.Fields{"path": dir})
	}
}
