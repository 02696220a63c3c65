package fsutil

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
)

// Filesystem operations below try the unprivileged variant first and retry
// exactly once through sudo when that fails with a permission error.

// RemoveAll removes path and everything below it. Read-only entries owned by
// the user are made writable before escalating.
func RemoveAll(ctx context.Context, runner command.Runner, path string) error {
	err := os.RemoveAll(path)
	if errors.Is(err, fs.ErrPermission) && MakeUserWritable(path) == nil {
		err = os.RemoveAll(path)
	}
	if !needsEscalation(err, runner) {
		return err
	}
	logger.Debug("Retrying removal with sudo", logger.Fields{"path": path})
	_, err = runner.Run(ctx, command.Cmd{Name: "/bin/rm", Args: []string{"-rf", "--", path}, Sudo: true})
	return err
}

// Rename moves src to dst.
func Rename(ctx context.Context, runner command.Runner, src, dst string) error {
	err := Move(src, dst)
	if !needsEscalation(err, runner) {
		return err
	}
	logger.Debug("Retrying move with sudo", logger.Fields{"from": src, "to": dst})
	if _, err := runner.Run(ctx, command.Cmd{Name: "/bin/mkdir", Args: []string{"-p", "--", filepath.Dir(dst)}, Sudo: true}); err != nil {
		return err
	}
	_, err = runner.Run(ctx, command.Cmd{Name: "/bin/mv", Args: []string{"--", src, dst}, Sudo: true})
	return err
}

// MkdirAll creates path. After escalation the directory is handed to the
// invoking user so later steps run unprivileged.
func MkdirAll(ctx context.Context, runner command.Runner, path string) error {
	err := os.MkdirAll(path, DirModeDefault)
	if !needsEscalation(err, runner) {
		return err
	}
	logger.Debug("Creating directory with sudo", logger.Fields{"path": path})
	if _, err := runner.Run(ctx, command.Cmd{Name: "/bin/mkdir", Args: []string{"-p", "--", path}, Sudo: true}); err != nil {
		return err
	}
	_, err = runner.Run(ctx, command.Cmd{Name: "/usr/sbin/chown", Args: []string{currentUser(), path}, Sudo: true})
	return err
}

// Remove deletes a single file or empty directory.
func Remove(ctx context.Context, runner command.Runner, path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if !needsEscalation(err, runner) {
		return err
	}
	_, err = runner.Run(ctx, command.Cmd{Name: "/bin/rm", Args: []string{"-f", "--", path}, Sudo: true})
	return err
}

func needsEscalation(err error, runner command.Runner) bool {
	return err != nil && runner != nil && errors.Is(err, fs.ErrPermission)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}
