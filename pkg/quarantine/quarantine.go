//go:generate mockgen -destination=./mocks/quarantine.go . Quarantiner

// Package quarantine reads and writes the com.apple.quarantine provenance
// attribute through the xattr tool.
package quarantine

import (
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/errors"
)

// Attribute is the extended attribute carrying provenance.
const Attribute = "com.apple.quarantine"

// batchSize bounds the number of paths passed to a single xattr call.
const batchSize = 200

// Quarantiner marks files with the provenance of their download.
type Quarantiner interface {
	// Available reports whether quarantine is supported on this host.
	Available() bool
	// Propagate copies the attribute of from onto every non-symlink entry below to.
	Propagate(ctx context.Context, from, to string) error
	// Release removes the attribute from path recursively.
	Release(ctx context.Context, path string) error
}

// Xattr implements Quarantiner with /usr/bin/xattr.
type Xattr struct {
	runner command.Runner
	tool   string
}

// New returns an Xattr quarantiner.
func New(runner command.Runner) *Xattr {
	return &Xattr{runner: runner, tool: "/usr/bin/xattr"}
}

// Available reports whether the xattr tool exists on a darwin host.
func (x *Xattr) Available() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath(x.tool)
	return err == nil
}

// Propagate is a no-op when from carries no quarantine attribute.
func (x *Xattr) Propagate(ctx context.Context, from, to string) error {
	res, err := x.runner.Run(ctx, command.Cmd{Name: x.tool, Args: []string{"-p", Attribute, from}})
	if err != nil {
		logger.Debug("Download carries no quarantine attribute", logger.Fields{"path": from})
		return nil
	}
	value := strings.TrimSpace(res.Stdout)
	if value == "" {
		return nil
	}

	var paths []string
	err = filepath.WalkDir(to, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return &errors.QuarantineError{Op: "propagate", Path: to, Err: err}
	}

	for start := 0; start < len(paths); start += batchSize {
		end := min(start+batchSize, len(paths))
		args := append([]string{"-w", Attribute, value}, paths[start:end]...)
		if _, err := x.runner.Run(ctx, command.Cmd{Name: x.tool, Args: args}); err != nil {
			return &errors.QuarantineError{Op: "propagate", Path: to, Err: err}
		}
	}
	return nil
}

// Release removes the attribute recursively.
func (x *Xattr) Release(ctx context.Context, path string) error {
	if _, err := x.runner.Run(ctx, command.Cmd{Name: x.tool, Args: []string{"-d", "-r", Attribute, path}}); err != nil {
		return &errors.QuarantineError{Op: "release", Path: path, Err: err}
	}
	return nil
}
