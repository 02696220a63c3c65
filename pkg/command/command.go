//go:generate mockgen -destination=./mocks/runner.go . Runner

// Package command runs external programs, optionally escalated through sudo.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	pkgerrors "github.com/glorpus-work/brewcask/pkg/errors"
)

// Cmd describes a single program invocation.
type Cmd struct {
	Name  string
	Args  []string
	Sudo  bool
	Env   []string
	Dir   string
	Input string
}

// String renders the command line for logs and errors.
func (c Cmd) String() string {
	parts := append([]string{c.Name}, c.Args...)
	if c.Sudo {
		parts = append([]string{"sudo"}, parts...)
	}
	return strings.Join(parts, " ")
}

// Result carries the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// Error is returned for commands that ran and exited non-zero.
type Error struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("command '%s' exited with status %d", e.Cmd, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return pkgerrors.ErrCommandFailed }

// SystemRunner runs commands on the host.
type SystemRunner struct {
	SudoPath string
}

// NewSystemRunner returns a runner that escalates through /usr/bin/sudo.
func NewSystemRunner() *SystemRunner {
	return &SystemRunner{SudoPath: "/usr/bin/sudo"}
}

// Run executes cmd and waits for it.
func (r *SystemRunner) Run(ctx context.Context, cmd Cmd) (Result, error) {
	name, args := cmd.Name, cmd.Args
	if cmd.Sudo {
		args = append([]string{"-E", "--", name}, args...)
		name = r.SudoPath
	}

	logger.Debug("Running command", logger.Fields{"command": cmd.String()})

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	if cmd.Input != "" {
		c.Stdin = strings.NewReader(cmd.Input)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &Error{Cmd: cmd.String(), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, pkgerrors.Wrapf(err, "failed to run '%s'", cmd.String())
}

// Lines splits command output into non-empty trimmed lines.
func Lines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
