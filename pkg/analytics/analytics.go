// Package analytics reports install events through an external command
// that is started and never waited on.
package analytics

import (
	"os"
	"os/exec"

	"github.com/glorpus-work/brewcask/internal/logger"
)

// EventInstall is reported after a cask was installed.
const EventInstall = "cask_install"

// Event describes one reported action.
type Event struct {
	Name    string
	Token   string
	Version string
	// OnRequest is false when the cask was installed as a dependency.
	OnRequest bool
}

// Reporter dispatches events. Reporting never fails the caller.
type Reporter interface {
	Report(e Event)
}

// Noop drops every event.
type Noop struct{}

// Report implements Reporter.
func (Noop) Report(Event) {}

// Detached runs a command per event in its own process group.
type Detached struct {
	argv  []string
	start func(*exec.Cmd) error
}

// NewDetached returns a reporter running argv. The event is passed through
// BREWCASK_ANALYTICS_* environment variables. An empty argv yields Noop.
func NewDetached(argv []string) Reporter {
	if len(argv) == 0 || os.Getenv("BREWCASK_NO_ANALYTICS") != "" {
		return Noop{}
	}
	return &Detached{argv: argv, start: (*exec.Cmd).Start}
}

// Report implements Reporter.
func (d *Detached) Report(e Event) {
	cmd := exec.Command(d.argv[0], d.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"BREWCASK_ANALYTICS_EVENT="+e.Name,
		"BREWCASK_ANALYTICS_TOKEN="+e.Token,
		"BREWCASK_ANALYTICS_VERSION="+e.Version,
		"BREWCASK_ANALYTICS_ON_REQUEST="+onRequest(e.OnRequest),
	)
	setProcGroup(cmd)
	if err := d.start(cmd); err != nil {
		logger.Debug("Analytics reporter failed to start", logger.Fields{"error": err})
		return
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
}

func onRequest(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
