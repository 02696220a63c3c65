package analytics

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetached_EmptyCommandIsNoop(t *testing.T) {
	assert.IsType(t, Noop{}, NewDetached(nil))
}

func TestNewDetached_DisabledByEnvironment(t *testing.T) {
	t.Setenv("BREWCASK_NO_ANALYTICS", "1")
	assert.IsType(t, Noop{}, NewDetached([]string{"/bin/true"}))
}

func TestDetached_Report(t *testing.T) {
	var started *exec.Cmd
	d := &Detached{argv: []string{"/usr/local/bin/report", "--quiet"}, start: func(cmd *exec.Cmd) error {
		started = cmd
		return nil
	}}

	d.Report(Event{Name: EventInstall, Token: "foo", Version: "1.0", OnRequest: true})

	require.NotNil(t, started)
	assert.Equal(t, []string{"/usr/local/bin/report", "--quiet"}, started.Args)
	assert.Contains(t, started.Env, "BREWCASK_ANALYTICS_EVENT=cask_install")
	assert.Contains(t, started.Env, "BREWCASK_ANALYTICS_TOKEN=foo")
	assert.Contains(t, started.Env, "BREWCASK_ANALYTICS_ON_REQUEST=1")
}

func TestDetached_ReportSwallowsStartErrors(t *testing.T) {
	d := &Detached{argv: []string{"/nonexistent"}, start: func(*exec.Cmd) error { return errors.New("boom") }}
	assert.NotPanics(t, func() { d.Report(Event{Name: EventInstall, Token: "foo"}) })
}
