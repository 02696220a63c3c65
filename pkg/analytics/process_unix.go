//go:build unix

package analytics

import (
	"os/exec"
	"syscall"
)

// setProcGroup detaches the command from the terminal's process group.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
