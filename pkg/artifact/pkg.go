package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// Pkg runs a flat or bundle installer package with the system installer.
// Removal is the job of the uninstall stanza's pkgutil directive.
type Pkg struct {
	Path string
}

func (p *Pkg) Kind() model.Kind { return model.KindPkg }
func (p *Pkg) Key() string      { return p.Path }
func (p *Pkg) String() string   { return fmt.Sprintf("Pkg '%s'", p.Path) }

// Install runs /usr/sbin/installer as root.
func (p *Pkg) Install(ctx context.Context, ac *Context) error {
	path := filepath.Join(ac.Cask.StagedPath(), p.Path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("pkg source file not found: '%s'", path)
	}

	args := []string{"-pkg", path, "-target", "/"}
	if ac.Verbose {
		args = append(args, "-verboseR")
	}
	user := os.Getenv("USER")
	logger.Info(fmt.Sprintf("Running installer for %s with sudo; the password may be necessary", ac.Cask.Token))
	_, err := ac.Runner.Run(ctx, command.Cmd{
		Name: "/usr/sbin/installer",
		Args: args,
		Sudo: true,
		Env:  []string{"LOGNAME=" + user, "USER=" + user, "USERNAME=" + user},
	})
	return err
}
