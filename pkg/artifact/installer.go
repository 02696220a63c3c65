package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// ScriptInstaller is an installer stanza. Manual installers only print
// instructions; script installers run an executable from the staged path.
type ScriptInstaller struct {
	Manual     string
	Executable string
	Args       []string
	Sudo       bool
}

func (i *ScriptInstaller) Kind() model.Kind { return model.KindInstaller }

func (i *ScriptInstaller) Key() string {
	if i.Manual != "" {
		return "manual:" + i.Manual
	}
	return "script:" + i.Executable + " " + strings.Join(i.Args, " ")
}

func (i *ScriptInstaller) String() string {
	if i.Manual != "" {
		return fmt.Sprintf("Installer (manual) '%s'", i.Manual)
	}
	return fmt.Sprintf("Installer (script) '%s'", i.Executable)
}

// Install prints manual instructions or runs the installer script.
func (i *ScriptInstaller) Install(ctx context.Context, ac *Context) error {
	if i.Manual != "" {
		path := filepath.Join(ac.Cask.StagedPath(), i.Manual)
		logger.Info(fmt.Sprintf("To complete the installation of Cask %s, you must also run the installer at:\n  %s", ac.Cask.Token, path))
		return nil
	}

	executable := i.Executable
	if !filepath.IsAbs(executable) {
		executable = filepath.Join(ac.Cask.StagedPath(), executable)
	}
	if info, err := os.Stat(executable); err == nil && info.Mode().Perm()&0o100 == 0 {
		if err := os.Chmod(executable, info.Mode().Perm()|0o100); err != nil {
			return fmt.Errorf("could not make %s executable: %w", executable, err)
		}
	}

	logger.Info(fmt.Sprintf("Running installer script '%s'", filepath.Base(executable)), logger.Fields{"cask": ac.Cask.Token})
	_, err := ac.Runner.Run(ctx, command.Cmd{
		Name: executable,
		Args: i.Args,
		Sudo: i.Sudo,
		Dir:  ac.Cask.StagedPath(),
	})
	return err
}
