package cli

import (
	"fmt"

	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/spf13/cobra"
)

type uninstallFlags struct {
	force  bool
	zap    bool
	dryRun bool
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	var flags uninstallFlags

	cmd := &cobra.Command{
		Use:     "uninstall CASK...",
		Aliases: []string{"remove", "rm"},
		Short:   "Uninstall casks",
		Long: `Uninstall one or more installed casks.
Uninstall directives of the installed definition are executed and
every artifact is removed from its target.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Uninstall even if the cask is not fully installed")
	cmd.Flags().BoolVar(&flags.zap, "zap", false, "Also remove files listed in the zap stanza")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the plan without executing it")

	return cmd
}

// NewZapCmd creates the zap command.
func NewZapCmd() *cobra.Command {
	var flags uninstallFlags

	cmd := &cobra.Command{
		Use:   "zap CASK...",
		Short: "Uninstall casks and remove their leftover files",
		Long: `Uninstall one or more casks and remove the preferences, caches
and support files listed in their zap stanza. This may remove files
shared with other applications.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.zap = true
			return runUninstall(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Zap even if the cask is not fully installed")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the plan without executing it")

	return cmd
}

func runUninstall(cmd *cobra.Command, tokens []string, flags uninstallFlags) error {
	ctx := cmd.Context()
	_, orch, err := loadOrchestrator(ctx)
	if err != nil {
		return err
	}

	opts := orchestrator.UninstallOptions{DryRun: flags.dryRun}
	opts.Force = flags.force
	opts.Zap = flags.zap
	opts.Verbose = Verbose != nil && *Verbose
	if err := orch.Uninstall(ctx, tokens, opts); err != nil {
		return fmt.Errorf("failed to uninstall casks: %w", err)
	}
	return nil
}
