package cli

import (
	"fmt"

	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var flags transactionFlags

	cmd := &cobra.Command{
		Use:   "install CASK...",
		Short: "Install casks",
		Long: `Install one or more casks from the configured taps.
Cask and formula dependencies are installed first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, &flags)
		},
	}
	addTransactionFlags(cmd, &flags)

	return cmd
}

// NewReinstallCmd creates the reinstall command.
func NewReinstallCmd() *cobra.Command {
	var (
		flags transactionFlags
		zap   bool
	)

	cmd := &cobra.Command{
		Use:   "reinstall CASK...",
		Short: "Uninstall and install casks again",
		Long: `Reinstall one or more casks. The installed version is backed up
and restored if the new installation fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReinstall(cmd, args, &flags, zap)
		},
	}
	addTransactionFlags(cmd, &flags)
	cmd.Flags().BoolVar(&zap, "zap", false, "Zap instead of uninstall before installing")

	return cmd
}

func runInstall(cmd *cobra.Command, tokens []string, flags *transactionFlags) error {
	ctx := cmd.Context()
	cfg, orch, err := loadOrchestrator(ctx)
	if err != nil {
		return err
	}

	opts := orchestrator.InstallOptions{Options: flags.options(cfg), DryRun: flags.dryRun}
	if err := orch.Install(ctx, tokens, opts); err != nil {
		return fmt.Errorf("failed to install casks: %w", err)
	}
	return nil
}

func runReinstall(cmd *cobra.Command, tokens []string, flags *transactionFlags, zap bool) error {
	ctx := cmd.Context()
	cfg, orch, err := loadOrchestrator(ctx)
	if err != nil {
		return err
	}

	opts := orchestrator.InstallOptions{Options: flags.options(cfg), DryRun: flags.dryRun}
	opts.Zap = zap
	if err := orch.Reinstall(ctx, tokens, opts); err != nil {
		return fmt.Errorf("failed to reinstall casks: %w", err)
	}
	return nil
}
