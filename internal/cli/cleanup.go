package cli

import (
	"fmt"
	"time"

	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// defaultPruneDays is the age after which unreferenced downloads are removed.
const defaultPruneDays = 120

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	var (
		all       bool
		pruneDays int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale downloads from the cache",
		Long: `Remove partial downloads and downloads no installed cask refers to.
Downloads of installed versions and of their current definitions are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, orch, err := loadOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := orch.Cleanup(orchestrator.CleanupOptions{
				All:    all,
				MaxAge: time.Duration(pruneDays) * 24 * time.Hour,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached download")
	cmd.Flags().IntVar(&pruneDays, "prune", defaultPruneDays, "Remove unreferenced downloads older than this many days (0=all)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be removed")

	return cmd
}

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the download cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show cache size and contents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, orch, err := loadOrchestrator(cmd.Context())
				if err != nil {
					return err
				}
				info, err := orch.CacheInfo()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), info)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dir",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Settings.CacheDir)
				return nil
			},
		},
	)

	return cmd
}
