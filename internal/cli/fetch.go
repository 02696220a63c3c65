package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var (
		force       bool
		requireSHA  bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch CASK...",
		Short: "Download casks into the cache",
		Long: `Download and verify the containers of one or more casks without
installing them. Downloads run concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, orch, err := loadOrchestrator(ctx)
			if err != nil {
				return err
			}
			if concurrency == 0 {
				concurrency = cfg.Settings.MaxConcurrent
			}
			paths, err := orch.Fetch(ctx, args, orchestrator.FetchOptions{
				Concurrency: concurrency,
				RequireSHA:  requireSHA || cfg.Settings.RequireSHA,
				Force:       force,
			})
			for _, token := range slices.Sorted(maps.Keys(paths)) {
				fmt.Printf("%s: %s\n", token, paths[token])
			}
			if err != nil {
				return fmt.Errorf("failed to fetch casks: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download again even if cached")
	cmd.Flags().BoolVar(&requireSHA, "require-sha", false, "Refuse casks without a checksum")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel downloads (0=config)")

	return cmd
}
