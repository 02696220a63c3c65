package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewUpgradeCmd creates the upgrade command.
func NewUpgradeCmd() *cobra.Command {
	var (
		flags  transactionFlags
		greedy bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade [CASK...]",
		Short: "Upgrade outdated casks",
		Long: `Upgrade the named casks, or every outdated cask when none are given.
Casks that update themselves or track "latest" are only upgraded with
--greedy or when named explicitly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, orch, err := loadOrchestrator(ctx)
			if err != nil {
				return err
			}
			opts := orchestrator.UpgradeOptions{Options: flags.options(cfg), Greedy: greedy, DryRun: flags.dryRun}
			if err := orch.Upgrade(ctx, args, opts); err != nil {
				return fmt.Errorf("failed to upgrade casks: %w", err)
			}
			return nil
		},
	}
	addTransactionFlags(cmd, &flags)
	cmd.Flags().BoolVarP(&greedy, "greedy", "g", false, "Include casks that update themselves or track latest")

	return cmd
}

// NewOutdatedCmd creates the outdated command.
func NewOutdatedCmd() *cobra.Command {
	var greedy bool

	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "List installed casks with newer versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, orch, err := loadOrchestrator(ctx)
			if err != nil {
				return err
			}
			outdated, err := orch.Outdated(ctx, greedy)
			if err != nil {
				return err
			}
			if cfg.Settings.OutputFormat == string(logger.FormatJSON) {
				return printJSON(outdated)
			}
			if len(outdated) == 0 {
				fmt.Println("All casks are up to date")
				return nil
			}
			tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(tabWriter, "CASK\tINSTALLED\tCURRENT")
			for _, oc := range outdated {
				_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\n", oc.Token, oc.Installed, oc.Current)
			}
			return tabWriter.Flush()
		},
	}
	cmd.Flags().BoolVarP(&greedy, "greedy", "g", false, "Include casks that update themselves or track latest")

	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
