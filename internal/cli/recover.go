package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRecoverCmd creates the recover command.
func NewRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Restore casks after an interrupted upgrade",
		Long: `Restore the backed up version of every cask whose upgrade or
reinstall was interrupted and link its artifacts again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, orch, err := loadOrchestrator(ctx)
			if err != nil {
				return err
			}
			if err := orch.Recover(ctx); err != nil {
				return fmt.Errorf("failed to recover casks: %w", err)
			}
			return nil
		},
	}

	return cmd
}
