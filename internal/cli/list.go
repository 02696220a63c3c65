package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/caskroom"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/spf13/cobra"
)

// installedCask is one row of the list output.
type installedCask struct {
	Token    string   `json:"token"`
	Version  string   `json:"version"`
	Versions []string `json:"versions,omitempty"`
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var nameFilter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed casks",
		Long: `List the casks recorded in the Caskroom.

Use --name to filter casks by token.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(nameFilter)
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter casks by token (partial match)")

	return cmd
}

func runList(nameFilter string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	casks, err := listInstalled(caskroom.NewStore(cfg.Settings.CaskroomDir, command.NewSystemRunner()), nameFilter)
	if err != nil {
		return err
	}

	if cfg.Settings.OutputFormat == string(logger.FormatJSON) {
		return printJSON(casks)
	}
	if len(casks) == 0 {
		fmt.Println("No casks installed")
		return nil
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "CASK\tVERSION")
	for _, c := range casks {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", c.Token, c.Version)
	}
	return tabWriter.Flush()
}

func listInstalled(store *caskroom.Store, nameFilter string) ([]installedCask, error) {
	tokens, err := store.Installed()
	if err != nil {
		return nil, fmt.Errorf("failed to read caskroom: %w", err)
	}

	casks := make([]installedCask, 0, len(tokens))
	for _, token := range tokens {
		if nameFilter != "" && !strings.Contains(token, nameFilter) {
			continue
		}
		version, _ := store.InstalledVersion(token)
		versions, err := store.InstalledVersions(token)
		if err != nil {
			return nil, err
		}
		casks = append(casks, installedCask{Token: token, Version: version, Versions: versions})
	}
	return casks, nil
}
