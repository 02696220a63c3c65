package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/brewcask/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	verbose      bool
	outputFormat string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brewcask",
		Short: "Install and manage macOS application casks",
		Long: `brewcask installs, upgrades and removes casks: prebuilt macOS
applications, fonts, plugins and command-line tools described by
definitions in local taps.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/brewcask/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (text, json)")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.OutputFormat = &outputFormat

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewReinstallCmd(),
		cli.NewUninstallCmd(),
		cli.NewZapCmd(),
		cli.NewUpgradeCmd(),
		cli.NewOutdatedCmd(),
		cli.NewFetchCmd(),
		cli.NewCleanupCmd(),
		cli.NewCacheCmd(),
		cli.NewListCmd(),
		cli.NewRecoverCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
