package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"github.com/glorpus-work/brewcask/internal/logger"
	"github.com/glorpus-work/brewcask/pkg/analytics"
	"github.com/glorpus-work/brewcask/pkg/archive"
	"github.com/glorpus-work/brewcask/pkg/caskroom"
	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/config"
	"github.com/glorpus-work/brewcask/pkg/definition"
	"github.com/glorpus-work/brewcask/pkg/download"
	"github.com/glorpus-work/brewcask/pkg/formula"
	"github.com/glorpus-work/brewcask/pkg/hook"
	"github.com/glorpus-work/brewcask/pkg/installer"
	"github.com/glorpus-work/brewcask/pkg/orchestrator"
	"github.com/glorpus-work/brewcask/pkg/platform"
	"github.com/glorpus-work/brewcask/pkg/quarantine"
	"github.com/glorpus-work/brewcask/pkg/staging"
	"github.com/spf13/cobra"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}
	return config.GetDefaultConfigPath()
}

// loadConfig loads the configuration, applies the global flags and sets up
// the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.OutputFormat))
	return cfg, nil
}

// newSession wires the collaborators of one invocation from cfg.
func newSession(ctx context.Context, cfg *config.Config) *installer.Session {
	runner := command.NewSystemRunner()
	settings := cfg.Settings
	p := cfg.ApplyPlatform(platform.CurrentPlatform(ctx, runner))
	logger.Debug("Platform detected", logger.Fields{"arch": p.Arch, "macos": p.MacOSVersion})

	return &installer.Session{
		Store:           caskroom.NewStore(settings.CaskroomDir, runner),
		Loader:          definition.NewFileLoader(settings.TapsDir, settings.CaskroomDir, p, cfg.DirDefaults()),
		Downloads:       download.NewManager(settings.HTTPTimeout, "brewcask/"+Version),
		Extractor:       staging.NewStager(archive.NewManager(runner), quarantine.New(runner)),
		Formulae:        formula.NewBrewRegistry(runner, settings.BrewPath),
		Runner:          runner,
		Scripts:         hook.NewTengoExecutor(),
		Analytics:       analytics.NewDetached(settings.AnalyticsCommand),
		Platform:        p,
		CacheDir:        settings.CacheDir,
		DownloadTimeout: settings.HTTPTimeout,
		GitHubToken:     settings.GitHubToken,
		TrashDir:        settings.TrashDir,
		HomeDir:         xdg.Home,
	}
}

// loadOrchestrator loads the configuration and returns an orchestrator that
// prints progress to stdout.
func loadOrchestrator(ctx context.Context) (*config.Config, *orchestrator.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	session := newSession(ctx, cfg)
	if err := session.Store.EnsureRoot(ctx); err != nil {
		return nil, nil, err
	}
	if cfg.Settings.OutputFormat != string(logger.FormatJSON) {
		session.Hooks = installer.Hooks{OnEvent: printStep}
	}
	hooks := orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		switch e.Phase {
		case "done":
		case "error":
			fmt.Fprintf(os.Stderr, "Error: %s: %s\n", e.ID, e.Msg)
		default:
			fmt.Printf("%s: %s (%s)\n", e.Phase, e.Msg, e.ID)
		}
	}}
	return cfg, orchestrator.New(session, hooks), nil
}

func printStep(e installer.Event) {
	switch e.Phase {
	case installer.PhaseCaveats:
		fmt.Printf("==> Caveats for %s\n%s\n", e.Token, e.Msg)
	case installer.PhaseDone:
		fmt.Printf("==> %s\n", e.Msg)
	default:
		logger.Debug(e.Msg, logger.Fields{"phase": e.Phase, "cask": e.Token})
	}
}

// transactionFlags are shared by the commands that change installations.
type transactionFlags struct {
	force        bool
	adopt        bool
	skipCaskDeps bool
	requireSHA   bool
	noQuarantine bool
	noBinaries   bool
	dryRun       bool
}

func addTransactionFlags(cmd *cobra.Command, f *transactionFlags) {
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Overwrite existing artifacts and download again")
	cmd.Flags().BoolVar(&f.adopt, "adopt", false, "Adopt artifacts that already exist at their target")
	cmd.Flags().BoolVar(&f.skipCaskDeps, "skip-cask-deps", false, "Do not install cask dependencies")
	cmd.Flags().BoolVar(&f.requireSHA, "require-sha", false, "Refuse casks without a checksum")
	cmd.Flags().BoolVar(&f.noQuarantine, "no-quarantine", false, "Do not quarantine downloaded files")
	cmd.Flags().BoolVar(&f.noBinaries, "no-binaries", false, "Do not link binaries")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the plan without executing it")
}

// options merges the flags over the configured defaults.
func (f *transactionFlags) options(cfg *config.Config) installer.Options {
	return installer.Options{
		Verbose:      Verbose != nil && *Verbose,
		Force:        f.force,
		Adopt:        f.adopt,
		SkipCaskDeps: f.skipCaskDeps,
		RequireSHA:   f.requireSHA || cfg.Settings.RequireSHA,
		Quarantine:   cfg.Settings.Quarantine && !f.noQuarantine,
		NoBinaries:   f.noBinaries || cfg.Settings.NoBinaries,
	}
}
