package orchestrator

import (
	"time"

	"github.com/glorpus-work/brewcask/pkg/installer"
)

// Orchestrator runs cask transactions over a list of tokens and collects
// per-cask failures.
type Orchestrator struct {
	Session *installer.Session
	Hooks   Hooks // Hooks for progress and event notifications
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // planning|fetching|installing|uninstalling|upgrading|recovering|done|error
	ID    string // cask token
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// InstallOptions control install and reinstall batches.
type InstallOptions struct {
	installer.Options
	DryRun bool
}

// UninstallOptions control uninstall and zap batches.
type UninstallOptions struct {
	installer.Options
	DryRun bool
}

// UpgradeOptions control upgrade batches.
type UpgradeOptions struct {
	installer.Options
	// Greedy includes casks that update themselves or track "latest".
	Greedy bool
	DryRun bool
}

// FetchOptions control prefetching.
type FetchOptions struct {
	Concurrency int
	RequireSHA  bool
	Force       bool
}

// OutdatedCask describes an installed cask with a newer definition.
type OutdatedCask struct {
	Token     string `json:"token"`
	Installed string `json:"installed"`
	Current   string `json:"current"`
}

// CleanupOptions control cache cleanup.
type CleanupOptions struct {
	// All removes every download, referenced or not.
	All bool
	// MaxAge keeps unreferenced downloads younger than this.
	MaxAge time.Duration
	DryRun bool
}
