package installer

// Options control a single cask transaction.
type Options struct {
	Verbose bool
	// Force overwrites existing artifacts and installs over an installed cask.
	Force bool
	// Adopt keeps artifacts that already exist at their target.
	Adopt bool
	// Reinstall uninstalls the installed version first.
	Reinstall bool
	// Upgrade marks the new side of an upgrade.
	Upgrade bool
	// Zap makes a reinstall zap instead of uninstall.
	Zap bool
	// SkipCaskDeps skips installing dependencies.
	SkipCaskDeps bool
	// RequireSHA refuses casks without a checksum.
	RequireSHA bool
	Quarantine bool
	// NoBinaries skips binary artifacts.
	NoBinaries bool
	// InstalledAsDependency is set for casks installed to satisfy another one.
	InstalledAsDependency bool
}

// State tracks how far an install got.
type State int

const (
	StateCreated State = iota
	StateFetched
	StateStaged
	StateArtifactsInstalled
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateFetched:
		return "fetched"
	case StateStaged:
		return "staged"
	case StateArtifactsInstalled:
		return "artifacts-installed"
	case StateComplete:
		return "complete"
	}
	return "created"
}

// Event phases.
const (
	PhaseFetching     = "fetching"
	PhaseDependencies = "dependencies"
	PhaseStaging      = "staging"
	PhaseInstalling   = "installing"
	PhaseUninstalling = "uninstalling"
	PhaseZapping      = "zapping"
	PhaseUpgrading    = "upgrading"
	PhaseRollback     = "rollback"
	PhaseCaveats      = "caveats"
	PhaseDone         = "done"
)

// Event represents a progress notification for one cask.
type Event struct {
	Phase string
	Token string
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}
