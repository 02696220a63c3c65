package model

// Kind names an artifact stanza.
type Kind string

// Artifact kinds.
const (
	KindApp                 Kind = "app"
	KindSuite               Kind = "suite"
	KindPrefPane            Kind = "prefpane"
	KindQLPlugin            Kind = "qlplugin"
	KindFont                Kind = "font"
	KindService             Kind = "service"
	KindBinary              Kind = "binary"
	KindPkg                 Kind = "pkg"
	KindInstaller           Kind = "installer"
	KindPreflight           Kind = "preflight"
	KindPostflight          Kind = "postflight"
	KindUninstallPreflight  Kind = "uninstall_preflight"
	KindUninstallPostflight Kind = "uninstall_postflight"
	KindUninstall           Kind = "uninstall"
	KindZap                 Kind = "zap"
	KindStageOnly           Kind = "stage_only"
)

// Singular returns true for kinds that may appear at most once per cask.
func (k Kind) Singular() bool {
	switch k {
	case KindPreflight, KindPostflight, KindUninstallPreflight, KindUninstallPostflight,
		KindUninstall, KindZap, KindStageOnly:
		return true
	}
	return false
}

// Activatable returns true for kinds that place something on the system.
func (k Kind) Activatable() bool {
	switch k {
	case KindApp, KindSuite, KindPrefPane, KindQLPlugin, KindFont, KindService,
		KindBinary, KindPkg, KindInstaller:
		return true
	}
	return false
}

// Rank orders kinds for installation. The uninstall stanza runs before the
// artifacts it may depend on are removed, pkg before the apps it may
// provide, binaries after the apps they link into.
func (k Kind) Rank() int {
	switch k {
	case KindPreflight, KindUninstallPreflight:
		return 0
	case KindUninstall:
		return 1
	case KindInstaller:
		return 2
	case KindPkg:
		return 3
	case KindApp, KindSuite, KindPrefPane, KindQLPlugin, KindFont, KindService:
		return 4
	case KindBinary:
		return 5
	case KindPostflight, KindUninstallPostflight:
		return 6
	case KindZap:
		return 7
	}
	return 8
}

// Artifact is one installable unit of a cask.
type Artifact interface {
	Kind() Kind
	// Key identifies the artifact structurally; equal keys are duplicates.
	Key() string
	String() string
}

// ArtifactSet keeps artifacts in insertion order and drops structural duplicates.
type ArtifactSet struct {
	items []Artifact
	keys  map[string]struct{}
}

// NewArtifactSet returns a set holding artifacts in order.
func NewArtifactSet(artifacts ...Artifact) *ArtifactSet {
	s := &ArtifactSet{keys: make(map[string]struct{})}
	for _, a := range artifacts {
		s.Add(a)
	}
	return s
}

// Add appends a unless an artifact with the same key is already present.
// It reports whether a was added.
func (s *ArtifactSet) Add(a Artifact) bool {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	key := string(a.Kind()) + ":" + a.Key()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	s.items = append(s.items, a)
	return true
}

// All returns the artifacts in insertion order.
func (s *ArtifactSet) All() []Artifact {
	if s == nil {
		return nil
	}
	out := make([]Artifact, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of artifacts.
func (s *ArtifactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}
