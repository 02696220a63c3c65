// Package model holds the evaluated cask and the types shared between the
// definition evaluator, the artifact handlers and the installer.
package model

import (
	"path/filepath"
)

const (
	// VersionLatest marks a cask whose URL always serves the newest build.
	VersionLatest = "latest"
	// ChecksumNoCheck disables checksum verification for a cask.
	ChecksumNoCheck = "no_check"
)

// Source formats of a definition snapshot.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Cask is a fully evaluated cask definition. It is immutable after
// evaluation; a configuration change produces a new Cask.
type Cask struct {
	Token         string
	Name          []string
	Version       string
	SHA256        string
	URL           string
	URLHeaders    map[string]string
	Homepage      string
	Artifacts     *ArtifactSet
	DependsOn     DependsOn
	ConflictsWith ConflictsWith
	Caveats       string
	Container     *Container
	AutoUpdates   bool
	OldTokens     []string
	Config        *Config

	// Caskroom is the root directory the cask is staged under.
	Caskroom string

	// Source is the raw definition the cask was evaluated from.
	Source       []byte
	SourceFormat string
	SourcePath   string
}

// DependsOn lists what has to be present before a cask can be installed.
type DependsOn struct {
	Formulae []string
	Casks    []string
	// MacOS is a version constraint such as ">= 12".
	MacOS string
	Arch  []string
}

// ConflictsWith lists casks that cannot be installed alongside.
type ConflictsWith struct {
	Casks []string
}

// Container overrides container detection.
type Container struct {
	Type   string
	Nested string
}

func (c *Cask) String() string {
	return c.Token
}

// IsLatest reports whether the cask is versioned as "latest".
func (c *Cask) IsLatest() bool {
	return c.Version == VersionLatest
}

// NoCheck reports whether checksum verification is disabled.
func (c *Cask) NoCheck() bool {
	return c.SHA256 == ChecksumNoCheck || c.SHA256 == ""
}

// StagedPath is the directory the container is unpacked into.
func (c *Cask) StagedPath() string {
	return filepath.Join(c.Caskroom, c.Token, c.Version)
}

// ArtifactsOfKind returns the artifacts of one kind in declared order.
func (c *Cask) ArtifactsOfKind(kind Kind) []Artifact {
	if c.Artifacts == nil {
		return nil
	}
	var out []Artifact
	for _, a := range c.Artifacts.All() {
		if a.Kind() == kind {
			out = append(out, a)
		}
	}
	return out
}

// HasDependencies reports whether the cask declares any cask or formula dependency.
func (c *Cask) HasDependencies() bool {
	return len(c.DependsOn.Casks) > 0 || len(c.DependsOn.Formulae) > 0
}
