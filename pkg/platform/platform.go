package platform

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/hashicorp/go-version"
)

// Platform represents the host the installer runs on.
type Platform struct {
	OS           string `yaml:"os" json:"os"`
	Arch         string `yaml:"arch" json:"arch"`
	MacOSVersion string `yaml:"macos_version,omitempty" json:"macos_version,omitempty"`
}

// CurrentPlatform returns the host platform. The macOS version is read from
// sw_vers when running on darwin and left empty elsewhere.
func CurrentPlatform(ctx context.Context, runner command.Runner) Platform {
	p := Platform{OS: runtime.GOOS, Arch: NormalizeArch(runtime.GOARCH)}
	if p.OS == OSDarwin && runner != nil {
		if res, err := runner.Run(ctx, command.Cmd{Name: "/usr/bin/sw_vers", Args: []string{"-productVersion"}}); err == nil {
			p.MacOSVersion = strings.TrimSpace(res.Stdout)
		}
	}
	return p
}

// String returns a string representation of the platform
func (p Platform) String() string {
	if p.MacOSVersion != "" {
		return fmt.Sprintf("%s/%s (macOS %s)", p.OS, p.Arch, p.MacOSVersion)
	}
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// NormalizeArch maps Go and uname architecture names to cask architecture names.
func NormalizeArch(arch string) string {
	switch strings.ToLower(arch) {
	case "amd64", "x86_64", "x64", "intel", "i386":
		return ArchIntel
	case "arm64", "aarch64", "arm":
		return ArchARM64
	default:
		return strings.ToLower(arch)
	}
}

// MatchesArch reports whether the host architecture is one of archs.
// An empty list matches every host.
func (p Platform) MatchesArch(archs []string) bool {
	if len(archs) == 0 {
		return true
	}
	host := NormalizeArch(p.Arch)
	return slices.ContainsFunc(archs, func(a string) bool { return NormalizeArch(a) == host })
}

// SatisfiesMacOS checks the host macOS version against a constraint such as
// ">= 12" or ">= 11, < 14". An empty constraint is always satisfied; a
// non-empty one is never satisfied off macOS.
func (p Platform) SatisfiesMacOS(constraint string) (bool, error) {
	if strings.TrimSpace(constraint) == "" {
		return true, nil
	}
	c, err := version.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid macOS constraint %q: %w", constraint, err)
	}
	if p.OS != OSDarwin || p.MacOSVersion == "" {
		return false, nil
	}
	v, err := version.NewVersion(p.MacOSVersion)
	if err != nil {
		return false, fmt.Errorf("invalid macOS version %q: %w", p.MacOSVersion, err)
	}
	return c.Check(v), nil
}
