// Package platform describes the host a cask is installed on and checks
// depends_on requirements against it.
package platform

const (
	// OSDarwin represents the macOS operating system.
	OSDarwin = "darwin"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"

	// ArchIntel is the cask-side name for x86_64 hosts.
	ArchIntel = "intel"
	// ArchARM64 is the cask-side name for Apple silicon hosts.
	ArchARM64 = "arm64"
)

// ValidArch returns the architecture names accepted in depends_on.
func ValidArch() []string {
	return []string{ArchIntel, ArchARM64}
}
