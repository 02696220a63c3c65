package errors

import (
	"fmt"
	"strings"
)

// CaskError is implemented by every error that concerns a single cask.
type CaskError interface {
	error
	CaskToken() string
}

// NotInstalledError is returned when an operation requires an installed cask.
type NotInstalledError struct {
	Token string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("Cask '%s' is not installed.", e.Token)
}

// CaskToken returns the cask token.
func (e *NotInstalledError) CaskToken() string { return e.Token }

// AlreadyInstalledError is returned by a plain install of an installed cask.
type AlreadyInstalledError struct {
	Token string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("Cask '%s' is already installed.\n\nTo re-install %s, run:\n  brewcask reinstall %s", e.Token, e.Token, e.Token)
}

// CaskToken returns the cask token.
func (e *AlreadyInstalledError) CaskToken() string { return e.Token }

// ConflictError reports an installed cask listed in conflicts_with.
type ConflictError struct {
	Token       string
	Conflicting string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Cask '%s' conflicts with '%s'.", e.Token, e.Conflicting)
}

// CaskToken returns the cask token.
func (e *ConflictError) CaskToken() string { return e.Token }

// SelfDependencyError is returned when a cask lists itself as a dependency.
type SelfDependencyError struct {
	Token string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("Cask '%s' depends on itself.", e.Token)
}

// CaskToken returns the cask token.
func (e *SelfDependencyError) CaskToken() string { return e.Token }

// CyclicDependencyError lists the members of a dependency cycle.
type CyclicDependencyError struct {
	Token string
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("Cask '%s' includes cyclic dependencies on other Casks: %s.", e.Token, ToSentence(e.Cycle))
}

// CaskToken returns the cask token.
func (e *CyclicDependencyError) CaskToken() string { return e.Token }

// DownloadError wraps a failed or unverifiable download.
type DownloadError struct {
	Token string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("Download failed on Cask '%s' with message: %v", e.Token, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// CaskToken returns the cask token.
func (e *DownloadError) CaskToken() string { return e.Token }

// DownloadTimeoutError is returned when fetching a cask exceeds its deadline.
type DownloadTimeoutError struct {
	Token string
	Err   error
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("Downloading Cask '%s' timed out: %v", e.Token, e.Err)
}

func (e *DownloadTimeoutError) Unwrap() error { return e.Err }

// CaskToken returns the cask token.
func (e *DownloadTimeoutError) CaskToken() string { return e.Token }

// UnavailableError is returned when no definition exists for a reference.
type UnavailableError struct {
	Token  string
	Reason string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Cask '%s' is unavailable.", e.Token)
	}
	return fmt.Sprintf("Cask '%s' is unavailable: %s", e.Token, e.Reason)
}

// CaskToken returns the cask token.
func (e *UnavailableError) CaskToken() string { return e.Token }

// UnreadableError is returned when a definition exists but cannot be parsed.
type UnreadableError struct {
	Token string
	Err   error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("Cask '%s' is unreadable: %v", e.Token, e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

// CaskToken returns the cask token.
func (e *UnreadableError) CaskToken() string { return e.Token }

// InvalidDefinitionError is returned for structurally invalid definitions.
type InvalidDefinitionError struct {
	Token  string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("Cask '%s' definition is invalid: %s", e.Token, e.Reason)
}

// CaskToken returns the cask token.
func (e *InvalidDefinitionError) CaskToken() string { return e.Token }

// RequirementError is returned when the host does not satisfy depends_on.
type RequirementError struct {
	Token       string
	Requirement string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("Cask '%s' requires %s.", e.Token, e.Requirement)
}

// CaskToken returns the cask token.
func (e *RequirementError) CaskToken() string { return e.Token }

// NoShasumError is returned when require-sha is set and the cask has no checksum.
type NoShasumError struct {
	Token string
}

func (e *NoShasumError) Error() string {
	return fmt.Sprintf("Cask '%s' does not have a sha256 checksum defined and was not installed.\n"+
		"This means you have the --require-sha option set, perhaps in BREWCASK_REQUIRE_SHA.", e.Token)
}

// CaskToken returns the cask token.
func (e *NoShasumError) CaskToken() string { return e.Token }

// ExtractionError is returned when a container cannot be staged.
type ExtractionError struct {
	Token string
	Path  string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("Cask '%s': failed to extract %s: %v", e.Token, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CaskToken returns the cask token.
func (e *ExtractionError) CaskToken() string { return e.Token }

// QuarantineError reports a failed xattr operation.
type QuarantineError struct {
	Op   string // propagate|release
	Path string
	Err  error
}

func (e *QuarantineError) Error() string {
	return fmt.Sprintf("failed to %s quarantine for %s: %v", e.Op, e.Path, e.Err)
}

func (e *QuarantineError) Unwrap() error { return e.Err }

// ArtifactError names the cask and artifact a handler failed on.
type ArtifactError struct {
	Token    string
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("Cask '%s': %s: %v", e.Token, e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// CaskToken returns the cask token.
func (e *ArtifactError) CaskToken() string { return e.Token }

// ToSentence joins words as an English list: "a", "a and b", "a, b and c".
func ToSentence(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
