// Package errors holds the sentinel errors and the typed cask error taxonomy.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileExists  = fmt.Errorf("config file already exists")
	ErrConfigFileRename  = fmt.Errorf("failed to replace config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config")

	// Filesystem errors.
	ErrInvalidPath  = fmt.Errorf("invalid path")
	ErrFileNotFound = fmt.Errorf("file not found")

	// Download errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrDownloadTimeout  = fmt.Errorf("download timed out")
	ErrFileHashMismatch = fmt.Errorf("checksum mismatch")

	// Caskroom errors.
	ErrBackupIncomplete  = fmt.Errorf("backup requires both the staged and the metadata directory")
	ErrNoMetadata        = fmt.Errorf("no metadata snapshot")
	ErrPendingBackup     = fmt.Errorf("an interrupted upgrade left a backup behind")
	ErrUnsupportedFormat = fmt.Errorf("unsupported definition format")

	// Hook errors.
	ErrHookScript = fmt.Errorf("hook script error")

	// Generic errors.
	ErrValidation        = fmt.Errorf("validation failed")
	ErrNoCasksSpecified  = fmt.Errorf("no casks specified")
	ErrCommandFailed     = fmt.Errorf("command failed")
	ErrInvalidLogLevel   = fmt.Errorf("invalid log level")
	ErrInvalidOutput     = fmt.Errorf("invalid output format")
	ErrInvalidConcurrent = fmt.Errorf("download concurrency must be at least 1")
	ErrNegativeTimeout   = fmt.Errorf("http timeout cannot be negative")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
