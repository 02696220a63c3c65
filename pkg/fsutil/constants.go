// Package fsutil provides file system helpers shared by the caskroom, the
// artifact handlers and the download cache.
package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	FileModeSecure  = 0o640 // -rw-r-----
	FileModeExec    = 0o755 // -rwxr-xr-x

	DirModeDefault = 0o755 // drwxr-xr-x
	DirModeSecure  = 0o750 // drwxr-x---
	DirModePrivate = 0o700 // drwx------

	// ModeUserWrite is OR-ed into staged files so a later purge can remove them.
	ModeUserWrite = 0o200
)
