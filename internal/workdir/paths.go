// Package workdir resolves the on-disk layout under the helpdesk data
// directory (~/.helpdesk by default).
package workdir

import (
	"os"
	"path/filepath"
)

// Base returns the root data directory.
func Base() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".helpdesk")
}

// DBPath returns the app-owned helpdesk.db path.
func DBPath(base string) string {
	return filepath.Join(base, "helpdesk.db")
}

// SessionDBPath returns the whatsmeow credential store path.
func SessionDBPath(base string) string {
	return filepath.Join(base, "session.db")
}

// ConfigPath returns the config.toml path.
func ConfigPath(base string) string {
	return filepath.Join(base, "config.toml")
}

// LogDir returns the log directory.
func LogDir(base string) string {
	return filepath.Join(base, "logs")
}

// LogPath returns the daemon log file path.
func LogPath(base string) string {
	return filepath.Join(LogDir(base), "helpdeskd.log")
}

// Ensure creates the data directory tree with owner-only permissions.
func Ensure(base string) error {
	for _, d := range []string{base, LogDir(base)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
