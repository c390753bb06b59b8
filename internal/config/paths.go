package config

import (
	"os"
	"path/filepath"
)

// JustdraftPath returns the root directory for justdraft data.
// It uses $JUSTDRAFT_PATH if set, otherwise defaults to ~/.justdraft.
func JustdraftPath() string {
	if v := os.Getenv("JUSTDRAFT_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".justdraft")
	}
	return filepath.Join(home, ".justdraft")
}

// ConfigPath returns the path to the justdraft config file.
func ConfigPath() string {
	return filepath.Join(JustdraftPath(), "config.jsonc")
}

// DotenvPath returns the path to the justdraft .env file.
func DotenvPath() string {
	return filepath.Join(JustdraftPath(), ".env")
}

// ProfilesDir returns the directory holding extraction profiles.
func ProfilesDir() string {
	return filepath.Join(JustdraftPath(), "profiles")
}

// UsagePath returns the default path of the sqlite usage ledger.
func UsagePath() string {
	return filepath.Join(JustdraftPath(), "usage.db")
}
