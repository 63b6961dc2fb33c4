package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultOwnerID = "1"
	DefaultGroupID = "0"
)

// DatabasePath returns the database path from the HEXMAP_DB env var, falling
// back to the XDG data directory.
func DatabasePath() string {
	if env := os.Getenv("HEXMAP_DB"); env != "" {
		return env
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "hexmap", "hexmap.db")
}

// OwnerID returns the map owner from HEXMAP_OWNER, falling back to
// DefaultOwnerID.
func OwnerID() string {
	if env := os.Getenv("HEXMAP_OWNER"); env != "" {
		return env
	}
	return DefaultOwnerID
}

// GroupID returns the map group from HEXMAP_GROUP, falling back to
// DefaultGroupID.
func GroupID() string {
	if env := os.Getenv("HEXMAP_GROUP"); env != "" {
		return env
	}
	return DefaultGroupID
}

// RootCoordID returns the coordinate id of the configured map's root.
func RootCoordID() string {
	return OwnerID() + "," + GroupID()
}
