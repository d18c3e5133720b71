package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/geomood/internal/constants"
)

// GlobalGeomoodPath returns the path to the global .geomood directory.
// On Unix: ~/.geomood
// On Windows: %USERPROFILE%\.geomood
func GlobalGeomoodPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// LocalGeomoodPath returns the path to the .geomood directory for the
// given journal root.
func LocalGeomoodPath(root string) string {
	return filepath.Join(root, constants.DataDirName)
}

// DatabasePath returns the SQLite journal path under root.
func DatabasePath(root string) string {
	return filepath.Join(LocalGeomoodPath(root), constants.DatabaseFileName)
}

// EnsureGlobalGeomoodDir creates the global .geomood directory if it doesn't exist.
func EnsureGlobalGeomoodDir() error {
	globalPath, err := GlobalGeomoodPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .geomood directory: %w", err)
	}

	return nil
}
