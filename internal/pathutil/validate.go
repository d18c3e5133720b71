// Package pathutil keeps backup and restore paths inside the geomood data directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/geomood/internal/constants"
)

const backupsDirName = "backups"

// RedactPath shortens path to its last two elements for error messages,
// so "/home/user/.geomood/config.yaml" prints as ".../.geomood/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ErrOutside reports a path that is not under any allowed directory.
var ErrOutside = errors.New("outside allowed directories")

// ValidatePath checks that path names a file inside one of allowedDirs.
// The existing part of the path is resolved through symlinks before the
// check, so a link inside an allowed directory cannot point out of it.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, 0):
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	// The file itself may not exist yet; resolve its directory.
	dir, err := resolveExistingParent(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	for _, allowed := range allowedDirs {
		if within(target, allowed) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is %w", RedactPath(abs), ErrOutside)
}

// within reports whether target is dir or below it, after resolving dir.
func within(target, dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	base, err := resolveExistingParent(abs)
	if err != nil {
		return false
	}
	return target == base || strings.HasPrefix(target, base+string(os.PathSeparator))
}

// resolveExistingParent evaluates symlinks on the deepest ancestor of dir
// that exists and appends the rest unchanged.
func resolveExistingParent(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolved, err := resolveExistingParent(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolved, filepath.Base(dir)), nil
}

// BackupDirs returns the directories backups may be read from or written
// to: ~/.geomood/backups and, when root is set, <root>/.geomood/backups.
func BackupDirs(root string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{filepath.Join(homeDir, constants.DataDirName, backupsDirName)}
	if root != "" {
		dirs = append(dirs, filepath.Join(root, constants.DataDirName, backupsDirName))
	}
	return dirs, nil
}

// ValidateBackupPath checks that path is inside one of BackupDirs(root).
func ValidateBackupPath(path, root string) error {
	dirs, err := BackupDirs(root)
	if err != nil {
		return err
	}
	return ValidatePath(path, dirs)
}
