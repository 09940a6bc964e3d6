// Package security validates output file paths before anything is
// written to them.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory returns an error unless path resolves to
// a location inside dir. Symlinks are resolved on both sides so a link
// cannot smuggle the target outside dir; for paths that do not exist
// yet, the nearest existing ancestor is resolved instead.
func ValidatePathWithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	canonical := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonical = resolved
	} else {
		// The file does not exist yet. Resolve the nearest existing
		// ancestor and re-join the remainder onto it.
		probe := absPath
		for {
			parent := filepath.Dir(probe)
			if parent == probe {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parent); err == nil {
				rel, _ := filepath.Rel(parent, absPath)
				canonical = filepath.Join(resolved, rel)
				break
			}
			probe = parent
		}
	}

	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalDir, canonical)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes %s", path, dir)
	}
	return nil
}

// ValidateOutputPath accepts paths under the working directory or the
// system temp directory, the two places run artifacts may be written.
func ValidateOutputPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	if ValidatePathWithinDirectory(path, cwd) == nil {
		return nil
	}
	if ValidatePathWithinDirectory(path, os.TempDir()) == nil {
		return nil
	}
	return fmt.Errorf("output path %s must be under %s or %s", path, cwd, os.TempDir())
}
