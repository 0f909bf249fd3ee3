// Package sorting provides the root-confinement path check unit discovery
// needs when resolving symlink targets.
package sorting

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinBase ensures a path stays within a base directory after cleaning.
func ValidatePathWithinBase(path, basePath string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	// Clean both paths to normalize them
	cleanPath := filepath.Clean(path)
	cleanBase := filepath.Clean(basePath)

	// Make paths absolute for proper comparison
	absBase, err := filepath.Abs(cleanBase)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	var absPath string
	if filepath.IsAbs(cleanPath) {
		absPath = cleanPath
	} else {
		absPath = filepath.Join(absBase, cleanPath)
	}

	// Clean the final path
	absPath = filepath.Clean(absPath)

	// Ensure the final path is within the base directory
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("path escapes base directory")
	}

	return absPath, nil
}
