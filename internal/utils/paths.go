// Package utils holds small helpers shared by the CLI and the services.
package utils

import "path/filepath"

// ResolvePath resolves path against baseDir. Absolute paths, empty paths
// and paths with no base directory are returned cleaned but otherwise
// unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
