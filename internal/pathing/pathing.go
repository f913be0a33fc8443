// Package pathing resolves file references written inside suite files.
package pathing

import (
	"path/filepath"
	"strings"
)

// IsAbsoluteLike reports whether the path should be treated as absolute
// regardless of host OS path semantics, so suites written on Windows keep
// drive and UNC paths intact elsewhere.
func IsAbsoluteLike(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		return true
	}
	if strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, `//`) || strings.HasPrefix(path, "/") {
		return true
	}
	if len(path) >= 3 && isASCIIAlpha(path[0]) && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return true
	}

	return false
}

// Resolve joins a relative path onto baseDir. Absolute-like paths, paths
// that start with a template action and paths without a base are returned
// trimmed but otherwise unchanged.
func Resolve(path, baseDir string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if IsAbsoluteLike(path) || strings.HasPrefix(path, "{{") || strings.TrimSpace(baseDir) == "" {
		return path
	}

	return filepath.Join(baseDir, path)
}

func isASCIIAlpha(char byte) bool {
	return (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')
}
