// Package fsutil provides file system utilities for the downloader.
//
// This package contains functions for:
//   - Filename and directory-name sanitization
//   - Directory creation
//   - Unique output directory selection
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in
// file/folder names.
//
// This function ensures names are valid across different operating
// systems, particularly Windows which has the most restrictive rules.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Build flows: Part 1/2")  // Returns "Build flows_ Part 1_2"
//	SanitizeFileName("Module...")              // Returns "Module"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they
// don't exist. Directories are created with mode 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ItemDir returns the output directory for an item title under root,
// suffixing " (2)", " (3)", ... when the sanitized name is already
// taken by an earlier item in the same run.
func ItemDir(root, title string, taken map[string]bool) string {
	base := SanitizeFileName(title)
	if base == "" {
		base = "item"
	}
	name := base
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	taken[name] = true
	return filepath.Join(root, name)
}
