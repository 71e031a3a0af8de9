// Package cmtignore parses .cmtignore patterns.
package cmtignore

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const ignoreFileName = ".cmtignore"

// Mod Organizer hides files by appending .mohidden, so the game never
// loads them and the scanner should not report them.
const hiddenPattern = "**/*.mohidden"

// ListPatterns reads rootDir/.cmtignore and returns its patterns combined
// with the built-in ones and any extra patterns, typically the
// scanner_ignore_patterns setting. Blank lines and # comments are skipped.
func ListPatterns(fs afero.Fs, rootDir string, extra ...string) ([]string, error) {
	ignoreFile := filepath.Join(rootDir, ignoreFileName)
	exists, err := afero.Exists(fs, ignoreFile)
	if err != nil {
		return nil, err
	}

	patterns := []string{hiddenPattern}
	if exists {
		data, err := afero.ReadFile(fs, ignoreFile)
		if err != nil {
			return nil, err
		}

		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	}

	for _, pattern := range extra {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// IsIgnored reports whether absolutePath matches any of the patterns.
// Patterns are relative to rootDir; paths outside rootDir never match.
func IsIgnored(rootDir string, absolutePath string, patterns []string) bool {
	cleanRoot := filepath.Clean(rootDir)
	cleanPath := filepath.Clean(absolutePath)

	if cleanPath != cleanRoot && !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) {
		return false
	}

	rel := strings.TrimPrefix(cleanPath, cleanRoot)
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	rel = filepath.ToSlash(rel)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if globMatch(pattern, rel) {
			return true
		}
	}

	return false
}

// globMatch matches a slash-separated glob against a slash-separated
// relative path. ** spans any number of path segments. Matching is
// case-insensitive because the game treats paths that way on Windows.
func globMatch(pattern string, target string) bool {
	pattern = strings.ToLower(strings.TrimPrefix(pattern, "./"))
	target = strings.ToLower(strings.TrimPrefix(target, "./"))

	patternParts := strings.Split(pattern, "/")
	targetParts := strings.Split(target, "/")

	var match func(pi, ti int) bool
	match = func(pi, ti int) bool {
		if pi == len(patternParts) {
			return ti == len(targetParts)
		}

		part := patternParts[pi]
		if part == "**" {
			for skip := ti; skip <= len(targetParts); skip++ {
				if match(pi+1, skip) {
					return true
				}
			}
			return false
		}

		if ti >= len(targetParts) {
			return false
		}

		ok, err := filepath.Match(part, targetParts[ti])
		if err != nil || !ok {
			return false
		}
		return match(pi+1, ti+1)
	}

	return match(0, 0)
}
