package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// defaultPatterns are the formats the scan pipeline accepts.
var defaultPatterns = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.pdf"}

// discoverFiles expands paths into report card files. Explicit files skip the default
// format filter but still honour include and exclude patterns.
func discoverFiles(paths []string, recursive bool, include, exclude []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			if shouldInclude(p, include, exclude) {
				files = append(files, p)
			}
			continue
		}

		patterns := include
		if len(patterns) == 0 {
			patterns = defaultPatterns
		}
		found, err := walkDir(p, recursive, patterns, exclude)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func walkDir(dir string, recursive bool, include, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldInclude(path, include, exclude) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldInclude applies exclude patterns first, then include patterns when any are set.
func shouldInclude(path string, include, exclude []string) bool {
	if matchesAny(path, exclude) {
		return false
	}
	return len(include) == 0 || matchesAny(path, include)
}

// matchesAny matches the base name case-insensitively.
func matchesAny(path string, patterns []string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), base); ok {
			return true
		}
	}
	return false
}
