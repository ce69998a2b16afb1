// Package discover walks a root directory and returns the test files
// matching a set of include/exclude glob patterns.
package discover

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludes matches the file naming convention most JS/TS test
// runners converge on: a .test. or .spec. infix before any of the
// common module extensions.
var DefaultIncludes = []string{
	"**/*.{test,spec}.{js,mjs,cjs,ts,mts,cts,jsx,tsx}",
}

// DefaultExcludes skips dependency and build output directories that
// are never worth walking into.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/dist/**",
}

// Files walks root and returns every regular file, relative-pathed from
// root, whose slash-normalized relative path matches at least one
// include pattern and no exclude pattern. Returned paths are absolute.
func Files(root string, includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}

	if len(excludes) == 0 {
		excludes = DefaultExcludes
	}

	var matches []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if relPath == "." {
			return nil
		}

		relPath = filepath.ToSlash(relPath)

		if matchesAny(excludes, relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if matchesAny(includes, relPath, false) {
			matches = append(matches, filepath.Join(root, relPath))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk %q: %w", root, err)
	}

	return matches, nil
}

func matchesAny(patterns []string, relPath string, isDir bool) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}

		if isDir {
			if ok, _ := doublestar.Match(pattern, relPath+"/x"); ok {
				return true
			}
		}
	}

	return false
}
