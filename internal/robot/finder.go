package robot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover expands the given paths into the sorted list of suite files they
// contain. A path may be a single .robot file or a directory searched
// recursively. Initialization files configure directories rather than
// declare tests, so they are skipped.
func Discover(paths []string) ([]string, error) {
	var suites []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read suite path: %w", err)
		}

		if !info.IsDir() {
			if isSuiteFile(path) {
				suites = append(suites, path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSuiteFile(p) {
				suites = append(suites, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(suites)
	return suites, nil
}

func isSuiteFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".robot") && !strings.EqualFold(name, "__init__.robot")
}
