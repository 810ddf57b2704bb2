// Package library finds the music files under the library root.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/llehouerou/decomposer/internal/decoder"
)

// Scan walks root and returns the paths of all playable files, sorted.
// Unreadable entries below root are skipped; a root that cannot be read is
// an error.
func Scan(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s: not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Skip any walk errors - intentionally continuing to scan other paths
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() || !decoder.IsMusicFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
