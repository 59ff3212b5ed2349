// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	return walkFiles(rootPath, func(name string) bool {
		return strings.HasSuffix(name, extension)
	})
}

// FindFiles recursively collects every regular file below rootPath.
func FindFiles(rootPath string) ([]string, error) {
	return walkFiles(rootPath, func(string) bool { return true })
}

func walkFiles(rootPath string, match func(name string) bool) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// EntriesAtDepth returns the paths of all entries (files and directories)
// exactly depth levels below rootPath. Depth 1 is the directory listing of
// rootPath itself. Files found above the target depth are not descended into.
func EntriesAtDepth(rootPath string, depth int) ([]string, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, entry := range entries {
		path := filepath.Join(rootPath, entry.Name())
		if depth <= 1 {
			out = append(out, path)
			continue
		}
		if !entry.IsDir() {
			continue
		}
		nested, err := EntriesAtDepth(path, depth-1)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
