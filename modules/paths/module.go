// Package paths registers file system path helpers.
package paths

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/fsutil"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the namespace.Module interface for this package.
type Module struct{}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	return manifest.RegisterSource(ns, "paths/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"get_all_path":     getAllPath,
		"level_x_path":     levelXPath,
		"join_path":        joinPath,
		"get_runtime_path": getRuntimePath,
		"resource_path":    resourcePath,
		"mkdir":            mkdir,
		"safe_remove":      safeRemove,
	})
}

func getAllPath(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	root, err := args.String("rootdir")
	if err != nil {
		return cty.NilVal, err
	}
	ext, err := args.String("extension")
	if err != nil {
		return cty.NilVal, err
	}

	var files []string
	if ext == "" {
		files, err = fsutil.FindFiles(root)
	} else {
		files, err = fsutil.FindFilesByExtension(root, ext)
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	ctxlog.FromContext(ctx).Debug("Collected files.", "root", root, "count", len(files))
	return ctyutil.StringList(files), nil
}

func levelXPath(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("path")
	if err != nil {
		return cty.NilVal, err
	}
	level, err := args.Int("level")
	if err != nil {
		return cty.NilVal, err
	}
	if level < 1 {
		return cty.NilVal, fmt.Errorf("level must be at least 1, got %d", level)
	}

	entries, err := fsutil.EntriesAtDepth(path, level)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyutil.StringList(entries), nil
}

func joinPath(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("path")
	if err != nil {
		return cty.NilVal, err
	}
	elems := []string{path}
	for i, part := range args.Rest() {
		if part.IsNull() {
			return cty.NilVal, fmt.Errorf("path part %d is null", i)
		}
		elems = append(elems, part.AsString())
	}
	return cty.StringVal(filepath.Join(elems...)), nil
}

func getRuntimePath(context.Context, *namespace.Args) (cty.Value, error) {
	wd, err := os.Getwd()
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(wd), nil
}

func resourcePath(_ context.Context, args *namespace.Args) (cty.Value, error) {
	rel, err := args.String("filepath")
	if err != nil {
		return cty.NilVal, err
	}
	exe, err := os.Executable()
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to locate executable: %w", err)
	}
	return cty.StringVal(filepath.Join(filepath.Dir(exe), rel)), nil
}

func mkdir(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("path")
	if err != nil {
		return cty.NilVal, err
	}
	path = strings.TrimRight(strings.TrimSpace(path), `\`)
	if path == "" {
		return cty.NilVal, errors.New("path is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Ensured directory.", "path", path)
	return cty.StringVal(path), nil
}

func safeRemove(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("file_path")
	if err != nil {
		return cty.NilVal, err
	}
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cty.False, nil
	}
	if err != nil {
		return cty.NilVal, err
	}
	if info.IsDir() {
		return cty.NilVal, fmt.Errorf("%s is a directory", path)
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cty.False, nil
	}
	if err != nil {
		return cty.NilVal, err
	}
	return cty.True, nil
}
