// Package archive registers readers for zip archives, including zips nested
// one level inside another zip.
package archive

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// ErrNoMatch is returned when no archive entry matches the keyword.
var ErrNoMatch = errors.New("no matching entry in archive")

// Module implements the namespace.Module interface for this package.
type Module struct{}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	return manifest.RegisterSource(ns, "archive/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"zip_read":  zipRead,
		"zip2_read": zip2Read,
	})
}

// ReadEntry returns the lines of the last entry in the zip at path whose
// name contains keyword.
func ReadEntry(path, keyword string) ([]string, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()

	lines, err := lastMatch(&rc.Reader, keyword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// ReadNestedEntry opens every entry of the zip at path whose name contains
// "."+subType as a zip of its own and returns the lines of the last inner
// entry whose name contains keyword.
func ReadNestedEntry(ctx context.Context, path, subType, keyword string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	outer, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer outer.Close()

	var found []string
	matched := false
	for _, f := range outer.File {
		if f.FileInfo().IsDir() || !strings.Contains(f.Name, "."+subType) {
			continue
		}
		data, err := readAll(f)
		if err != nil {
			return nil, err
		}
		inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("%s: entry %s is not a zip: %w", path, f.Name, err)
		}
		lines, err := lastMatch(inner, keyword)
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s!%s: %w", path, f.Name, err)
		}
		logger.Debug("Matched nested archive entry.", "archive", f.Name, "keyword", keyword)
		found, matched = lines, true
	}
	if !matched {
		return nil, fmt.Errorf("%s: %w", path, ErrNoMatch)
	}
	return found, nil
}

func lastMatch(r *zip.Reader, keyword string) ([]string, error) {
	var match *zip.File
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && strings.Contains(f.Name, keyword) {
			match = f
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w for %q", ErrNoMatch, keyword)
	}
	data, err := readAll(match)
	if err != nil {
		return nil, err
	}
	return splitLines(data)
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func splitLines(data []byte) ([]string, error) {
	lines := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), len(data)+1)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func zipRead(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("zippath")
	if err != nil {
		return cty.NilVal, err
	}
	keyword, err := args.String("filekeyword")
	if err != nil {
		return cty.NilVal, err
	}
	lines, err := ReadEntry(path, keyword)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyutil.StringList(lines), nil
}

func zip2Read(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("zippath")
	if err != nil {
		return cty.NilVal, err
	}
	subType, err := args.String("subziptype")
	if err != nil {
		return cty.NilVal, err
	}
	keyword, err := args.String("filekeyword")
	if err != nil {
		return cty.NilVal, err
	}
	lines, err := ReadNestedEntry(ctx, path, subType, keyword)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyutil.StringList(lines), nil
}
