// Package jsondata registers helpers for JSON files, recursive object
// merging and encrypted JSON (.jsone) files.
package jsondata

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
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
	return manifest.RegisterSource(ns, "jsondata/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"dict2json":       dict2json,
		"json2dict":       json2dict,
		"merge_dicts":     mergeDicts,
		"merge_all_dicts": mergeAllDicts,
		"dict2jsone":      dict2jsone,
		"json2jsone":      json2jsone,
		"openjsone":       openjsone,
	})
}

func dict2json(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	name, err := args.String("json_name")
	if err != nil {
		return cty.NilVal, err
	}
	dir, err := args.String("json_path")
	if err != nil {
		return cty.NilVal, err
	}
	data, err := ctyutil.MarshalJSON(args.Value("target"), "    ")
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to encode target: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cty.NilVal, err
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Wrote JSON file.", "path", path, "bytes", len(data))
	return cty.StringVal(path), nil
}

func json2dict(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("json_path")
	if err != nil {
		return cty.NilVal, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, err
	}
	val, err := ctyutil.FromJSON(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return val, nil
}

func mergeDicts(_ context.Context, args *namespace.Args) (cty.Value, error) {
	return mergeValues(args.Value("dict1"), args.Value("dict2"))
}

func mergeAllDicts(_ context.Context, args *namespace.Args) (cty.Value, error) {
	dicts := args.Rest()
	switch len(dicts) {
	case 0:
		return cty.EmptyObjectVal, nil
	case 1:
		return dicts[0], nil
	}

	acc := dicts[0]
	for i, next := range dicts[1:] {
		merged, err := mergeValues(acc, next)
		if err != nil {
			return cty.NilVal, fmt.Errorf("dict %d: %w", i+1, err)
		}
		acc = merged
	}
	return acc, nil
}

// mergeValues merges two object or map values.
func mergeValues(a, b cty.Value) (cty.Value, error) {
	left, err := asObject(a)
	if err != nil {
		return cty.NilVal, err
	}
	right, err := asObject(b)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyutil.FromNative(merge(left, right))
}

func asObject(v cty.Value) (map[string]any, error) {
	native, err := ctyutil.ToNative(v)
	if err != nil {
		return nil, err
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return m, nil
}

// merge returns a new map holding every key of a and b. Nested maps present
// on both sides are merged; otherwise b's value wins.
func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, bv := range b {
		av, exists := out[k]
		if exists {
			am, aIsMap := av.(map[string]any)
			bm, bIsMap := bv.(map[string]any)
			if aIsMap && bIsMap {
				out[k] = merge(am, bm)
				continue
			}
		}
		out[k] = bv
	}
	return out
}

func dict2jsone(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	name, err := args.String("jsone_name")
	if err != nil {
		return cty.NilVal, err
	}
	dir, err := args.String("jsone_path")
	if err != nil {
		return cty.NilVal, err
	}
	plain, err := ctyutil.MarshalJSON(args.Value("target"), "")
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to encode target: %w", err)
	}
	return writeEncrypted(ctx, filepath.Join(dir, name+".jsone"), plain)
}

func json2jsone(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	src, err := args.String("json_path")
	if err != nil {
		return cty.NilVal, err
	}
	dst, err := args.String("jsone_path")
	if err != nil {
		return cty.NilVal, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return cty.NilVal, err
	}
	val, err := ctyutil.FromJSON(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse %s: %w", src, err)
	}
	plain, err := ctyutil.MarshalJSON(val, "")
	if err != nil {
		return cty.NilVal, err
	}
	return writeEncrypted(ctx, dst, plain)
}

func writeEncrypted(ctx context.Context, path string, plain []byte) (cty.Value, error) {
	key, err := NewKey()
	if err != nil {
		return cty.NilVal, err
	}
	sealed, err := Encrypt(key, plain)
	if err != nil {
		return cty.NilVal, err
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Info("Encrypted JSON written.", "path", path)
	return cty.ObjectVal(map[string]cty.Value{
		"path": cty.StringVal(path),
		"key":  cty.StringVal(key),
	}), nil
}

func openjsone(_ context.Context, args *namespace.Args) (cty.Value, error) {
	path, err := args.String("jsone_path")
	if err != nil {
		return cty.NilVal, err
	}
	key, err := args.String("key")
	if err != nil {
		return cty.NilVal, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, err
	}
	plain, err := Decrypt(key, sealed)
	if err != nil {
		if errors.Is(err, ErrDecrypt) {
			return cty.NilVal, fmt.Errorf("%s: %w", path, err)
		}
		return cty.NilVal, err
	}
	return ctyutil.FromJSON(plain)
}
