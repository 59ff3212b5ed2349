// Package text registers string layout helpers.
package text

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

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
	return manifest.RegisterSource(ns, "text/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"dedent":            dedent,
		"print_aligned":     printAligned,
		"print_k_v_aligned": printKVAligned,
	})
}

// Dedent removes the longest run of leading spaces and tabs common to all
// non-blank lines. Lines holding only whitespace are emptied and do not
// take part in finding the margin.
func Dedent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	margin := ""
	found := false
	for i, line := range lines {
		body := strings.TrimRight(line, "\n")
		if strings.TrimLeft(body, " \t") == "" {
			lines[i] = line[len(body):]
			continue
		}
		indent := body[:len(body)-len(strings.TrimLeft(body, " \t"))]
		switch {
		case !found:
			margin, found = indent, true
		case strings.HasPrefix(indent, margin):
		case strings.HasPrefix(margin, indent):
			margin = indent
		default:
			margin = commonPrefix(margin, indent)
		}
	}
	if margin == "" {
		return strings.Join(lines, "")
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// Align left-aligns s1 in a field of width characters and appends s2. A
// longer s1 is not truncated.
func Align(s1, s2 string, width int) string {
	pad := width - utf8.RuneCountInString(s1)
	if pad < 0 {
		pad = 0
	}
	return s1 + strings.Repeat(" ", pad) + s2
}

func dedent(_ context.Context, args *namespace.Args) (cty.Value, error) {
	s, err := args.String("text")
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(Dedent(s)), nil
}

func printAligned(_ context.Context, args *namespace.Args) (cty.Value, error) {
	s1, err := args.String("string1")
	if err != nil {
		return cty.NilVal, err
	}
	s2, err := args.String("string2")
	if err != nil {
		return cty.NilVal, err
	}
	width, err := args.Int("align_width")
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(Align(s1, s2, width)), nil
}

func printKVAligned(_ context.Context, args *namespace.Args) (cty.Value, error) {
	src := args.Value("src_dict")
	if ty := src.Type(); !ty.IsObjectType() && !ty.IsMapType() {
		return cty.NilVal, fmt.Errorf("src_dict must be an object, got %s", ty.FriendlyName())
	}
	if src.IsNull() || src.LengthInt() == 0 {
		return cty.NilVal, errors.New("src_dict must not be empty")
	}

	values := src.AsValueMap()
	keys := make([]string, 0, len(values))
	longest := 0
	for k := range values {
		keys = append(keys, k)
		longest = max(longest, utf8.RuneCountInString(k))
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		rendered, err := render(values[k])
		if err != nil {
			return cty.NilVal, err
		}
		lines = append(lines, Align(k, " : "+rendered, longest))
	}
	return ctyutil.StringList(lines), nil
}

// render shows strings as-is and every other value as compact JSON.
func render(v cty.Value) (string, error) {
	if v.Type() == cty.String && !v.IsNull() {
		return v.AsString(), nil
	}
	out, err := ctyutil.MarshalJSON(v, "")
	return string(out), err
}
