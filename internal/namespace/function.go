package namespace

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Impl is the Go implementation behind a registered function.
type Impl func(ctx context.Context, args *Args) (cty.Value, error)

// Function is a single registered utility.
type Function struct {
	// Name is assigned by the namespace at registration time.
	Name        string
	Description string
	Signature   Signature
	Impl        Impl
}

// Param declares one argument a function accepts.
type Param struct {
	Name string

	// Type is the type the bound value is converted to. The zero value and
	// cty.DynamicPseudoType both mean "any".
	Type cty.Type

	Description string

	// Default is used when the caller does not supply the argument. A nil
	// Default makes the parameter required.
	Default *cty.Value
}

// Required reports whether the caller must supply this parameter.
func (p Param) Required() bool {
	return p.Default == nil
}

// Signature is the declared argument shape of a function.
type Signature struct {
	// Params are filled positionally in order, or by name.
	Params []Param

	// Variadic, when set, collects positional arguments beyond Params. Its
	// Type is the type of each collected element.
	Variadic *Param

	// Options, when set, collects named arguments that match no Param. Its
	// Type is the type of each collected value.
	Options *Param

	// Returns documents the result type. It is not enforced.
	Returns cty.Type
}

// normalize fills in "any" for unset types and converts defaults to their
// declared types. It returns the first inconsistency it finds.
func (s Signature) normalize() (Signature, error) {
	out := Signature{Returns: anyIfNil(s.Returns)}
	seen := make(map[string]struct{}, len(s.Params)+2)

	check := func(p Param, kind string) (Param, error) {
		if !hclsyntax.ValidIdentifier(p.Name) {
			return p, fmt.Errorf("%s name %q is not a valid identifier", kind, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return p, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		p.Type = anyIfNil(p.Type)
		return p, nil
	}

	sawDefault := false
	for _, p := range s.Params {
		p, err := check(p, "parameter")
		if err != nil {
			return out, err
		}
		if p.Default != nil {
			converted, err := convertTo(*p.Default, p.Type)
			if err != nil {
				return out, fmt.Errorf("default for parameter %q does not conform to %s: %w", p.Name, typeexpr.TypeString(p.Type), err)
			}
			p.Default = &converted
			sawDefault = true
		} else if sawDefault {
			return out, fmt.Errorf("required parameter %q follows a parameter with a default", p.Name)
		}
		out.Params = append(out.Params, p)
	}

	if s.Variadic != nil {
		p, err := check(*s.Variadic, "variadic parameter")
		if err != nil {
			return out, err
		}
		p.Default = nil
		out.Variadic = &p
	}
	if s.Options != nil {
		p, err := check(*s.Options, "options parameter")
		if err != nil {
			return out, err
		}
		p.Default = nil
		out.Options = &p
	}
	return out, nil
}

// Format renders the signature as a call prototype, for example
// `level_x_path(path string, level number = 3) -> list(string)`.
func (s Signature) Format(name string) string {
	parts := make([]string, 0, len(s.Params)+2)
	for _, p := range s.Params {
		part := p.Name + " " + typeexpr.TypeString(anyIfNil(p.Type))
		if p.Default != nil {
			part += " = " + formatValue(*p.Default)
		}
		parts = append(parts, part)
	}
	if s.Variadic != nil {
		parts = append(parts, "*"+s.Variadic.Name+" "+typeexpr.TypeString(anyIfNil(s.Variadic.Type)))
	}
	if s.Options != nil {
		parts = append(parts, "**"+s.Options.Name+" "+typeexpr.TypeString(anyIfNil(s.Options.Type)))
	}
	return fmt.Sprintf("%s(%s) -> %s", name, strings.Join(parts, ", "), typeexpr.TypeString(anyIfNil(s.Returns)))
}

func formatValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	return strings.TrimSpace(string(hclwrite.TokensForValue(v).Bytes()))
}

func anyIfNil(t cty.Type) cty.Type {
	if t == cty.NilType {
		return cty.DynamicPseudoType
	}
	return t
}

// convertTo converts v to the declared type. "any" accepts every value as is.
func convertTo(v cty.Value, want cty.Type) (cty.Value, error) {
	if want == cty.DynamicPseudoType {
		return v, nil
	}
	return convert.Convert(v, want)
}
