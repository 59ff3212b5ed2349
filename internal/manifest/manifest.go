package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Definition is one parsed `function` block.
type Definition struct {
	Name        string
	Description string
	Signature   namespace.Signature
	DeclRange   hcl.Range
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "function", LabelNames: []string{"name"}},
	},
}

var functionSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "returns"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "param", LabelNames: []string{"name"}},
		{Type: "variadic", LabelNames: []string{"name"}},
		{Type: "options", LabelNames: []string{"name"}},
	},
}

// paramSchema is the HCL schema for the body of `param`, `variadic` and
// `options` blocks.
var paramSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		// `type` is required, but we check for its existence manually
		// to provide a better error message.
		{Name: "type"},
		{Name: "description"},
		{Name: "default"},
	},
}

// Parse parses manifest source. The filename is used only in diagnostics.
func Parse(src []byte, filename string) ([]*Definition, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	defs, moreDiags := decodeFile(file.Body)
	return defs, append(diags, moreDiags...)
}

// ParseFile reads and parses a manifest from disk.
func ParseFile(path string) ([]*Definition, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}
	defs, moreDiags := decodeFile(file.Body)
	return defs, append(diags, moreDiags...)
}

func decodeFile(body hcl.Body) ([]*Definition, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	var defs []*Definition
	seen := make(map[string]hcl.Range)
	for _, block := range content.Blocks.OfType("function") {
		name := block.Labels[0]
		if prev, exists := seen[name]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate function definition",
				Detail:   fmt.Sprintf("A function named '%s' was already defined at %s.", name, prev),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[name] = block.DefRange

		def, defDiags := decodeFunction(block)
		diags = append(diags, defDiags...)
		if defDiags.HasErrors() {
			continue
		}
		defs = append(defs, def)
	}
	return defs, diags
}

func decodeFunction(block *hcl.Block) (*Definition, hcl.Diagnostics) {
	def := &Definition{Name: block.Labels[0], DeclRange: block.DefRange}

	content, diags := block.Body.Content(functionSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	if attr, ok := content.Attributes["description"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &def.Description)...)
	}
	if attr, ok := content.Attributes["returns"]; ok {
		ty, typeDiags := typeexpr.TypeConstraint(attr.Expr)
		diags = append(diags, typeDiags...)
		def.Signature.Returns = ty
	} else {
		def.Signature.Returns = cty.DynamicPseudoType
	}

	for _, b := range content.Blocks {
		p, pDiags := decodeParam(b)
		diags = append(diags, pDiags...)
		if pDiags.HasErrors() {
			continue
		}
		switch b.Type {
		case "param":
			def.Signature.Params = append(def.Signature.Params, p)
		case "variadic", "options":
			if p.Default != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unsupported default",
					Detail:   fmt.Sprintf("A %s block cannot declare a default value.", b.Type),
					Subject:  &b.DefRange,
				})
				continue
			}
			target := &def.Signature.Variadic
			if b.Type == "options" {
				target = &def.Signature.Options
			}
			if *target != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  fmt.Sprintf("Duplicate %q block", b.Type),
					Detail:   fmt.Sprintf("Only one %q block is allowed per function.", b.Type),
					Subject:  &b.DefRange,
				})
				continue
			}
			*target = &p
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return def, diags
}

func decodeParam(block *hcl.Block) (namespace.Param, hcl.Diagnostics) {
	p := namespace.Param{Name: block.Labels[0]}

	content, diags := block.Body.Content(paramSchema)
	if diags.HasErrors() {
		return p, diags
	}

	typeAttr, exists := content.Attributes["type"]
	if !exists {
		missingItemRange := block.Body.MissingItemRange()
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing 'type' attribute",
			Detail:   fmt.Sprintf("The 'type' attribute is required for all %s blocks.", block.Type),
			Subject:  &missingItemRange,
		})
		return p, diags
	}

	ty, typeDiags := typeexpr.TypeConstraint(typeAttr.Expr)
	diags = append(diags, typeDiags...)
	if typeDiags.HasErrors() {
		return p, diags
	}
	p.Type = ty

	if attr, ok := content.Attributes["description"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &p.Description)...)
	}

	if attr, ok := content.Attributes["default"]; ok {
		// A nil eval context is used because defaults must be literal values.
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			return p, diags
		}
		converted, err := convert.Convert(val, ty)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid default value type",
				Detail:   fmt.Sprintf("The default value for '%s' is not compatible with its type, '%s': %s.", p.Name, typeexpr.TypeString(ty), err),
				Subject:  attr.Expr.Range().Ptr(),
			})
			return p, diags
		}
		p.Default = &converted
	}

	return p, diags
}
