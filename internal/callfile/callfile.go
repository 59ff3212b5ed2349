package callfile

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/dmutils/internal/dag"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// Root names available to expressions in a call file.
const (
	EnvRoot    = "env"
	ResultRoot = "result"
)

// Call is one parsed `call` block.
type Call struct {
	Label    string
	Function string

	// Args evaluates to a tuple or list of positional arguments. Nil when absent.
	Args hcl.Expression
	// Named evaluates to an object or map of named arguments. Nil when absent.
	Named hcl.Expression

	// DependsOn lists the labels this call waits for, sorted.
	DependsOn []string
	DeclRange hcl.Range
}

// File is a loaded call file.
type File struct {
	Filename string
	// Calls in file order.
	Calls []*Call
	// Levels groups call labels so every call's dependencies sit in an
	// earlier level.
	Levels [][]string

	byLabel map[string]*Call
}

// Call returns the call with the given label.
func (f *File) Call(label string) (*Call, bool) {
	c, ok := f.byLabel[label]
	return c, ok
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "call", LabelNames: []string{"label"}},
	},
}

var callSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "function", Required: true},
		{Name: "args"},
		{Name: "named"},
		{Name: "depends_on"},
	},
}

// Parse parses call file source. The filename is used only in diagnostics.
func Parse(src []byte, filename string) (*File, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decode(hclFile.Body, filename)
}

// ParseFile reads and parses a call file from disk.
func ParseFile(path string) (*File, hcl.Diagnostics) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Failed to read file",
			Detail:   fmt.Sprintf("The call file %q could not be read: %s.", path, err),
		}}
	}
	return Parse(src, path)
}

func decode(body hcl.Body, filename string) (*File, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	file := &File{Filename: filename, byLabel: make(map[string]*Call)}
	for _, block := range content.Blocks {
		label := block.Labels[0]
		if prev, exists := file.byLabel[label]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate call label",
				Detail:   fmt.Sprintf("A call labeled '%s' was already declared at %s.", label, prev.DeclRange),
				Subject:  &block.DefRange,
			})
			continue
		}

		call, callDiags := decodeCall(block)
		diags = append(diags, callDiags...)
		if call == nil {
			continue
		}
		file.byLabel[label] = call
		file.Calls = append(file.Calls, call)
	}
	if diags.HasErrors() {
		return nil, diags
	}

	diags = append(diags, file.link()...)
	if diags.HasErrors() {
		return nil, diags
	}
	return file, diags
}

func decodeCall(block *hcl.Block) (*Call, hcl.Diagnostics) {
	call := &Call{Label: block.Labels[0], DeclRange: block.DefRange}

	content, diags := block.Body.Content(callSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	// A nil eval context is used because the function name must be a literal.
	diags = append(diags, gohcl.DecodeExpression(content.Attributes["function"].Expr, nil, &call.Function)...)
	if attr, ok := content.Attributes["args"]; ok {
		call.Args = attr.Expr
	}
	if attr, ok := content.Attributes["named"]; ok {
		call.Named = attr.Expr
	}

	deps := make(map[string]struct{})
	for _, expr := range call.expressions() {
		for _, traversal := range expr.Variables() {
			label, refDiags := resultLabel(traversal)
			diags = append(diags, refDiags...)
			if label != "" {
				deps[label] = struct{}{}
			}
		}
	}

	if attr, ok := content.Attributes["depends_on"]; ok {
		traversals, travDiags := traversalList(attr.Expr)
		diags = append(diags, travDiags...)
		for _, traversal := range traversals {
			label, refDiags := resultLabel(traversal)
			diags = append(diags, refDiags...)
			if label == "" && !refDiags.HasErrors() {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid depends_on reference",
					Detail:   fmt.Sprintf("Entries in depends_on must be of the form %s.<label>.", ResultRoot),
					Subject:  traversal.SourceRange().Ptr(),
				})
				continue
			}
			if label != "" {
				deps[label] = struct{}{}
			}
		}
	}

	for label := range deps {
		call.DependsOn = append(call.DependsOn, label)
	}
	slices.Sort(call.DependsOn)

	if diags.HasErrors() {
		return nil, diags
	}
	return call, diags
}

func (c *Call) expressions() []hcl.Expression {
	var exprs []hcl.Expression
	if c.Args != nil {
		exprs = append(exprs, c.Args)
	}
	if c.Named != nil {
		exprs = append(exprs, c.Named)
	}
	return exprs
}

// resultLabel returns the label a `result.<label>` traversal refers to. For
// `env.<NAME>` it returns "". Any other root is an error.
func resultLabel(traversal hcl.Traversal) (string, hcl.Diagnostics) {
	switch traversal.RootName() {
	case EnvRoot:
		return "", nil
	case ResultRoot:
		if len(traversal) < 2 {
			break
		}
		if attr, ok := traversal[1].(hcl.TraverseAttr); ok {
			return attr.Name, nil
		}
	default:
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown variable",
			Detail:   fmt.Sprintf("There is no variable named %q. Expressions may refer to %s.<NAME> and %s.<label>.", traversal.RootName(), EnvRoot, ResultRoot),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	return "", hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid result reference",
		Detail:   fmt.Sprintf("A reference to a call result must be of the form %s.<label>, got %s.", ResultRoot, traversalString(traversal)),
		Subject:  traversal.SourceRange().Ptr(),
	}}
}

func traversalList(expr hcl.Expression) ([]hcl.Traversal, hcl.Diagnostics) {
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([]hcl.Traversal, 0, len(exprs))
	for _, e := range exprs {
		traversal, travDiags := hcl.AbsTraversalForExpr(e)
		diags = append(diags, travDiags...)
		if !travDiags.HasErrors() {
			out = append(out, traversal)
		}
	}
	return out, diags
}

func traversalString(t hcl.Traversal) string {
	return strings.TrimSpace(string(hclwrite.TokensForTraversal(t).Bytes()))
}

// link checks that every dependency exists, builds the dependency graph and
// computes the execution levels.
func (f *File) link() hcl.Diagnostics {
	var diags hcl.Diagnostics
	graph := dag.New()
	for _, c := range f.Calls {
		graph.AddNode(c.Label)
	}
	for _, c := range f.Calls {
		for _, dep := range c.DependsOn {
			if _, ok := f.byLabel[dep]; !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Reference to undeclared call",
					Detail:   fmt.Sprintf("Call '%s' refers to %s.%s, but no call with that label is declared.", c.Label, ResultRoot, dep),
					Subject:  c.DeclRange.Ptr(),
				})
				continue
			}
			if err := graph.AddEdge(dep, c.Label); err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid dependency",
					Detail:   fmt.Sprintf("Call '%s': %s.", c.Label, err),
					Subject:  c.DeclRange.Ptr(),
				})
			}
		}
	}
	if diags.HasErrors() {
		return diags
	}

	levels, err := graph.Levels()
	if err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Dependency cycle",
			Detail:   fmt.Sprintf("The calls in %s cannot be ordered: %s.", f.Filename, cycleDetail(err)),
		}}
	}
	f.Levels = levels
	return nil
}

func cycleDetail(err error) string {
	var cycle *dag.CycleError
	if errors.As(err, &cycle) {
		return "cycle " + strings.Join(cycle.Path, " -> ")
	}
	return err.Error()
}

// EvalContext builds the evaluation context for expressions: env holds the
// given environment and result the values of the calls finished so far.
func EvalContext(env map[string]string, results map[string]cty.Value) *hcl.EvalContext {
	envVals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		envVals[k] = cty.StringVal(v)
	}
	resultVals := make(map[string]cty.Value, len(results))
	for k, v := range results {
		if v.Type() == cty.NilType {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		resultVals[k] = v
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			EnvRoot:    cty.ObjectVal(envVals),
			ResultRoot: cty.ObjectVal(resultVals),
		},
	}
}

// Evaluate evaluates the call's argument expressions into a namespace.Call.
func (c *Call) Evaluate(ctx *hcl.EvalContext) (namespace.Call, hcl.Diagnostics) {
	var out namespace.Call
	var diags hcl.Diagnostics

	if c.Args != nil {
		val, valDiags := c.Args.Value(ctx)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			ty := val.Type()
			switch {
			case val.IsNull():
			case ty.IsTupleType() || ty.IsListType():
				out.Positional = val.AsValueSlice()
			default:
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid args",
					Detail:   fmt.Sprintf("The args attribute must be a list, got %s.", ty.FriendlyName()),
					Subject:  c.Args.Range().Ptr(),
				})
			}
		}
	}

	if c.Named != nil {
		val, valDiags := c.Named.Value(ctx)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			ty := val.Type()
			switch {
			case val.IsNull():
			case ty.IsObjectType() || ty.IsMapType():
				out.Named = val.AsValueMap()
			default:
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid named arguments",
					Detail:   fmt.Sprintf("The named attribute must be an object, got %s.", ty.FriendlyName()),
					Subject:  c.Named.Range().Ptr(),
				})
			}
		}
	}

	return out, diags
}
