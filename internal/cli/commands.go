package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/dmutils/internal/app"
	"github.com/specialistvlad/dmutils/internal/callfile"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
)

func newListCommand(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered functions",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, _, err := build(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, fn := range a.Namespace().Functions() {
				fmt.Fprintf(tw, "%s\t%s\n", fn.Name, firstLine(fn.Description))
			}
			return tw.Flush()
		},
	}
}

func newDescribeCommand(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Show a function's signature and parameters",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, _, err := build(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			fn, err := a.Namespace().Lookup(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, fn.Signature.Format(fn.Name))
			if fn.Description != "" {
				fmt.Fprintf(out, "\n%s\n", fn.Description)
			}

			params := append([]namespace.Param(nil), fn.Signature.Params...)
			if fn.Signature.Variadic != nil {
				params = append(params, *fn.Signature.Variadic)
			}
			if fn.Signature.Options != nil {
				params = append(params, *fn.Signature.Options)
			}
			if len(params) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nParameters:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, p := range params {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.Name, p.Type.FriendlyNameForConstraint(), p.Description)
			}
			return tw.Flush()
		},
	}
}

func newCallCommand(build appBuilder) *cobra.Command {
	var named []string
	cmd := &cobra.Command{
		Use:   "call NAME [ARG...]",
		Short: "Invoke a single function",
		Long: `Invoke a single function and print its result.

Each ARG and each --named value is read as an HCL expression, so 5, true,
["a", "b"], {a = 1} and env.HOME all work. Anything that is not a valid
expression is passed as a plain string.`,
		Example: `  dmutils call join_path /srv app logs
  dmutils call level_x_path . --named level=2
  dmutils call merge_all_dicts '{a = 1}' '{b = 2}'`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			call, err := parseCall(args[1:], named)
			if err != nil {
				return err
			}

			a, _, err := build(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			val, err := a.Invoke(cmd.Context(), args[0], call)
			if err != nil {
				return err
			}
			rendered, err := app.ResultJSON(val)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&named, "named", nil, "named argument as key=value (repeatable)")
	return cmd
}

func newRunCommand(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "run PATH",
		Short: "Execute an HCL call file, or every .hcl file in a directory",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, _, err := build(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			results, err := a.RunFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				rendered, err := renderJSON(r.Value)
				if err != nil {
					return fmt.Errorf("call %q: %w", r.Label, err)
				}
				fmt.Fprintf(out, "%s = %s\n", r.Label, rendered)
			}
			return nil
		},
	}
}

func newServeCommand(build appBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the namespace over HTTP",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, cfg, err := build(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)
			return a.Serve(cmd.Context(), cfg.Listen)
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")
	return cmd
}

// parseCall turns command-line arguments into a call.
func parseCall(positional, named []string) (namespace.Call, error) {
	ectx := argEvalContext()
	call := namespace.Call{}
	for _, arg := range positional {
		call.Positional = append(call.Positional, parseArg(arg, ectx))
	}
	for _, kv := range named {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(key) {
			return call, usageError("invalid --named %q: expected key=value", kv)
		}
		call = call.WithNamed(key, parseArg(value, ectx))
	}
	return call, nil
}

// parseArg turns a command-line argument into a value. Quoted strings,
// tuples, objects, true/false/null, env.* references and plain numbers are
// evaluated as HCL; everything else, including arithmetic-looking text such
// as dates or zero-padded numbers, is kept as the literal string.
func parseArg(s string, ectx *hcl.EvalContext) cty.Value {
	raw := cty.StringVal(s)
	expr, diags := hclsyntax.ParseExpression([]byte(s), "<arg>", hcl.InitialPos)
	if diags.HasErrors() || !literalArg(expr) {
		return raw
	}
	val, diags := expr.Value(ectx)
	if diags.HasErrors() || !val.IsWhollyKnown() {
		return raw
	}
	if val.Type() == cty.Number && !val.IsNull() && val.AsBigFloat().Text('f', -1) != s {
		return raw
	}
	return val
}

func literalArg(expr hclsyntax.Expression) bool {
	switch e := expr.(type) {
	case *hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr,
		*hclsyntax.TupleConsExpr, *hclsyntax.ObjectConsExpr:
		return true
	case *hclsyntax.LiteralValueExpr:
		return true
	case *hclsyntax.ScopeTraversalExpr:
		return e.Traversal.RootName() == callfile.EnvRoot
	default:
		return false
	}
}

func argEvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{callfile.EnvRoot: cty.ObjectVal(env)}}
}

// renderJSON renders a value as compact JSON.
func renderJSON(v cty.Value) (string, error) {
	b, err := ctyutil.MarshalJSON(v, "")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
