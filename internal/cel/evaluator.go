// Package cel compiles CEL expressions into row predicates for the table
// controller. An expression sees the row cells as `row` (a map of column key
// to cell text) and the row id as `id`, and must yield a bool.
package cel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"

	"github.com/pacta-app/tableview/internal/tableview"
)

// ErrNotBool is returned when an expression does not evaluate to a bool.
var ErrNotBool = errors.New("expression must evaluate to a bool")

// Evaluator compiles row expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates an evaluator with the string, list and math
// extensions plus the table helpers num() and amount().
func NewEvaluator() (*Evaluator, error) {
	env, err := newRowEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func newRowEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 7+len(opts))
	allOpts = append(allOpts,
		cel.Variable("row", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("id", cel.StringType),
		celext.Strings(),
		celext.Lists(),
		celext.Math(),
		cel.Function("num",
			cel.Overload("num_string", []*cel.Type{cel.StringType}, cel.DoubleType,
				cel.UnaryBinding(stringToDouble(tableview.ParseNumber)))),
		cel.Function("amount",
			cel.Overload("amount_string", []*cel.Type{cel.StringType}, cel.DoubleType,
				cel.UnaryBinding(stringToDouble(tableview.ParseCurrency)))),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

func stringToDouble(parse func(string) float64) func(ref.Val) ref.Val {
	return func(v ref.Val) ref.Val {
		s, ok := v.(types.String)
		if !ok {
			return types.MaybeNoSuchOverloadErr(v)
		}
		return types.Double(parse(string(s)))
	}
}

// Predicate is a compiled row expression. It implements tableview.Predicate.
type Predicate struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr.
func (e *Evaluator) Compile(expr string) (*Predicate, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%q yields %s: %w", expr, typeLabel(out), ErrNotBool)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (p *Predicate) String() string { return p.expr }

// Match evaluates the expression against r.
func (p *Predicate) Match(r *tableview.Record) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"row": r.Data,
		"id":  r.ID,
	})
	if err != nil {
		return false, fmt.Errorf("eval error on row %q: %w", r.ID, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("row %q: %w", r.ID, ErrNotBool)
	}
	return bool(b), nil
}

// Functions lists the functions available to row expressions, one
// "name() - usage" entry per overload, sorted.
func (e *Evaluator) Functions() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 100)

	for _, fn := range e.env.Functions() {
		if isOperator(fn.Name()) {
			continue
		}
		for _, o := range fn.OverloadDecls() {
			entry := fn.Name() + "() - " + usageFromOverload(fn.Name(), o)
			if seen[entry] {
				continue
			}
			seen[entry] = true
			out = append(out, entry)
		}
	}
	for _, m := range e.env.Macros() {
		if isOperator(m.Function()) {
			continue
		}
		entry := m.Function() + "() - CEL macro"
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}

	sort.Strings(out)
	return out
}

// isOperator filters out operator-style declarations.
func isOperator(name string) bool {
	if strings.HasPrefix(name, "@") {
		return true
	}
	if strings.HasPrefix(name, "_") && strings.HasSuffix(name, "_") {
		return true
	}
	switch name {
	case "!_", "-_", "_[_]", "_?_:_":
		return true
	}
	return false
}

func typeLabel(t *types.Type) string {
	if t == nil {
		return "any"
	}
	if name := t.DeclaredTypeName(); name != "" {
		return name
	}
	if name := t.TypeName(); name != "" {
		return name
	}
	return "any"
}

func formatParams(params []*types.Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = typeLabel(p)
	}
	return strings.Join(parts, ", ")
}

func usageFromOverload(name string, o *decls.OverloadDecl) string {
	params := o.ArgTypes()
	var call string
	switch {
	case len(params) == 0:
		call = name + "()"
	case o.IsMemberFunction():
		call = typeLabel(params[0]) + "." + name + "(" + formatParams(params[1:]) + ")"
	default:
		call = name + "(" + formatParams(params) + ")"
	}
	if res := o.ResultType(); res != nil {
		call += " -> " + typeLabel(res)
	}
	return call
}
