package expr

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/watchgraph/internal/component"
	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Variables names the root variables an expression may reference.
var Variables = []string{"input", "props", "this"}

// Evaluator compiles HCL expressions. It implements component.Evaluator.
type Evaluator struct {
	logger    *slog.Logger
	functions map[string]function.Function
}

// New returns an evaluator with the cty standard library functions most
// useful for formatting and comparing values.
func New(ctx context.Context) *Evaluator {
	return &Evaluator{
		logger: ctxlog.FromContext(ctx).With("component", "expr"),
		functions: map[string]function.Function{
			"abs":        stdlib.AbsoluteFunc,
			"ceil":       stdlib.CeilFunc,
			"coalesce":   stdlib.CoalesceFunc,
			"concat":     stdlib.ConcatFunc,
			"floor":      stdlib.FloorFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"length":     stdlib.LengthFunc,
			"lower":      stdlib.LowerFunc,
			"max":        stdlib.MaxFunc,
			"min":        stdlib.MinFunc,
			"strlen":     stdlib.StrlenFunc,
			"substr":     stdlib.SubstrFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"upper":      stdlib.UpperFunc,
		},
	}
}

// Parse parses src and checks that it only references known variables and
// functions.
func (e *Evaluator) Parse(src string) (hcl.Expression, error) {
	x, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %q: %w", src, diags)
	}
	for _, t := range x.Variables() {
		if !slices.Contains(Variables, t.RootName()) {
			return nil, fmt.Errorf("parse %q: unknown variable %q", src, t.RootName())
		}
	}
	for _, name := range calledFunctions(x) {
		if _, ok := e.functions[name]; !ok {
			return nil, fmt.Errorf("parse %q: unknown function %q", src, name)
		}
	}
	return x, nil
}

// CompileValue implements component.Evaluator.
func (e *Evaluator) CompileValue(src string) (component.ValueFunc, error) {
	x, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Compiled value expression.", "source", src)
	return func(s *component.Scope, in any) (any, error) {
		v, err := e.eval(x, s, in)
		if err != nil {
			return nil, err
		}
		return FromCtyValue(v)
	}, nil
}

// CompileMatch implements component.Evaluator. The expression must evaluate
// to something convertible to bool; null does not match.
func (e *Evaluator) CompileMatch(src string) (component.MatchFunc, error) {
	x, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Compiled match expression.", "source", src)
	return func(s *component.Scope, in any) (bool, error) {
		v, err := e.eval(x, s, in)
		if err != nil {
			return false, err
		}
		if v.IsNull() {
			return false, nil
		}
		b, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return false, fmt.Errorf("match %s: cannot convert %s to bool: %w", rangeOf(x), v.Type().FriendlyName(), err)
		}
		return b.True(), nil
	}, nil
}

func (e *Evaluator) eval(x hcl.Expression, s *component.Scope, in any) (cty.Value, error) {
	ctx, err := e.evalContext(s, in)
	if err != nil {
		return cty.NilVal, err
	}
	v, diags := x.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return v, nil
}

func (e *Evaluator) evalContext(s *component.Scope, in any) (*hcl.EvalContext, error) {
	input, err := ToCtyValue(in)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	props := cty.EmptyObjectVal
	this := cty.NullVal(cty.DynamicPseudoType)
	if s != nil {
		if props, err = propsVal(s); err != nil {
			return nil, fmt.Errorf("props: %w", err)
		}
		if inst := s.This(); inst != nil {
			this, _ = ToCtyValue(inst)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"input": input,
			"props": props,
			"this":  this,
		},
		Functions: e.functions,
	}, nil
}

func rangeOf(x hcl.Expression) string {
	r := x.Range()
	return r.String()
}
