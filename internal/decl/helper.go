package decl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/expr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates omitted optional attributes with zero-width
// expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, x hcl.Expression, attrName string) bool {
	if x == nil {
		return false
	}
	r := x.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// exprSource returns the source text of x.
func exprSource(x hcl.Expression, src []byte) string {
	return string(x.Range().SliceBytes(src))
}

// literalValue evaluates x without any variables or functions. The boolean
// is false when x needs an evaluation context. With a type expression the
// literal is converted to that type.
func literalValue(x hcl.Expression, typeExpr hcl.Expression) (any, bool, error) {
	v, diags := x.Value(nil)
	if diags.HasErrors() {
		return nil, false, nil
	}
	if typeExpr != nil && typeExpr.Range().End.Byte > typeExpr.Range().Start.Byte {
		ty, err := typeOf(typeExpr)
		if err != nil {
			return nil, false, err
		}
		if v, err = convert.Convert(v, ty); err != nil {
			return nil, false, fmt.Errorf("value does not conform to type %s: %w", ty.FriendlyName(), err)
		}
	}
	gv, err := expr.FromCtyValue(v)
	if err != nil {
		return nil, false, err
	}
	return gv, true, nil
}

// Literal reads src as a constant HCL expression such as 3, true or "a b".
// Anything else, including bare words, is returned unchanged as a string.
func Literal(src string) any {
	x, diags := hclsyntax.ParseExpression([]byte(src), "literal", hcl.InitialPos)
	if diags.HasErrors() {
		return src
	}
	v, ok, err := literalValue(x, nil)
	if err != nil || !ok {
		return src
	}
	return v
}

// typeOf reads a type keyword: string, number, bool or any.
func typeOf(x hcl.Expression) (cty.Type, error) {
	traversal, diags := hcl.AbsTraversalForExpr(x)
	if diags.HasErrors() || len(traversal) != 1 {
		return cty.NilType, fmt.Errorf("%s: type must be one of string, number, bool or any", x.Range())
	}
	switch name := traversal.RootName(); name {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "any":
		return cty.DynamicPseudoType, nil
	default:
		return cty.NilType, fmt.Errorf("%s: unsupported type %q", x.Range(), name)
	}
}
