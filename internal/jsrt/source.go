package jsrt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/roach88/fnser/internal/ir"
)

// ErrMalformed is returned when params and body do not assemble into exactly
// one function whose parameter list and body are the ones supplied.
var ErrMalformed = errors.New("malformed function source")

// wrap turns src into the parenthesized expression that gets evaluated.
func wrap(src string) string { return "(" + src + "\n)" }

// parseExpr parses src as a single parenthesized expression.
func parseExpr(src string) (ast.Expression, error) {
	prog, err := parser.ParseFile(nil, "", wrap(src), 0)
	if err != nil {
		return nil, err
	}
	if len(prog.Body) != 1 {
		return nil, fmt.Errorf("%w: %d statements", ErrMalformed, len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, fmt.Errorf("%w: not an expression", ErrMalformed)
	}
	return stmt.Expression, nil
}

// parseConstructed parses the source SourceFor built from params and body
// and checks that neither escaped its slot.
func parseConstructed(st ir.Strategy, params []string, src string) (*ast.FunctionLiteral, error) {
	expr, err := parseExpr(src)
	if err != nil {
		return nil, err
	}
	lit, ok := expr.(*ast.FunctionLiteral)
	if !ok {
		return nil, fmt.Errorf("%w: source is %T, not one function", ErrMalformed, expr)
	}

	// Fewer declared parameters than entries is fine: splitting on commas
	// cuts destructuring patterns and default values into several entries.
	n := len(lit.ParameterList.List)
	if lit.ParameterList.Rest != nil {
		n++
	}
	if n > len(params) {
		return nil, fmt.Errorf("%w: %d parameters declared, %d given", ErrMalformed, n, len(params))
	}

	// "(" + prefix + " anonymous(" + params + "\n" then ")".
	opening := 1 + len(st.Prefix()) + len(" anonymous")
	if int(lit.ParameterList.Opening)-1 != opening {
		return nil, fmt.Errorf("%w: parameters open at %d, want %d", ErrMalformed, int(lit.ParameterList.Opening)-1, opening)
	}
	closing := opening + 1 + len(strings.Join(params, ",")) + 1
	if int(lit.ParameterList.Closing)-1 != closing {
		return nil, fmt.Errorf("%w: parameters close at %d, want %d", ErrMalformed, int(lit.ParameterList.Closing)-1, closing)
	}
	if int(lit.Body.LeftBrace)-1 != closing+2 {
		return nil, fmt.Errorf("%w: body opens at %d", ErrMalformed, int(lit.Body.LeftBrace)-1)
	}
	// The last "}" of src sits before the trailing "\n)".
	if end := len(wrap(src)) - 3; int(lit.Body.RightBrace)-1 != end {
		return nil, fmt.Errorf("%w: body closes at %d, want %d", ErrMalformed, int(lit.Body.RightBrace)-1, end)
	}
	return lit, nil
}
