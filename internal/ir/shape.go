package ir

// Shape tags a callable's syntactic form.
type Shape string

// The six supported shapes, in declaration order.
const (
	ShapeFunction           Shape = "Function"
	ShapeAsyncFunction      Shape = "AsyncFunction"
	ShapeGenerator          Shape = "Generator"
	ShapeAsyncGenerator     Shape = "AsyncGenerator"
	ShapeArrowFunction      Shape = "ArrowFunction"
	ShapeAsyncArrowFunction Shape = "AsyncArrowFunction"
)

// Strategy selects how a callable is rebuilt from params and body.
// Arrow shapes fold into the strategy of their non-arrow counterpart.
type Strategy string

const (
	StrategyPlain          Strategy = "plain"
	StrategyAsync          Strategy = "async"
	StrategyGenerator      Strategy = "generator"
	StrategyAsyncGenerator Strategy = "async-generator"
)

var shapeStrategies = map[Shape]Strategy{
	ShapeFunction:           StrategyPlain,
	ShapeArrowFunction:      StrategyPlain,
	ShapeAsyncFunction:      StrategyAsync,
	ShapeAsyncArrowFunction: StrategyAsync,
	ShapeGenerator:          StrategyGenerator,
	ShapeAsyncGenerator:     StrategyAsyncGenerator,
}

// Shapes returns all supported shapes in declaration order.
func Shapes() []Shape {
	return []Shape{
		ShapeFunction,
		ShapeAsyncFunction,
		ShapeGenerator,
		ShapeAsyncGenerator,
		ShapeArrowFunction,
		ShapeAsyncArrowFunction,
	}
}

// ParseShape returns the Shape named by s.
func ParseShape(s string) (Shape, bool) {
	sh := Shape(s)
	return sh, sh.Valid()
}

// Valid reports whether s is one of the six supported tags.
func (s Shape) Valid() bool {
	_, ok := shapeStrategies[s]
	return ok
}

// Strategy returns the construction strategy for s.
// Reports false for unrecognized tags.
func (s Shape) Strategy() (Strategy, bool) {
	st, ok := shapeStrategies[s]
	return st, ok
}

// Async reports whether s carries the async marker.
func (s Shape) Async() bool {
	switch s {
	case ShapeAsyncFunction, ShapeAsyncGenerator, ShapeAsyncArrowFunction:
		return true
	}
	return false
}

// Arrow reports whether s is one of the arrow forms.
func (s Shape) Arrow() bool {
	return s == ShapeArrowFunction || s == ShapeAsyncArrowFunction
}

// WithAsync returns the async variant of a base shape.
// Shapes that are already async are returned unchanged.
func (s Shape) WithAsync() Shape {
	switch s {
	case ShapeFunction:
		return ShapeAsyncFunction
	case ShapeGenerator:
		return ShapeAsyncGenerator
	case ShapeArrowFunction:
		return ShapeAsyncArrowFunction
	}
	return s
}

// Prefix returns the declaration keywords that introduce a dynamic function
// built with strategy st.
func (st Strategy) Prefix() string {
	switch st {
	case StrategyAsync:
		return "async function"
	case StrategyGenerator:
		return "function*"
	case StrategyAsyncGenerator:
		return "async function*"
	}
	return "function"
}
