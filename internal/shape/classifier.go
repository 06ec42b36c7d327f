// Package shape recognizes the six supported callable shapes in normalized
// source text and extracts their parameter list and body.
package shape

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/roach88/fnser/internal/errs"
	"github.com/roach88/fnser/internal/ir"
	"github.com/roach88/fnser/internal/normalize"
)

// DefaultMatchTimeout bounds a single pattern match.
const DefaultMatchTimeout = time.Second

// Match is the result of a successful classification.
type Match struct {
	Shape  ir.Shape
	Params []string
	Body   string
}

// Triple returns m as an unhashed triple.
func (m Match) Triple() ir.Triple {
	params := make([]string, len(m.Params))
	copy(params, m.Params)
	return ir.Triple{Params: params, Body: m.Body, Type: m.Shape}
}

// Capture groups shared by the declaration families.
const (
	groupAsync  = 1
	groupParams = 2
	groupBody   = 3
)

// Capture groups of the arrow family.
const (
	groupArrowParenParams = 2
	groupArrowBareParam   = 3
	groupArrowBlockBody   = 4
	groupArrowExprBody    = 5
)

type family struct {
	shape   ir.Shape
	pattern string
	extract func(m *regexp2.Match) (params, body string)
}

// Families are tried in this order; the generator pattern must precede the
// plain function pattern, which would otherwise reject "function*".
var families = []family{
	{
		shape:   ir.ShapeGenerator,
		pattern: `^(async\s+)?function\*\s*[^()]*\(([^)]*)\)\s*{([\s\S]*)}\z`,
		extract: declaration,
	},
	{
		shape:   ir.ShapeFunction,
		pattern: `^(async\s+)?function\s*[^()]*\(([^)]*)\)\s*{([\s\S]*)}\z`,
		extract: declaration,
	},
	{
		shape:   ir.ShapeArrowFunction,
		pattern: `^(async\s+)?(?:\(([^)]*)\)|([^=\s(]+))\s*=>\s*(?:{([\s\S]*)}|([\s\S]+))\z`,
		extract: arrow,
	},
}

func declaration(m *regexp2.Match) (string, string) {
	return m.GroupByNumber(groupParams).String(), m.GroupByNumber(groupBody).String()
}

func arrow(m *regexp2.Match) (string, string) {
	params := m.GroupByNumber(groupArrowBareParam).String()
	if g := m.GroupByNumber(groupArrowParenParams); matched(g) {
		params = g.String()
	}

	if g := m.GroupByNumber(groupArrowBlockBody); matched(g) {
		return params, g.String()
	}
	return params, "return (" + m.GroupByNumber(groupArrowExprBody).String() + ");"
}

// matched reports whether g took part in the match. An empty capture still
// counts.
func matched(g *regexp2.Group) bool {
	return g != nil && len(g.Captures) > 0
}

type compiled struct {
	family
	re *regexp2.Regexp
}

// Classifier matches source text against the shape families.
// A Classifier is safe for concurrent use.
type Classifier struct {
	families []compiled
	timeout  time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMatchTimeout bounds each pattern match. Zero or negative disables the
// bound.
func WithMatchTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		c.timeout = d
	}
}

// New compiles the shape families.
func New(opts ...Option) *Classifier {
	c := &Classifier{timeout: DefaultMatchTimeout}
	for _, opt := range opts {
		opt(c)
	}

	c.families = make([]compiled, len(families))
	for i, f := range families {
		re := regexp2.MustCompile(f.pattern, regexp2.None)
		if c.timeout > 0 {
			re.MatchTimeout = c.timeout
		}
		c.families[i] = compiled{family: f, re: re}
	}
	return c
}

// MatchTimeout returns the per-match bound.
func (c *Classifier) MatchTimeout() time.Duration {
	return c.timeout
}

// Classify recognizes the shape of src, which must already be normalized.
//
// Parameters are split on commas; entries are trimmed unless keepWhitespace
// is set, and empty entries are dropped. The body is trimmed unless
// keepWhitespace is set. A bare arrow expression body is rewritten to
// "return (<expr>);".
//
// When no family matches, a classification error carrying src is returned.
// A matcher failure is reported as a serialization error naming the family.
func (c *Classifier) Classify(src string, keepWhitespace bool) (Match, error) {
	for _, f := range c.families {
		m, err := f.re.FindStringMatch(src)
		if err != nil {
			return Match{}, errs.Wrap(errs.KindSerialization,
				fmt.Sprintf("unexpected error classifying %s", f.shape), err)
		}
		if m == nil {
			continue
		}

		rawParams, body := f.extract(m)
		if !keepWhitespace {
			body = normalize.Trim(body)
		}

		shape := f.shape
		if matched(m.GroupByNumber(groupAsync)) {
			shape = shape.WithAsync()
		}

		return Match{
			Shape:  shape,
			Params: splitParams(rawParams, keepWhitespace),
			Body:   body,
		}, nil
	}

	return Match{}, errs.NewClassification(src)
}

func splitParams(raw string, keepWhitespace bool) []string {
	params := []string{}
	for _, p := range strings.Split(raw, ",") {
		if !keepWhitespace {
			p = normalize.Trim(p)
		}
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}
