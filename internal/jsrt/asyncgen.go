package jsrt

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
)

// goja parses async generators but cannot compile them. They are hosted as
// a plain generator in which every await becomes a yield of an awaitMarker
// box, driven by asyncIterShim.

const awaitMarker = "$fnser$await"

// asyncIterShim returns host(make, source). make receives the marker
// constructor and returns the rewritten generator; host returns a function
// whose calls produce async iterators and whose toString yields source.
const asyncIterShim = `(function () {
	function Await(value) { this.value = value; }
	function noop() {}
	return function (make, source) {
		var gen = make(Await);
		var hosted = function () {
			var it = gen.apply(this, arguments);
			var queue = Promise.resolve();
			function resume(method, arg) {
				return new Promise(function (resolve, reject) {
					function step(method, arg) {
						var r;
						try {
							r = it[method](arg);
						} catch (e) {
							reject(e);
							return;
						}
						if (r.value instanceof Await) {
							Promise.resolve(r.value.value).then(
								function (v) { step("next", v); },
								function (e) { step("throw", e); });
							return;
						}
						if (r.done) {
							Promise.resolve(r.value).then(
								function (v) { resolve({ value: v, done: true }); }, reject);
							return;
						}
						Promise.resolve(r.value).then(
							function (v) { resolve({ value: v, done: false }); },
							function (e) { step("throw", e); });
					}
					step(method, arg);
				});
			}
			function enqueue(method, arg) {
				var p = queue.then(function () { return resume(method, arg); });
				queue = p.then(noop, noop);
				return p;
			}
			var iter = {
				next: function (v) { return enqueue("next", v); },
				throw: function (e) { return enqueue("throw", e); },
				return: function (v) { return enqueue("return", v); }
			};
			iter[Symbol.asyncIterator] = function () { return this; };
			return iter;
		};
		Object.defineProperty(hosted, "name", { value: gen.name });
		Object.defineProperty(hosted, "length", { value: gen.length });
		Object.defineProperty(hosted, "toString", {
			value: function () { return source; },
			writable: true,
			configurable: true
		});
		return hosted;
	};
})()`

// awaitSpan locates an await expression in the wrapped source.
type awaitSpan struct {
	start, arg, end int
}

// desugar rewrites the async generator lit, parsed from wrap(src), into the
// source of a maker function that returns an equivalent plain generator.
func desugar(src string, lit *ast.FunctionLiteral) string {
	w := wrap(src)
	spans := awaitsIn(lit.Body)

	var b strings.Builder
	b.WriteString("(function (")
	b.WriteString(awaitMarker)
	b.WriteString(") { return function* ")
	if lit.Name != nil {
		b.WriteString(string(lit.Name.Name))
	}
	emitAwaits(&b, w, int(lit.ParameterList.Opening)-1, int(lit.Body.RightBrace), spans)
	b.WriteString("; })")
	return b.String()
}

// emitAwaits copies w[from:to], replacing each await with a marker yield.
// spans are sorted by start; nested spans follow their parent.
func emitAwaits(b *strings.Builder, w string, from, to int, spans []awaitSpan) []awaitSpan {
	for len(spans) > 0 && spans[0].start < to {
		s := spans[0]
		spans = spans[1:]
		b.WriteString(w[from:s.start])
		b.WriteString("(yield new ")
		b.WriteString(awaitMarker)
		b.WriteString("(")
		spans = emitAwaits(b, w, s.arg, s.end, spans)
		b.WriteString("))")
		from = s.end
	}
	b.WriteString(w[from:to])
	return spans
}

var (
	astPkg       = reflect.TypeOf(ast.Program{}).PkgPath()
	awaitType    = reflect.TypeOf(&ast.AwaitExpression{})
	functionType = reflect.TypeOf(&ast.FunctionLiteral{})
	arrowType    = reflect.TypeOf(&ast.ArrowFunctionLiteral{})
	classType    = reflect.TypeOf(&ast.ClassLiteral{})
)

// awaitsIn collects the await expressions of body that belong to the
// enclosing function, skipping nested functions and classes.
func awaitsIn(body *ast.BlockStatement) []awaitSpan {
	seen := map[int]bool{}
	var spans []awaitSpan
	var walk func(v reflect.Value)
	walk = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Interface:
			if !v.IsNil() {
				walk(v.Elem())
			}
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i))
			}
		case reflect.Pointer:
			if v.IsNil() || v.Type().Elem().PkgPath() != astPkg {
				return
			}
			switch v.Type() {
			case functionType, arrowType, classType:
				return
			case awaitType:
				aw := v.Interface().(*ast.AwaitExpression)
				start := int(aw.Await) - 1
				if !seen[start] {
					seen[start] = true
					spans = append(spans, awaitSpan{
						start: start,
						arg:   int(aw.Argument.Idx0()) - 1,
						end:   int(aw.Argument.Idx1()) - 1,
					})
				}
			}
			walk(v.Elem())
		case reflect.Struct:
			if v.Type().PkgPath() != astPkg {
				return
			}
			for i := 0; i < v.NumField(); i++ {
				walk(v.Field(i))
			}
		}
	}
	walk(reflect.ValueOf(body))
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

// hostAsyncGenerator evaluates the desugared form of lit in rt.
func hostAsyncGenerator(rt *goja.Runtime, src string, lit *ast.FunctionLiteral) (goja.Value, error) {
	shim, err := rt.RunString(asyncIterShim)
	if err != nil {
		return nil, fmt.Errorf("async generator shim: %w", err)
	}
	host, ok := goja.AssertFunction(shim)
	if !ok {
		return nil, fmt.Errorf("async generator shim: %w", ErrNotCallable)
	}
	maker, err := rt.RunString(desugar(src, lit))
	if err != nil {
		return nil, err
	}
	return host(goja.Undefined(), maker, rt.ToValue(src))
}
