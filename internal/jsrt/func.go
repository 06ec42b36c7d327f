// Package jsrt hosts callables in an embedded ECMAScript runtime.
//
// Every Func owns a private goja.Runtime driven by its own event loop, so
// timers scheduled by a call run before the call returns. A Func is not safe
// for concurrent calls.
package jsrt

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/roach88/fnser/internal/ir"
)

var (
	// ErrNotCallable is returned when a value has no call behavior.
	ErrNotCallable = errors.New("value is not callable")

	// ErrPending is returned when a promise is still pending once the event
	// loop has no jobs or timers left.
	ErrPending = errors.New("promise still pending")
)

// Func is a callable hosted in its own runtime.
type Func struct {
	loop  *eventloop.EventLoop
	rt    *goja.Runtime
	value goja.Value
	call  goja.Callable
}

// Compile evaluates a function expression in a fresh runtime.
func Compile(src string) (*Func, error) {
	var lit *ast.FunctionLiteral
	if expr, err := parseExpr(src); err == nil {
		lit, _ = expr.(*ast.FunctionLiteral)
	}
	return compile(src, lit)
}

// compile evaluates src. lit is its parse, when known.
func compile(src string, lit *ast.FunctionLiteral) (*Func, error) {
	loop := eventloop.NewEventLoop()
	var (
		rt  *goja.Runtime
		v   goja.Value
		err error
	)
	loop.Run(func(vm *goja.Runtime) {
		rt = vm
		if lit != nil && lit.Async && lit.Generator {
			v, err = hostAsyncGenerator(vm, src, lit)
			return
		}
		v, err = vm.RunString(wrap(src))
	})
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	call, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("compile: %w: got %s", ErrNotCallable, TypeName(v))
	}
	return &Func{loop: loop, rt: rt, value: v, call: call}, nil
}

// SourceFor returns the dynamic function source that strategy st builds from
// params and body.
func SourceFor(st ir.Strategy, params []string, body string) string {
	var b strings.Builder
	b.WriteString(st.Prefix())
	b.WriteString(" anonymous(")
	b.WriteString(strings.Join(params, ","))
	b.WriteString("\n) {\n")
	b.WriteString(body)
	b.WriteString("\n}")
	return b.String()
}

// Construct builds a fresh callable from params and body. It fails with
// ErrMalformed when the params or the body reach outside their slot in the
// assembled source.
func Construct(st ir.Strategy, params []string, body string) (*Func, error) {
	src := SourceFor(st, params, body)
	lit, err := parseConstructed(st, params, src)
	if err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}
	return compile(src, lit)
}

// Runtime returns the runtime owning f.
func (f *Func) Runtime() *goja.Runtime { return f.rt }

// Value returns f as a runtime value.
func (f *Func) Value() goja.Value { return f.value }

// Source returns f's toString text.
func (f *Func) Source() string {
	src, err := SourceOf(f.value)
	if err != nil {
		return f.value.String()
	}
	return src
}

// Call invokes f with args converted by the runtime and runs the event loop
// until no timers remain. Cancelling ctx interrupts running script and drops
// pending timers.
func (f *Func) Call(ctx context.Context, args ...any) (goja.Value, error) {
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = f.rt.ToValue(a)
	}

	var v goja.Value
	err := f.run(ctx, func() (err error) {
		v, err = f.call(goja.Undefined(), vals...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invoke calls f, settles a returned promise and exports the result.
func (f *Func) Invoke(ctx context.Context, args ...any) (any, error) {
	v, err := f.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	v, err = settle(v)
	if err != nil {
		return nil, err
	}
	return export(v), nil
}

// Collect drives the iterator returned by a generator or async generator
// and returns the yielded values.
func (f *Func) Collect(ctx context.Context, args ...any) ([]any, error) {
	it, err := f.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	iter, ok := it.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("collect: result is %s, not an iterator", TypeName(it))
	}
	next, ok := goja.AssertFunction(iter.Get("next"))
	if !ok {
		return nil, fmt.Errorf("collect: result has no next method")
	}

	values := []any{}
	for {
		var res goja.Value
		err := f.run(ctx, func() (err error) {
			res, err = next(iter)
			return err
		})
		if err != nil {
			return values, err
		}
		if res, err = settle(res); err != nil {
			return values, err
		}
		step, ok := res.(*goja.Object)
		if !ok {
			return values, fmt.Errorf("collect: iterator result is %s", TypeName(res))
		}
		if step.Get("done").ToBoolean() {
			return values, nil
		}
		values = append(values, export(step.Get("value")))
	}
}

// run executes fn on the loop and keeps the loop going until it has no jobs
// or timers left, or ctx is done.
func (f *Func) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.rt.ClearInterrupt()

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(done)
		f.rt.Interrupt(ctx.Err())
		f.loop.Stop()
	})

	var err error
	f.loop.Run(func(*goja.Runtime) {
		err = fn()
	})
	if !stop() {
		<-done
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		f.loop.Terminate()
		f.rt.ClearInterrupt()
		return fmt.Errorf("call interrupted: %w", ctxErr)
	}
	if err != nil {
		return fmt.Errorf("call: %w", err)
	}
	return nil
}

// settle unwraps a promise. Non-promises are returned unchanged.
func settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("promise rejected: %s", p.Result().String())
	default:
		return nil, ErrPending
	}
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// SourceOf returns the text the value's toString method produces, so an
// overridden toString is honored. It fails with ErrNotCallable for values
// that have no call behavior.
func SourceOf(v any) (string, error) {
	if f, ok := v.(*Func); ok {
		if f == nil {
			return "", ErrNotCallable
		}
		v = f.value
	}

	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return "", ErrNotCallable
	}
	if _, ok := goja.AssertFunction(obj); !ok {
		return "", ErrNotCallable
	}

	toString, ok := goja.AssertFunction(obj.Get("toString"))
	if !ok {
		return "", fmt.Errorf("source: toString is not callable")
	}
	src, err := toString(obj)
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	return src.String(), nil
}

// TypeName describes v the way typeof would for runtime values, and by Go
// type otherwise.
func TypeName(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case *Func:
		return "function"
	case goja.Value:
		return typeOf(val)
	}
	return fmt.Sprintf("%T", v)
}

func typeOf(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "object"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "function"
	}
	switch v.(type) {
	case *goja.Object:
		return "object"
	case *goja.Symbol:
		return "symbol"
	}
	switch v.Export().(type) {
	case string:
		return "string"
	case int64, float64:
		return "number"
	case bool:
		return "boolean"
	case *big.Int:
		return "bigint"
	}
	return "object"
}
