package execctx

import "github.com/oriys/ctxguard/internal/errs"

// Controller is the capability interface every segment controller
// implements: CreateChild produces a per-call controller populated from
// the call's declared options, and OnContext runs when that call executes,
// free to veto or transform it before delegating to the wrapped
// invocation. Dispatch across controllers is dynamic — no inheritance
// hierarchy is required, just a closed set of concrete types satisfying
// this interface.
type Controller interface {
	CreateChild(data map[string]any) (Controller, error)
	OnContext(inv Invocation) (any, error)
}

// Invocation is the continuation a controller's OnContext either allows to
// proceed (by calling Invoke) or vetoes (by returning an error instead).
type Invocation interface {
	// Invoke runs the next link in the chain: either the wrapped user call
	// (for the innermost invocation) or the next controller inward.
	Invoke() (any, error)
	// Args returns the positional arguments the wrapped call was invoked
	// with, unchanged as the invocation telescopes through every
	// controller in the chain.
	Args() []any
}

// innerInvocation is the base of the chain: invoking it runs the wrapped
// call directly. A nil fn is the Go analog of spec.md §7's base
// "ContextInvocation.invoke" raising NotImplemented — View.RunInContext
// and NewInnerInvocation always supply a concrete fn, so this path is
// only reachable by a caller constructing the zero value directly.
type innerInvocation struct {
	args []any
	fn   func(args []any) (any, error)
}

func (i *innerInvocation) Invoke() (any, error) {
	if i.fn == nil {
		return nil, errs.NewNotImplemented("ContextInvocation.invoke")
	}
	return i.fn(i.args)
}
func (i *innerInvocation) Args() []any { return i.args }

// NewInnerInvocation builds the base invocation of a chain: invoking it
// runs fn directly against args. Exported so segment controller packages
// (e.g. security) can exercise OnContext in tests without going through a
// full View.RunInContext call.
func NewInnerInvocation(args []any, fn func(args []any) (any, error)) Invocation {
	return &innerInvocation{args: args, fn: fn}
}

// compositeInvocation wraps an inner invocation with a controller: calling
// Invoke defers to the controller's OnContext, which decides whether (and
// when) to call inner.Invoke itself.
type compositeInvocation struct {
	inner      Invocation
	controller Controller
}

func (c *compositeInvocation) Invoke() (any, error) { return c.controller.OnContext(c.inner) }
func (c *compositeInvocation) Args() []any          { return c.inner.Args() }
