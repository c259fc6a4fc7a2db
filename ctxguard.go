// Package ctxguard is the public surface of the context-propagation
// runtime: a promise-lineage tracker, a per-lineage stack of segment
// controllers, and the file-access controller that is the one controller
// this module ships.
//
// Two process-wide singletons back every exported function here: a
// promise.Tracker and a registry.Registry built over it. Use ResetForTest
// to tear both down between test cases.
package ctxguard

import (
	"sync"

	"github.com/oriys/ctxguard/internal/execctx"
	"github.com/oriys/ctxguard/internal/promise"
	"github.com/oriys/ctxguard/internal/registry"
)

var (
	globalMu    sync.Mutex
	tracker     = promise.NewTracker()
	ctxRegistry = registry.New(tracker)
)

// SegmentCall names one segment a wrapped call declares, in declaration
// order. Alias of execctx.SegmentCall so callers never need to import the
// internal package directly.
type SegmentCall = execctx.SegmentCall

// View is an ExecutionContextView: a per-lineage controller stack plus its
// strictness flags. Alias of execctx.View.
type View = execctx.View

// Controller is the capability interface every segment controller
// implements. Alias of execctx.Controller.
type Controller = execctx.Controller

// GetCurrentContext resolves and returns the ExecutionContextView for the
// lineage of the currently executing task.
func GetCurrentContext() *View {
	globalMu.Lock()
	defer globalMu.Unlock()
	return ctxRegistry.GetCurrentContext()
}

// WrapFunction returns a function that, when called, resolves the current
// context view and runs fn through run_in_context with the declared
// segments. This is the primary integration point user code calls to put
// a function under segment-controller enforcement.
func WrapFunction(segments []SegmentCall, fn func(args []any) (any, error)) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		view := GetCurrentContext()
		return view.RunInContext(segments, fn, args)
	}
}

// ForkForPromise creates a new lineage bound to a fork of the current
// view, upgraded with the given strictness flags, and returns the new
// lineage's name. Pair with StartPromise once the runtime hands back the
// new task's id.
func ForkForPromise(strictControllers, strictSegments bool) string {
	globalMu.Lock()
	defer globalMu.Unlock()
	return ctxRegistry.ForkForPromise(strictControllers, strictSegments)
}

// StartPromise binds the currently executing task id to the named
// lineage. Fails if name is unknown or the current task is already bound.
func StartPromise(name string) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	return ctxRegistry.StartPromise(name)
}

// EndPromise removes the named lineage and every task binding pointing to
// it, reporting whether anything was removed.
func EndPromise(name string) bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return ctxRegistry.EndPromise(name)
}

// ResetForTest tears down both process-wide singletons, restoring a fresh
// tracker with no live tasks and a registry holding only its default
// lineage. Test suites call this between cases instead of re-launching the
// process.
func ResetForTest() {
	globalMu.Lock()
	defer globalMu.Unlock()
	tracker.Reset()
	ctxRegistry = registry.New(tracker)
}
