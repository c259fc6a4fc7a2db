package ctxguard

// DispatchInit announces the runtime's init(task, parent?) lifecycle event
// for handle, optionally carrying the originating parent's handle. Host
// runtimes driving real asynchronous scheduling call this directly; it is
// also what WrapPromise uses internally.
func DispatchInit(handle, parent any) {
	globalMu.Lock()
	defer globalMu.Unlock()
	tracker.Init(handle, parent)
}

// DispatchBefore announces the runtime's before(task) event: handle is
// about to start (or resume) executing and is pushed onto the executing
// stack.
func DispatchBefore(handle any) {
	globalMu.Lock()
	defer globalMu.Unlock()
	tracker.Before(handle)
}

// DispatchAfter announces the runtime's after(task) event: handle has
// finished its current turn on the executing stack.
func DispatchAfter(handle any) {
	globalMu.Lock()
	defer globalMu.Unlock()
	tracker.After(handle)
}

// DispatchResolve announces the runtime's resolve(task) event. Carries no
// state transition of its own but is exposed so host runtimes can drive
// the full hook protocol without reaching into internal packages.
func DispatchResolve(handle any) {
	globalMu.Lock()
	defer globalMu.Unlock()
	tracker.Resolve(handle)
}

// GetCurrentPromiseID returns the monotonic task id on top of the
// executing stack, or 0 if none is executing.
func GetCurrentPromiseID() uint32 {
	globalMu.Lock()
	defer globalMu.Unlock()
	return tracker.CurrentID()
}

// GetParentPromiseID returns the parent task id of id, or 0 if none or
// unknown. With no argument, it returns the parent of the currently
// executing task.
func GetParentPromiseID(id ...uint32) uint32 {
	globalMu.Lock()
	target := func() uint32 {
		if len(id) > 0 {
			return id[0]
		}
		return tracker.CurrentID()
	}()
	globalMu.Unlock()
	return tracker.ParentID(target)
}

// WrapPromise runs body as a forked, lineage-tracked task: it forks a new
// lineage from the current view (upgraded by strictControllers/
// strictSegments), starts that lineage bound to a fresh task handle,
// invokes body, and ends the lineage once body settles — regardless of
// whether it returns a result or an error.
//
// Go has no native promise/microtask scheduler for this module to hook
// into, so WrapPromise runs body synchronously on the calling goroutine
// rather than deferring it to a continuation. The lifecycle hooks
// (DispatchInit/Before/After) are still exercised around it, so a host
// runtime that *does* have a real scheduler can drive the same lineage
// machinery directly through the Dispatch* entrypoints instead of going
// through WrapPromise.
func WrapPromise(body func() (any, error), strictControllers, strictSegments bool) (any, error) {
	name := ForkForPromise(strictControllers, strictSegments)

	handle := new(struct{})
	DispatchInit(handle, nil)
	DispatchBefore(handle)

	if err := StartPromise(name); err != nil {
		DispatchAfter(handle)
		EndPromise(name)
		return nil, err
	}

	result, err := body()

	DispatchResolve(handle)
	DispatchAfter(handle)
	EndPromise(name)
	return result, err
}
