package execctx

import (
	"sync"

	"github.com/oriys/ctxguard/internal/errs"
	"github.com/oriys/ctxguard/internal/logging"
)

// SegmentCall names one segment a call declares, along with the options
// passed to that segment's CreateChild. Order in the enclosing slice is
// the declaration order execution must stay deterministic over — Go's
// map iteration order is not, so callers pass segments as an ordered
// slice rather than a map.
type SegmentCall struct {
	Segment string
	Options map[string]any
}

// View is an ExecutionContextView: a ControllerStack scoped to one
// lineage, plus the strictness flags that govern push_controllers and
// run_in_context. Strictness is fixed at construction/fork time and
// exposed read-only via IsStrictControllers/IsStrictSegments, matching
// spec.md §6's is_strict_controllers/is_strict_segments accessors.
type View struct {
	mu                sync.Mutex
	stack             *Stack
	strictControllers bool
	strictSegments    bool
}

// NewView returns a View over a fresh, empty ControllerStack.
func NewView(strictControllers, strictSegments bool) *View {
	return &View{
		stack:             NewStack(),
		strictControllers: strictControllers,
		strictSegments:    strictSegments,
	}
}

// IsStrictControllers reports whether pushing a segment name already
// resolvable anywhere in the stack is an error.
func (v *View) IsStrictControllers() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.strictControllers
}

// IsStrictSegments reports whether run_in_context requesting a segment
// with no registered controller is an error.
func (v *View) IsStrictSegments() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.strictSegments
}

// PushControllers registers segments as a new frame. In strict-controllers
// mode, registering a segment name already resolvable anywhere in the
// stack is an error.
func (v *View) PushControllers(segments map[string]Controller) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.strictControllers {
		for name := range segments {
			if v.stack.Lookup(name) != nil {
				return "", errs.NewInvalidOptValue("segments", name)
			}
		}
	}
	return v.stack.Push(segments)
}

// PopControllers removes the frame identified by frameID.
func (v *View) PopControllers(frameID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stack.Pop(frameID)
}

// Fork returns a new View wrapping a flattened copy of this view's stack.
// The strictness flags of the child are the logical OR of the parent's
// current flags and the arguments: a true argument upgrades, a
// non-true argument preserves the parent's value.
func (v *View) Fork(strictControllers, strictSegments bool) *View {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := newFrameID()
	return &View{
		stack:             v.stack.Fork(id),
		strictControllers: v.strictControllers || strictControllers,
		strictSegments:    v.strictSegments || strictSegments,
	}
}

// RunInContext builds the invocation chain for segments (in declaration
// order), pushes the collected per-call controllers as a new frame, and
// runs the outermost invocation. The frame is popped whether fn returns
// normally or with an error.
//
// Segments execute outermost-first: the last segment in the slice is the
// last one wrapped around the call, so it is the first controller to see
// the invocation and may veto before any earlier-declared segment's
// controller runs.
func (v *View) RunInContext(segments []SegmentCall, fn func(args []any) (any, error), args []any) (any, error) {
	v.mu.Lock()

	var inv Invocation = &innerInvocation{args: args, fn: fn}
	children := make(map[string]Controller, len(segments))

	for _, sc := range segments {
		ctrl := v.stack.Lookup(sc.Segment)
		if ctrl == nil {
			if v.strictSegments {
				v.mu.Unlock()
				return nil, errs.NewInvalidArgValue("segment", sc.Segment)
			}
			continue
		}
		child, err := ctrl.CreateChild(sc.Options)
		if err != nil {
			v.mu.Unlock()
			return nil, err
		}
		if child == nil {
			v.mu.Unlock()
			return nil, errs.NewInvalidArgType("controller", child)
		}
		children[sc.Segment] = child
		inv = &compositeInvocation{inner: inv, controller: child}
	}

	frameID, err := v.stack.Push(children)
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}

	defer func() {
		v.mu.Lock()
		if popErr := v.stack.Pop(frameID); popErr != nil {
			logging.Op().Warn("run_in_context frame pop mismatch", "frame_id", frameID, "error", popErr)
		}
		v.mu.Unlock()
	}()

	return inv.Invoke()
}
