// Package registry implements the ContextRegistry: the process-wide map
// from lineage id to ExecutionContextView, resolved for "the current task"
// by walking the PromiseTracker's parent chain.
package registry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/oriys/ctxguard/internal/errs"
	"github.com/oriys/ctxguard/internal/execctx"
)

// Tracker is the subset of promise.Tracker the registry needs to walk
// ancestor chains. Declared locally so registry does not import promise
// directly, keeping the dependency direction the same as execctx/security.
type Tracker interface {
	CurrentID() uint32
	ParentID(id uint32) uint32
}

// LineageMirror is the subset of lineagestore.Mirror the registry needs to
// shadow lineage bindings externally. Declared locally, same as Tracker,
// so registry does not import lineagestore directly. A nil LineageMirror
// is never set; SetMirror is simply not called when no mirror is
// configured, and every call site nil-checks r.mirror first.
type LineageMirror interface {
	RecordBinding(ctx context.Context, taskID uint32, lineage string)
	RemoveLineage(ctx context.Context, lineage string)
}

const defaultLineageName = "default"

// Registry is the ContextRegistry singleton. One Registry is created per
// process (or per test) and shared by every call site that needs "the
// current execution context view".
type Registry struct {
	mu            sync.Mutex
	tracker       Tracker
	mirror        LineageMirror
	lineageToView map[string]*execctx.View
	taskToLineage map[uint32]string
	nextLineageID uint64
	group         singleflight.Group
}

// New creates a Registry bound to tracker, with the default lineage
// already present and bound to the tracker's current task id.
func New(tracker Tracker) *Registry {
	r := &Registry{
		tracker:       tracker,
		lineageToView: make(map[string]*execctx.View),
		taskToLineage: make(map[uint32]string),
	}
	r.lineageToView[defaultLineageName] = execctx.NewView(false, false)
	r.taskToLineage[tracker.CurrentID()] = defaultLineageName
	return r
}

// SetMirror attaches a LineageMirror that StartPromise and EndPromise mirror
// bindings to as they change the task->lineage map. Passing nil disables
// mirroring. Not safe to call concurrently with StartPromise/EndPromise.
func (r *Registry) SetMirror(m LineageMirror) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirror = m
}

// GetCurrentContext resolves and returns the ExecutionContextView for the
// lineage of the currently executing task: walk current_id()'s ancestors
// via parent_id() until one is bound in task_to_lineage, falling back to
// the default lineage on a cycle or on reaching task id 0 unbound.
//
// Concurrent resolutions for the same current task id are deduplicated
// through a singleflight.Group — the walk itself is cheap, but this keeps
// interleaved continuations (other events may fire while one lookup is
// suspended) from repeating identical ancestor walks against the same
// registry state.
func (r *Registry) GetCurrentContext() *execctx.View {
	current := r.tracker.CurrentID()
	key := fmt.Sprintf("resolve:%d", current)

	v, _, _ := r.group.Do(key, func() (any, error) {
		return r.resolve(current), nil
	})
	return v.(*execctx.View)
}

func (r *Registry) resolve(current uint32) *execctx.View {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := current
	seen := map[uint32]bool{}
	for t != 0 {
		if name, ok := r.taskToLineage[t]; ok {
			return r.lineageToView[name]
		}
		if seen[t] {
			break
		}
		seen[t] = true
		next := r.tracker.ParentID(t)
		if next == t {
			break
		}
		t = next
	}
	return r.lineageToView[defaultLineageName]
}

// ForkForPromise creates a new lineage bound to the current view forked
// with the given strictness upgrades, and returns the new lineage's name.
// The caller is expected to bind a task to it with StartPromise once the
// runtime hands back the new task's id.
//
// The forking task's id is mirrored against the new lineage name as a
// provisional association before any task is actually bound: the
// LineageMirror lets external observers see a lineage exist from the
// moment it forks, not just once start_promise binds a task to it.
// start_promise later adds the real binding as its own hash field, and
// end_promise's scan-by-value removal cleans up this provisional field
// the same way it cleans up every other field pointing at the lineage.
func (r *Registry) ForkForPromise(strictControllers, strictSegments bool) string {
	current := r.GetCurrentContext()
	forked := current.Fork(strictControllers, strictSegments)

	r.mu.Lock()
	r.nextLineageID++
	name := fmt.Sprintf("lineage-%d", r.nextLineageID)
	r.lineageToView[name] = forked
	forkingTask := r.tracker.CurrentID()
	mirror := r.mirror
	r.mu.Unlock()

	if mirror != nil {
		mirror.RecordBinding(context.Background(), forkingTask, name)
	}
	return name
}

// StartPromise binds the currently executing task id to the lineage name,
// failing if name is unknown or the current task is already bound to any
// lineage. A successful bind is mirrored to the configured LineageMirror,
// if any, after the lock is released.
func (r *Registry) StartPromise(name string) error {
	r.mu.Lock()

	if _, ok := r.lineageToView[name]; !ok {
		r.mu.Unlock()
		return errs.NewInvalidArgValue("name", name)
	}
	current := r.tracker.CurrentID()
	if _, bound := r.taskToLineage[current]; bound {
		r.mu.Unlock()
		return errs.NewInvalidArgValue("task", current)
	}
	r.taskToLineage[current] = name
	mirror := r.mirror
	r.mu.Unlock()

	if mirror != nil {
		mirror.RecordBinding(context.Background(), current, name)
	}
	return nil
}

// EndPromise removes the lineage->view binding for name and every
// task->lineage binding pointing to it, returning true if anything was
// removed. The default lineage can be targeted like any other name, but
// callers should not normally do so. A removal that actually dropped
// something is mirrored to the configured LineageMirror, if any, after the
// lock is released.
func (r *Registry) EndPromise(name string) bool {
	r.mu.Lock()

	_, hadView := r.lineageToView[name]
	delete(r.lineageToView, name)

	removed := hadView
	for task, lineage := range r.taskToLineage {
		if lineage == name {
			delete(r.taskToLineage, task)
			removed = true
		}
	}
	mirror := r.mirror
	r.mu.Unlock()

	if removed && mirror != nil {
		mirror.RemoveLineage(context.Background(), name)
	}
	return removed
}

// UpgradeDefaultStrictness forks the default lineage's view with the given
// strictness upgrades and rebinds the default lineage name to the fork.
// View strictness flags are fixed at construction/fork time, so this is
// the only way to raise the default lineage's posture after startup.
func (r *Registry) UpgradeDefaultStrictness(strictControllers, strictSegments bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.lineageToView[defaultLineageName]
	r.lineageToView[defaultLineageName] = current.Fork(strictControllers, strictSegments)
}

// LineageCount returns the number of lineages currently registered,
// including the default lineage.
func (r *Registry) LineageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lineageToView)
}

// Reset restores the registry to its just-constructed state: the default
// lineage only, bound to the tracker's current task id. Tests use this for
// teardown between cases.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineageToView = map[string]*execctx.View{defaultLineageName: execctx.NewView(false, false)}
	r.taskToLineage = map[uint32]string{r.tracker.CurrentID(): defaultLineageName}
	r.nextLineageID = 0
}
