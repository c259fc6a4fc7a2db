// Package promise follows every asynchronous task as the runtime
// announces it through init/before/after/resolve lifecycle hooks, and
// maintains the cooperative call-stack of currently executing tasks.
//
// Identity of a task is established by whatever handle the host runtime
// hands the hooks (a channel, a goroutine-local token, a promise object in
// another runtime). Go has no native notion of "the currently running
// task" the way a single-threaded event loop does, so callers drive these
// hooks explicitly from whatever cooperative scheduler sits above this
// package; Handle only needs to be comparable so it can key a map.
package promise

import (
	"sync"

	"github.com/google/uuid"
	"github.com/oriys/ctxguard/internal/logging"
)

// Handle identifies a task across hook calls. It must be comparable
// (pointers, integers, strings are all fine); the tracker never inspects
// it beyond using it as a map key.
type Handle = any

// TaskID is the monotonic identifier assigned to a task record. 0 means
// "none" and is never assigned to a live task.
type TaskID uint32

type taskRecord struct {
	id          TaskID
	debugID     string // UUID stamped for cross-lineage log correlation
	parentID    TaskID
	activeCount int
}

// Tracker is the process-wide table of live async tasks plus the stack of
// tasks currently executing. It is not safe to share a Tracker across
// goroutines running concurrently without external synchronisation beyond
// what Tracker itself provides, matching a single-threaded-cooperative
// scheduling model; the internal mutex exists only to make accidental
// concurrent hook delivery safe, not to provide real parallelism
// guarantees.
type Tracker struct {
	mu         sync.Mutex
	nextID     TaskID
	handleToID map[Handle]TaskID
	records    map[TaskID]*taskRecord
	stack      []TaskID
}

// NewTracker returns an empty Tracker with no live tasks.
func NewTracker() *Tracker {
	return &Tracker{
		nextID:     1,
		handleToID: make(map[Handle]TaskID),
		records:    make(map[TaskID]*taskRecord),
	}
}

// Init handles the runtime's init(task, parent?) event. If this is the
// first time handle has been seen, a new record is allocated with the
// next monotonic id. If a record already exists (the runtime re-announced
// init for the same underlying task, as happens for the intermediate
// promises of combinators like "all"/"race"), its active count is
// incremented instead.
//
// Parent-upgrade policy: this tracker applies "first concrete parent
// wins" — an absent parent may be upgraded
// to a concrete one, but an already-concrete parent is never overwritten,
// even by a different concrete parent on a later init. This is the
// simplest deterministic rule that satisfies the stated invariant (never
// downgrade concrete to null).
func (t *Tracker) Init(handle Handle, parent Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parentID := t.resolveHandleLocked(parent)

	if id, ok := t.handleToID[handle]; ok {
		rec := t.records[id]
		rec.activeCount++
		if rec.parentID == 0 && parentID != 0 {
			rec.parentID = parentID
		}
		return
	}

	id := t.nextID
	t.nextID++
	rec := &taskRecord{
		id:          id,
		debugID:     uuid.NewString(),
		parentID:    parentID,
		activeCount: 1,
	}
	t.handleToID[handle] = id
	t.records[id] = rec
	logging.OpWithTrace(rec.debugID, "").Debug("promise task initialised", "task_id", id, "parent_id", parentID)
}

// resolveHandleLocked looks up the task id bound to handle, returning 0
// ("none") if handle is nil or unknown. Callers must hold t.mu.
func (t *Tracker) resolveHandleLocked(handle Handle) TaskID {
	if handle == nil {
		return 0
	}
	if id, ok := t.handleToID[handle]; ok {
		return id
	}
	return 0
}

// Resolve handles the runtime's resolve(task) event. It carries no state
// transition of its own.
func (t *Tracker) Resolve(handle Handle) {}

// Before handles the runtime's before(task) event: if a record exists for
// handle, its id is pushed onto the executing stack. An unknown handle is
// silently ignored — hook events must never raise.
func (t *Tracker) Before(handle Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.handleToID[handle]
	if !ok {
		return
	}
	t.stack = append(t.stack, id)
}

// After handles the runtime's after(task) event: if the top of the
// executing stack is this task's id, it is popped; a mismatched top is
// left alone rather than raised, since a suspended continuation elsewhere
// may have interleaved. The record's active count is then decremented and
// the record destroyed once it reaches zero.
func (t *Tracker) After(handle Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.handleToID[handle]
	if !ok {
		return
	}

	rec, ok := t.records[id]
	if n := len(t.stack); n > 0 && t.stack[n-1] == id {
		t.stack = t.stack[:n-1]
	} else if ok {
		logging.OpWithTrace(rec.debugID, "").Warn("promise after() did not match executing stack top", "task_id", id)
	} else {
		logging.Op().Warn("promise after() did not match executing stack top", "task_id", id)
	}

	if !ok {
		return
	}
	rec.activeCount--
	if rec.activeCount <= 0 {
		delete(t.records, id)
		delete(t.handleToID, handle)
	}
}

// CurrentID returns the top of the executing stack, or 0 if empty.
func (t *Tracker) CurrentID() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return 0
	}
	return uint32(t.stack[len(t.stack)-1])
}

// LiveTaskCount returns the number of task records currently tracked.
func (t *Tracker) LiveTaskCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// ExecutingDepth returns the current depth of the executing-task stack.
func (t *Tracker) ExecutingDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// ParentID returns the stored parent of id, or 0 if none or unknown.
func (t *Tracker) ParentID(id uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[TaskID(id)]
	if !ok {
		return 0
	}
	return uint32(rec.parentID)
}

// Reset clears all tracked tasks and the executing stack. Tests use this
// to get a clean Tracker without re-allocating one.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID = 1
	t.handleToID = make(map[Handle]TaskID)
	t.records = make(map[TaskID]*taskRecord)
	t.stack = nil
}
