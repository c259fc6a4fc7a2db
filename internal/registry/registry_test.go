package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/oriys/ctxguard/internal/execctx"
)

type stubController struct{}

func (stubController) CreateChild(data map[string]any) (execctx.Controller, error) {
	return stubController{}, nil
}

func (stubController) OnContext(inv execctx.Invocation) (any, error) { return inv.Invoke() }

// fakeTracker is a minimal, fully-controllable stand-in for
// *promise.Tracker so registry tests can script arbitrary parent chains,
// including cycles, without going through real task lifecycle hooks.
type fakeTracker struct {
	current uint32
	parents map[uint32]uint32
}

func (f *fakeTracker) CurrentID() uint32 { return f.current }
func (f *fakeTracker) ParentID(id uint32) uint32 {
	if p, ok := f.parents[id]; ok {
		return p
	}
	return 0
}

func TestRegistry_DefaultLineageBoundAtStartup(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	v := r.GetCurrentContext()
	if v == nil {
		t.Fatalf("expected a default view")
	}
	if v != r.lineageToView[defaultLineageName] {
		t.Fatalf("expected current context to be the default lineage's view")
	}
}

func TestRegistry_WalksAncestorsToFindBoundLineage(t *testing.T) {
	tr := &fakeTracker{current: 3, parents: map[uint32]uint32{3: 2, 2: 1}}
	r := New(tr)

	name := r.ForkForPromise(false, false)
	tr.current = 1
	if err := r.StartPromise(name); err != nil {
		t.Fatalf("StartPromise: %v", err)
	}

	tr.current = 3
	v := r.GetCurrentContext()
	if v != r.lineageToView[name] {
		t.Fatalf("expected task 3 to resolve up its chain to the forked lineage bound at task 1")
	}
}

func TestRegistry_FallsBackToDefaultOnUnboundChain(t *testing.T) {
	tr := &fakeTracker{current: 5, parents: map[uint32]uint32{5: 4, 4: 0}}
	r := New(tr)
	v := r.GetCurrentContext()
	if v != r.lineageToView[defaultLineageName] {
		t.Fatalf("expected fallback to default lineage")
	}
}

func TestRegistry_FallsBackToDefaultOnCycle(t *testing.T) {
	tr := &fakeTracker{current: 9, parents: map[uint32]uint32{9: 9}}
	r := New(tr)
	v := r.GetCurrentContext()
	if v != r.lineageToView[defaultLineageName] {
		t.Fatalf("expected fallback to default lineage on self-referential parent")
	}
}

func TestRegistry_StartPromise_UnknownNameFails(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	if err := r.StartPromise("no-such-lineage"); err == nil {
		t.Fatalf("expected error for unknown lineage name")
	}
}

func TestRegistry_StartPromise_AlreadyBoundTaskFails(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	name := r.ForkForPromise(false, false)
	if err := r.StartPromise(name); err == nil {
		t.Fatalf("expected error: task 1 is already bound to the default lineage")
	}
}

func TestRegistry_EndPromise_RemovesViewAndTaskBindings(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	name := r.ForkForPromise(false, false)
	tr.current = 2
	if err := r.StartPromise(name); err != nil {
		t.Fatalf("StartPromise: %v", err)
	}

	if removed := r.EndPromise(name); !removed {
		t.Fatalf("expected EndPromise to report removal")
	}
	if _, ok := r.lineageToView[name]; ok {
		t.Errorf("expected lineage view to be removed")
	}
	if _, ok := r.taskToLineage[2]; ok {
		t.Errorf("expected task binding to be removed")
	}

	// A second removal of the same name finds nothing left.
	if removed := r.EndPromise(name); removed {
		t.Errorf("expected no-op removal for an already-removed lineage")
	}
}

func TestRegistry_ForkInheritsControllersFromCurrentView(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)

	current := r.GetCurrentContext()
	if _, err := current.PushControllers(map[string]execctx.Controller{"fileaccess": stubController{}}); err != nil {
		t.Fatalf("PushControllers: %v", err)
	}

	name := r.ForkForPromise(true, false)
	forked := r.lineageToView[name]
	if !forked.IsStrictControllers() {
		t.Fatalf("expected forked view to carry the strict-controllers upgrade")
	}
}

func TestRegistry_LineageCount(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	if r.LineageCount() != 1 {
		t.Fatalf("expected 1 lineage (default) at startup, got %d", r.LineageCount())
	}
	r.ForkForPromise(false, false)
	if r.LineageCount() != 2 {
		t.Fatalf("expected 2 lineages after fork, got %d", r.LineageCount())
	}
}

// fakeMirror is a minimal LineageMirror stand-in that records every call
// so tests can assert the registry mirrors fork/start/end without pulling
// in internal/lineagestore or a real Redis instance.
type fakeMirror struct {
	bindings []string // "taskID:lineage" pairs recorded via RecordBinding
	removed  []string // lineage names passed to RemoveLineage
}

func (m *fakeMirror) RecordBinding(ctx context.Context, taskID uint32, lineage string) {
	m.bindings = append(m.bindings, fmt.Sprintf("%d:%s", taskID, lineage))
}

func (m *fakeMirror) RemoveLineage(ctx context.Context, lineage string) {
	m.removed = append(m.removed, lineage)
}

func TestRegistry_MirrorsForkStartEnd(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	m := &fakeMirror{}
	r.SetMirror(m)

	name := r.ForkForPromise(false, false)
	if len(m.bindings) != 1 || m.bindings[0] != fmt.Sprintf("1:%s", name) {
		t.Fatalf("expected ForkForPromise to mirror a provisional binding for the forking task, got %v", m.bindings)
	}

	tr.current = 2
	if err := r.StartPromise(name); err != nil {
		t.Fatalf("StartPromise: %v", err)
	}
	if len(m.bindings) != 2 || m.bindings[1] != fmt.Sprintf("2:%s", name) {
		t.Fatalf("expected StartPromise to mirror the real binding, got %v", m.bindings)
	}

	if removed := r.EndPromise(name); !removed {
		t.Fatalf("expected EndPromise to report removal")
	}
	if len(m.removed) != 1 || m.removed[0] != name {
		t.Fatalf("expected EndPromise to mirror the lineage removal, got %v", m.removed)
	}
}

func TestRegistry_NilMirrorIsNoop(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)

	name := r.ForkForPromise(false, false)
	if err := r.StartPromise(name); err != nil {
		t.Fatalf("StartPromise: %v", err)
	}
	if removed := r.EndPromise(name); !removed {
		t.Fatalf("expected EndPromise to report removal")
	}
}

func TestRegistry_Reset_RestoresDefaultOnly(t *testing.T) {
	tr := &fakeTracker{current: 1, parents: map[uint32]uint32{}}
	r := New(tr)
	r.ForkForPromise(false, false)
	r.Reset()

	if len(r.lineageToView) != 1 {
		t.Fatalf("expected only the default lineage after Reset, got %d", len(r.lineageToView))
	}
	if _, ok := r.lineageToView[defaultLineageName]; !ok {
		t.Fatalf("expected default lineage to be present after Reset")
	}
}
