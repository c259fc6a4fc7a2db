package lineagestore

import (
	"context"
	"testing"
)

func TestMirror_NilReceiverIsNoop(t *testing.T) {
	var m *Mirror
	ctx := context.Background()
	m.RecordBinding(ctx, 1, "default")
	m.RemoveLineage(ctx, "default")
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("nil mirror Ping should be a no-op, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("nil mirror Close should be a no-op, got %v", err)
	}
}

func TestMirror_DefaultsKeyName(t *testing.T) {
	m := New(Config{Addr: "127.0.0.1:0"})
	if m.keyName != "ctxguard:lineages" {
		t.Errorf("expected default key name, got %q", m.keyName)
	}
	m.Close()
}

func TestMirror_BestEffortWritesDoNotPanicOnUnreachableServer(t *testing.T) {
	m := New(Config{Addr: "127.0.0.1:1", KeyName: "test:lineages"})
	defer m.Close()
	ctx := context.Background()

	// Nothing is listening on this address; RecordBinding/RemoveLineage
	// must swallow the error (logging it) rather than panicking or
	// surfacing it to the caller, since the mirror is purely observational.
	m.RecordBinding(ctx, 42, "default")
	m.RemoveLineage(ctx, "default")
}
