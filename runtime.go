package ctxguard

import (
	"context"

	"github.com/oriys/ctxguard/internal/config"
	"github.com/oriys/ctxguard/internal/lineagestore"
	"github.com/oriys/ctxguard/internal/logging"
	"github.com/oriys/ctxguard/internal/metrics"
)

// Runtime bundles the ambient stack a process bootstraps once at startup:
// structured logging, an optional Prometheus collector, and an optional
// Redis lineage mirror. cmd/fileguard and internal/demoserver both build
// one from a loaded Config.
type Runtime struct {
	Config  *config.Config
	Metrics *metrics.Collector   // nil if config.Metrics.Enabled is false
	Mirror  *lineagestore.Mirror // nil if config.LineageMirror.Enabled is false
}

// NewRuntime applies cfg's logging settings, optionally builds a
// Prometheus collector and Redis mirror, and applies cfg.Runtime's
// strictness defaults to the default lineage's view.
func NewRuntime(cfg *config.Config) *Runtime {
	logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

	rt := &Runtime{Config: cfg}
	if cfg.Metrics.Enabled {
		rt.Metrics = metrics.New(cfg.Metrics.Namespace)
	}
	if cfg.LineageMirror.Enabled {
		rt.Mirror = lineagestore.New(lineagestore.Config{
			Addr:    cfg.LineageMirror.Addr,
			KeyName: cfg.LineageMirror.KeyName,
		})
		globalMu.Lock()
		ctxRegistry.SetMirror(rt.Mirror)
		globalMu.Unlock()
	}

	applyDefaultStrictness(cfg.Runtime.DefaultStrictControllers, cfg.Runtime.DefaultStrictSegments)
	return rt
}

// applyDefaultStrictness upgrades the default lineage's view in place by
// forking it with the configured strictness and re-binding the default
// lineage to the fork — the only way to change a View's strictness flags
// after construction, since they are fixed at Fork/NewView time.
func applyDefaultStrictness(strictControllers, strictSegments bool) {
	if !strictControllers && !strictSegments {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	ctxRegistry.UpgradeDefaultStrictness(strictControllers, strictSegments)
}

// ReportMetrics snapshots the tracker and registry's current sizes into
// rt.Metrics. Callers (e.g. cmd/fileguard's serve loop) call this on a
// timer; it is a no-op if metrics were not enabled.
func (rt *Runtime) ReportMetrics() {
	if rt.Metrics == nil {
		return
	}
	globalMu.Lock()
	liveTasks := tracker.LiveTaskCount()
	executingDepth := tracker.ExecutingDepth()
	lineageCount := ctxRegistry.LineageCount()
	globalMu.Unlock()

	rt.Metrics.SetLiveTasks(liveTasks)
	rt.Metrics.SetExecutingDepth(executingDepth)
	rt.Metrics.SetLineageCount(lineageCount)
}

// MirrorBinding mirrors a task's lineage binding to Redis if a mirror is
// configured; otherwise it is a no-op. StartPromise already mirrors every
// binding it creates through the registry's attached LineageMirror; this
// method exists for callers that bind task->lineage pairs outside that
// path and still want them reflected in the same Redis hash.
func (rt *Runtime) MirrorBinding(ctx context.Context, taskID uint32, lineage string) {
	rt.Mirror.RecordBinding(ctx, taskID, lineage)
}

// MirrorEnd mirrors a lineage's removal to Redis if a mirror is
// configured; otherwise it is a no-op. EndPromise already mirrors removal
// through the registry's attached LineageMirror; this method is the
// equivalent manual hook for callers outside that path.
func (rt *Runtime) MirrorEnd(ctx context.Context, lineage string) {
	rt.Mirror.RemoveLineage(ctx, lineage)
}

// Close releases the runtime's external connections.
func (rt *Runtime) Close() error {
	if rt.Mirror != nil {
		return rt.Mirror.Close()
	}
	return nil
}
