// Package metrics exposes a Prometheus registry over the context runtime's
// own signals: live promise-lineage tasks, executing-stack depth,
// controller-stack frame counts, and file-access allow/deny totals by
// kind.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps the Prometheus collectors this module registers.
// Registering is opt-in (internal/config's MetricsConfig.Enabled) so the
// library has no observability side effects unless a caller asks for them.
type Collector struct {
	registry *prometheus.Registry

	liveTasks       prometheus.Gauge
	executingDepth  prometheus.Gauge
	controllerDepth *prometheus.GaugeVec
	lineageCount    prometheus.Gauge

	fileAccessTotal *prometheus.CounterVec
}

// New builds a Collector under namespace and registers the standard Go
// and process collectors alongside it.
func New(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,

		liveTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_tasks",
			Help:      "Number of promise-lineage tasks with a live record in the tracker.",
		}),
		executingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executing_stack_depth",
			Help:      "Current depth of the cooperative executing-task stack.",
		}),
		controllerDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_stack_frames",
			Help:      "Number of controller-stack frames currently pushed, per lineage.",
		}, []string{"lineage"}),
		lineageCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lineages_total",
			Help:      "Number of lineages currently registered in the context registry.",
		}),
		fileAccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fileaccess_checks_total",
			Help:      "File-access controller checks, partitioned by access kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	registry.MustRegister(
		c.liveTasks,
		c.executingDepth,
		c.controllerDepth,
		c.lineageCount,
		c.fileAccessTotal,
	)
	return c
}

// SetLiveTasks reports the current number of live tracker records.
func (c *Collector) SetLiveTasks(n int) { c.liveTasks.Set(float64(n)) }

// SetExecutingDepth reports the current depth of the executing-task stack.
func (c *Collector) SetExecutingDepth(n int) { c.executingDepth.Set(float64(n)) }

// SetControllerDepth reports the current frame count for one lineage's
// controller stack.
func (c *Collector) SetControllerDepth(lineage string, n int) {
	c.controllerDepth.WithLabelValues(lineage).Set(float64(n))
}

// SetLineageCount reports the current number of registered lineages.
func (c *Collector) SetLineageCount(n int) { c.lineageCount.Set(float64(n)) }

// RecordFileAccessCheck increments the counter for one (kind, outcome)
// pair, e.g. ("read", "allow") or ("write", "deny").
func (c *Collector) RecordFileAccessCheck(kind, outcome string) {
	c.fileAccessTotal.WithLabelValues(kind, outcome).Inc()
}

// Handler returns an http.Handler serving this collector's registry in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
