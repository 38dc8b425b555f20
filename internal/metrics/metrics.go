// Package metrics records resolution outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives events from the selection and insertion passes.
type Recorder interface {
	EdgeResolved(s graph.EdgeStrategy)
	ResolutionError()
	ResolutionWarning()
	BridgeInserted(k graph.Kind)
	PassCompleted(pass string, d time.Duration)
}

// Nop discards every event.
type Nop struct{}

func (Nop) EdgeResolved(graph.EdgeStrategy)     {}
func (Nop) ResolutionError()                    {}
func (Nop) ResolutionWarning()                  {}
func (Nop) BridgeInserted(graph.Kind)           {}
func (Nop) PassCompleted(string, time.Duration) {}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	edges    *prometheus.CounterVec
	errors   prometheus.Counter
	warnings prometheus.Counter
	bridges  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them on reg.
// Collectors already registered by an earlier call are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		edges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hetero_edges_resolved_total",
				Help: "Connections resolved by the strategy selector, by edge strategy.",
			},
			[]string{"strategy"},
		),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetero_resolution_errors_total",
			Help: "Connections for which no compatible strategy exists.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetero_resolution_warnings_total",
			Help: "Connections that fell back to an explicit copy.",
		}),
		bridges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hetero_bridge_layers_inserted_total",
				Help: "Compatibility layers inserted, by layer kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hetero_pass_duration_seconds",
				Help:    "Duration of the selection and insertion passes.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"pass"},
		),
	}

	p.edges = register(reg, p.edges)
	p.errors = register(reg, p.errors)
	p.warnings = register(reg, p.warnings)
	p.bridges = register(reg, p.bridges)
	p.duration = register(reg, p.duration)
	return p, nil
}

// register registers c, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// EdgeResolved counts a connection by its strategy.
func (p *Prometheus) EdgeResolved(s graph.EdgeStrategy) {
	p.edges.WithLabelValues(s.String()).Inc()
}

// ResolutionError counts an unresolvable connection.
func (p *Prometheus) ResolutionError() { p.errors.Inc() }

// ResolutionWarning counts a copy fallback.
func (p *Prometheus) ResolutionWarning() { p.warnings.Inc() }

// BridgeInserted counts an inserted compatibility layer.
func (p *Prometheus) BridgeInserted(k graph.Kind) {
	p.bridges.WithLabelValues(k.String()).Inc()
}

// PassCompleted observes the duration of a pass.
func (p *Prometheus) PassCompleted(pass string, d time.Duration) {
	p.duration.WithLabelValues(pass).Observe(d.Seconds())
}
