// Package strategy chooses a tensor handle factory for every output port and
// a transfer strategy for every connection of a layer graph.
//
// Select is a pure analysis pass: it annotates ports and connections but never
// changes the graph topology. Diagnostics are batched in a Result instead of
// failing on the first unresolvable connection.
package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/logging"
	"github.com/born-ml/hetero/internal/metrics"
)

// Options configures a selection pass.
type Options struct {
	// ExportEnabled allows zero-copy export/import handoffs between backends.
	ExportEnabled bool

	// Logger receives one debug record per connection and an info summary.
	// Defaults to a no-op logger.
	Logger *slog.Logger

	// Metrics receives per-connection outcomes. Defaults to metrics.Nop.
	Metrics metrics.Recorder
}

// DefaultOptions returns options with export enabled.
func DefaultOptions() Options {
	return Options{ExportEnabled: true}
}

// consumer is one connection of the port being resolved, with the factories
// its destination accepts.
type consumer struct {
	conn  *graph.Connection
	layer *graph.Layer
	input int

	anyFactory bool
	accepted   []*backend.Factory

	// problem is set when the connection cannot be scored at all.
	problem string
}

type selector struct {
	g        *graph.Graph
	backends backend.Map
	reg      *backend.Registry
	opts     Options
	log      *slog.Logger
	rec      metrics.Recorder
	res      *Result
}

// Select resolves every output port of g. Previous annotations are cleared
// first, so running Select again replaces them wholesale.
//
// The returned error is non-nil only when g cannot be topologically sorted;
// resolution problems are reported through Result.
func Select(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*Result, error) {
	start := time.Now()
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	g.ClearAnnotations()

	s := &selector{
		g:        g,
		backends: backends,
		reg:      reg,
		opts:     opts,
		log:      opts.Logger,
		rec:      opts.Metrics,
		res:      &Result{},
	}
	if s.log == nil {
		s.log = logging.NewNop()
	}
	if s.rec == nil {
		s.rec = metrics.Nop{}
	}

	for _, l := range order {
		for i := range l.Outputs {
			s.resolvePort(l, i)
		}
	}

	s.log.Info("strategy selection finished",
		"layers", g.Len(),
		"direct", s.res.Counts.Direct,
		"export", s.res.Counts.Export,
		"copy", s.res.Counts.Copy,
		"errors", len(s.res.Errors),
		"warnings", len(s.res.Warnings),
	)
	s.rec.PassCompleted("select", time.Since(start))
	return s.res, nil
}

func (s *selector) resolvePort(l *graph.Layer, index int) {
	port := &l.Outputs[index]
	consumers := s.consumers(port)

	b, ok := s.backends[l.Backend]
	if !ok {
		s.failPort(l, index, consumers, fmt.Sprintf("backend %q of layer %q is not available", l.Backend, l))
		return
	}

	candidates := s.candidates(l, b, consumers)
	if len(candidates) == 0 {
		s.failPort(l, index, consumers, fmt.Sprintf("backend %s registers no tensor handle factory", l.Backend))
		return
	}

	f := s.choose(candidates, consumers)
	port.Factory = f.ID
	s.log.Debug("factory selected", "layer", l.String(), "output", index, "backend", l.Backend, "factory", f.ID)

	for _, c := range consumers {
		if c.problem != "" {
			s.fail(l, index, c, c.problem)
			continue
		}
		c.conn.Strategy = s.edgeStrategy(f, c)
		switch c.conn.Strategy {
		case graph.CopyToTarget:
			s.res.warnf("layer %q output %d -> layer %q input %d: copying from factory %s on backend %s to backend %s",
				l, index, c.layer, c.input, f.ID, l.Backend, c.layer.Backend)
			s.rec.ResolutionWarning()
		case graph.Undefined:
			s.fail(l, index, c, fmt.Sprintf("factory %s on backend %s is not compatible with any of %s accepted by backend %s",
				f.ID, l.Backend, factoryList(c.accepted), c.layer.Backend))
			continue
		}
		s.record(l, index, c)
	}
}

// consumers collects the connections of port together with the factories
// each destination accepts.
func (s *selector) consumers(port *graph.OutputPort) []consumer {
	out := make([]consumer, 0, len(port.Connections))
	for i := range port.Connections {
		conn := &port.Connections[i]
		dst := s.g.Layer(conn.Target.Layer)
		c := consumer{conn: conn, layer: dst, input: conn.Target.Index}

		switch {
		case dst.Kind == graph.Output || dst.Kind.IsBridge():
			c.anyFactory = true
		default:
			cb, ok := s.backends[dst.Backend]
			if !ok {
				c.problem = fmt.Sprintf("backend %q of consumer is not available", dst.Backend)
				break
			}
			c.accepted = s.reg.Resolve(backend.AcceptedFactories(cb, dst.Op, c.input))
			if len(c.accepted) == 0 {
				c.problem = fmt.Sprintf("backend %s accepts no registered tensor handle factory", dst.Backend)
			}
		}
		out = append(out, c)
	}
	return out
}

// candidates returns the factories the producer may allocate its output in,
// in registration order. Input layers have no preference of their own and
// also consider every factory their consumers accept.
func (s *selector) candidates(l *graph.Layer, b backend.Backend, consumers []consumer) []*backend.Factory {
	ids := append([]backend.FactoryID(nil), b.HandleFactoryPreferences()...)
	if l.Kind == graph.Input {
		for _, c := range consumers {
			for _, f := range c.accepted {
				ids = append(ids, f.ID)
			}
		}
	}
	out := s.reg.Resolve(ids)
	sort.SliceStable(out, func(i, j int) bool {
		return s.reg.Order(out[i].ID) < s.reg.Order(out[j].ID)
	})
	return out
}

// choose picks the candidate satisfying the most consumers directly, then
// the most by export, then the most by copy. Earlier registration wins ties.
func (s *selector) choose(candidates []*backend.Factory, consumers []consumer) *backend.Factory {
	var best *backend.Factory
	var bestScore [3]int
	for _, f := range candidates {
		var score [3]int
		for _, c := range consumers {
			switch {
			case c.problem != "":
			case c.anyFactory || accepts(c.accepted, f.ID):
				score[0]++
			case s.opts.ExportEnabled && exportsToAny(f, c.accepted):
				score[1]++
			case copiesToAny(f, c.accepted):
				score[2]++
			}
		}
		if best == nil || betterScore(score, bestScore) {
			best, bestScore = f, score
		}
	}
	return best
}

// betterScore compares scores tier by tier.
func betterScore(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

func (s *selector) edgeStrategy(f *backend.Factory, c consumer) graph.EdgeStrategy {
	if c.anyFactory || accepts(c.accepted, f.ID) {
		return graph.DirectCompatibility
	}
	if s.opts.ExportEnabled && exportsToAny(f, c.accepted) {
		return graph.ExportToTarget
	}
	if copiesToAny(f, c.accepted) {
		return graph.CopyToTarget
	}
	return graph.Undefined
}

// failPort records one error per connection of a port that has no usable
// producer factory, or a single error when the port has no connections.
func (s *selector) failPort(l *graph.Layer, index int, consumers []consumer, reason string) {
	if len(consumers) == 0 {
		s.res.errorf("layer %q output %d: %s", l, index, reason)
		s.rec.ResolutionError()
		return
	}
	for _, c := range consumers {
		s.fail(l, index, c, reason)
	}
}

func (s *selector) fail(l *graph.Layer, index int, c consumer, reason string) {
	c.conn.Strategy = graph.Undefined
	s.res.errorf("layer %q output %d -> layer %q input %d: %s", l, index, c.layer, c.input, reason)
	s.rec.ResolutionError()
	s.record(l, index, c)
}

func (s *selector) record(l *graph.Layer, index int, c consumer) {
	s.res.Counts.add(c.conn.Strategy)
	s.rec.EdgeResolved(c.conn.Strategy)
	s.log.Debug("edge resolved",
		"producer", l.String(),
		"output", index,
		"consumer", c.layer.String(),
		"input", c.input,
		"strategy", c.conn.Strategy.String(),
	)
}

func accepts(accepted []*backend.Factory, id backend.FactoryID) bool {
	for _, f := range accepted {
		if f.ID == id {
			return true
		}
	}
	return false
}

func exportsToAny(f *backend.Factory, accepted []*backend.Factory) bool {
	for _, g := range accepted {
		if f.ExportsTo(g) {
			return true
		}
	}
	return false
}

// copiesToAny reports whether a host copy can move f's buffers into one of
// the accepted factories.
func copiesToAny(f *backend.Factory, accepted []*backend.Factory) bool {
	if !f.SupportsMapUnmap() {
		return false
	}
	for _, g := range accepted {
		if g.SupportsMapUnmap() {
			return true
		}
	}
	return false
}

func factoryList(fs []*backend.Factory) string {
	ids := make([]string, len(fs))
	for i, f := range fs {
		ids[i] = string(f.ID)
	}
	return "[" + strings.Join(ids, ", ") + "]"
}
