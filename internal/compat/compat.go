// Package compat splices data-movement layers into connections that the
// strategy selector could not resolve as direct.
//
// Every CopyToTarget connection gets a MemCopy layer and every ExportToTarget
// connection a MemImport layer, both placed on the consumer's backend. After
// insertion every connection in the graph is DirectCompatibility.
package compat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/logging"
	"github.com/born-ml/hetero/internal/metrics"
)

// Options configures an insertion pass.
type Options struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Summary reports what an insertion pass added.
type Summary struct {
	Copies   int             `json:"copies"`
	Imports  int             `json:"imports"`
	Inserted []graph.LayerID `json:"inserted,omitempty"`
}

// Total returns the number of inserted layers.
func (s Summary) Total() int { return s.Copies + s.Imports }

// BridgeName returns the name given to the layer bridging producer output
// index to consumer input index.
func BridgeName(producer *graph.Layer, output int, consumer *graph.Layer, input int) string {
	return fmt.Sprintf("[ %s (%d) -> %s (%d) ]", producer, output, consumer, input)
}

// AddCompatibilityLayers bridges every non-direct connection of g and re-sorts
// the graph.
//
// Every connection must carry a resolved strategy. A graph with an Undefined
// connection means resolution errors were ignored upstream, and
// AddCompatibilityLayers panics without modifying g.
func AddCompatibilityLayers(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (Summary, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	// Collect first: insertion appends layers and rewires ports.
	edges, err := g.Edges()
	if err != nil {
		return Summary{}, fmt.Errorf("compat: %w", err)
	}
	for _, e := range edges {
		if e.Strategy == graph.Undefined {
			panic(fmt.Sprintf("compat: connection %s output %d -> %s input %d has no resolved strategy",
				g.Layer(e.From.Layer), e.From.Index, g.Layer(e.To.Layer), e.To.Index))
		}
	}

	var sum Summary
	for _, e := range edges {
		var kind graph.Kind
		switch e.Strategy {
		case graph.CopyToTarget:
			kind = graph.MemCopy
		case graph.ExportToTarget:
			kind = graph.MemImport
		default:
			continue
		}

		src := g.Layer(e.From.Layer)
		dst := g.Layer(e.To.Layer)
		srcFactory := src.Outputs[e.From.Index].Factory

		bridge, err := g.InsertLayer(e.To, kind, BridgeName(src, e.From.Index, dst, e.To.Index), dst.Backend)
		if err != nil {
			return sum, fmt.Errorf("compat: %w", err)
		}
		bridge.Outputs[0].Factory = bridgeFactory(kind, reg.Factory(srcFactory), backends[dst.Backend], reg, dst, e.To.Index)

		if kind == graph.MemCopy {
			sum.Copies++
		} else {
			sum.Imports++
		}
		sum.Inserted = append(sum.Inserted, bridge.ID)
		rec.BridgeInserted(kind)
		log.Debug("compatibility layer inserted",
			"layer", bridge.Name,
			"kind", kind.String(),
			"backend", bridge.Backend,
			"factory", bridge.Outputs[0].Factory,
		)
	}

	if err := g.TopologicalSort(); err != nil {
		return sum, fmt.Errorf("compat: %w", err)
	}

	log.Info("compatibility layers inserted", "copies", sum.Copies, "imports", sum.Imports)
	rec.PassCompleted("insert", time.Since(start))
	return sum, nil
}

// bridgeFactory picks the factory a bridge allocates its output in, among
// the factories the consumer accepts, in the order it lists them. A MemCopy needs a
// host mappable factory; a MemImport needs one that adopts the producer's
// export. Returns "" when the consumer backend is unknown or no factory
// qualifies.
func bridgeFactory(kind graph.Kind, src *backend.Factory, dstBackend backend.Backend, reg *backend.Registry, dst *graph.Layer, input int) backend.FactoryID {
	if dstBackend == nil {
		return ""
	}
	for _, f := range reg.Resolve(backend.AcceptedFactories(dstBackend, dst.Op, input)) {
		switch kind {
		case graph.MemCopy:
			if f.SupportsMapUnmap() {
				return f.ID
			}
		case graph.MemImport:
			if src != nil && src.ExportsTo(f) {
				return f.ID
			}
		}
	}
	return ""
}
