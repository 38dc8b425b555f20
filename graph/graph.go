// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the layer graph the resolution passes annotate.
//
// Layers own numbered input and output ports. Each output port records the
// tensor handle factory chosen for its data and one Connection per consumer,
// and each connection carries the EdgeStrategy chosen for it.
package graph

import internalgraph "github.com/born-ml/hetero/internal/graph"

// Types.
type (
	Graph        = internalgraph.Graph
	Layer        = internalgraph.Layer
	LayerID      = internalgraph.LayerID
	Kind         = internalgraph.Kind
	EdgeStrategy = internalgraph.EdgeStrategy
	OutputRef    = internalgraph.OutputRef
	InputRef     = internalgraph.InputRef
	OutputPort   = internalgraph.OutputPort
	InputPort    = internalgraph.InputPort
	Connection   = internalgraph.Connection
	Edge         = internalgraph.Edge
)

// Layer kinds.
const (
	Input     = internalgraph.Input
	Output    = internalgraph.Output
	Compute   = internalgraph.Compute
	MemCopy   = internalgraph.MemCopy
	MemImport = internalgraph.MemImport
)

// Edge strategies.
const (
	Undefined           = internalgraph.Undefined
	DirectCompatibility = internalgraph.DirectCompatibility
	ExportToTarget      = internalgraph.ExportToTarget
	CopyToTarget        = internalgraph.CopyToTarget
)

// ErrCycle is returned when the graph is not a DAG.
var ErrCycle = internalgraph.ErrCycle

// New creates an empty graph.
//
// Example:
//
//	g := graph.New()
//	in := g.AddInput("input")
//	sm := g.AddCompute("Softmax", "softmax", 1, 1)
//	out := g.AddOutput("output")
//	in.Backend, sm.Backend, out.Backend = cpu.AccID, webgpu.ID, webgpu.ID
//	_ = g.Connect(graph.OutputRef{Layer: in.ID}, graph.InputRef{Layer: sm.ID})
//	_ = g.Connect(graph.OutputRef{Layer: sm.ID}, graph.InputRef{Layer: out.ID})
func New() *Graph {
	return internalgraph.New()
}
