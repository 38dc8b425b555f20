// Package graph implements the layer graph annotated and rewritten by the
// backend-compatibility passes.
//
// Layers live in an arena and refer to each other through LayerID handles, so
// rewiring a connection never invalidates references held elsewhere. The graph
// is not safe for concurrent mutation.
package graph

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/backend"
)

// ErrCycle is returned when the graph is not a DAG.
var ErrCycle = errors.New("graph: cycle detected")

// Graph is a directed acyclic graph of layers.
type Graph struct {
	layers []*Layer
	byName map[string]LayerID

	order  []LayerID
	sorted bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]LayerID)}
}

// AddLayer appends a layer with the given number of input and output ports.
func (g *Graph) AddLayer(kind Kind, op, name string, numInputs, numOutputs int) *Layer {
	l := &Layer{
		ID:      LayerID(len(g.layers)),
		Name:    name,
		Kind:    kind,
		Op:      op,
		Inputs:  make([]InputPort, numInputs),
		Outputs: make([]OutputPort, numOutputs),
	}
	g.layers = append(g.layers, l)
	if name != "" {
		if _, exists := g.byName[name]; !exists {
			g.byName[name] = l.ID
		}
	}
	g.sorted = false
	return l
}

// AddInput adds a network input layer with one output.
func (g *Graph) AddInput(name string) *Layer {
	return g.AddLayer(Input, "Input", name, 0, 1)
}

// AddOutput adds a network output layer with one input.
func (g *Graph) AddOutput(name string) *Layer {
	return g.AddLayer(Output, "Output", name, 1, 0)
}

// AddCompute adds a compute layer running op.
func (g *Graph) AddCompute(op, name string, numInputs, numOutputs int) *Layer {
	return g.AddLayer(Compute, op, name, numInputs, numOutputs)
}

// Layer returns the layer with the given id, or nil.
func (g *Graph) Layer(id LayerID) *Layer {
	if id < 0 || int(id) >= len(g.layers) {
		return nil
	}
	return g.layers[id]
}

// LayerByName returns the first layer added with name.
func (g *Graph) LayerByName(name string) (*Layer, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.layers[id], true
}

// Len returns the number of layers.
func (g *Graph) Len() int {
	return len(g.layers)
}

// Layers returns the layers in insertion order.
func (g *Graph) Layers() []*Layer {
	out := make([]*Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

// ForEachLayer calls fn for every layer in insertion order.
func (g *Graph) ForEachLayer(fn func(*Layer)) {
	for _, l := range g.layers {
		fn(l)
	}
}

// CountKind returns the number of layers of kind k.
func (g *Graph) CountKind(k Kind) int {
	n := 0
	for _, l := range g.layers {
		if l.Kind == k {
			n++
		}
	}
	return n
}

// SetBackend assigns a layer to a backend.
func (g *Graph) SetBackend(id LayerID, b backend.ID) {
	if l := g.Layer(id); l != nil {
		l.Backend = b
	}
}

// OutputPort returns the port addressed by ref.
func (g *Graph) OutputPort(ref OutputRef) (*OutputPort, error) {
	l := g.Layer(ref.Layer)
	if l == nil {
		return nil, fmt.Errorf("graph: unknown layer %d", ref.Layer)
	}
	if ref.Index < 0 || ref.Index >= len(l.Outputs) {
		return nil, fmt.Errorf("graph: layer %s has no output %d", l, ref.Index)
	}
	return &l.Outputs[ref.Index], nil
}

// InputPort returns the port addressed by ref.
func (g *Graph) InputPort(ref InputRef) (*InputPort, error) {
	l := g.Layer(ref.Layer)
	if l == nil {
		return nil, fmt.Errorf("graph: unknown layer %d", ref.Layer)
	}
	if ref.Index < 0 || ref.Index >= len(l.Inputs) {
		return nil, fmt.Errorf("graph: layer %s has no input %d", l, ref.Index)
	}
	return &l.Inputs[ref.Index], nil
}

// Connect adds a connection from an output port to an unconnected input port.
func (g *Graph) Connect(from OutputRef, to InputRef) error {
	if from.Layer == to.Layer {
		return fmt.Errorf("graph: self-referential connection on layer %d", from.Layer)
	}
	out, err := g.OutputPort(from)
	if err != nil {
		return err
	}
	in, err := g.InputPort(to)
	if err != nil {
		return err
	}
	if in.Connected {
		return fmt.Errorf("graph: input %d of layer %s is already connected", to.Index, g.layers[to.Layer])
	}

	out.Connections = append(out.Connections, Connection{Target: to})
	in.Source = from
	in.Connected = true
	g.sorted = false
	return nil
}

// InsertLayer splices a new single-input, single-output layer into the
// connection feeding target. The producer keeps the connection at the same
// fan-out position and the target keeps its input index; the new connections
// are DirectCompatibility.
func (g *Graph) InsertLayer(target InputRef, kind Kind, name string, b backend.ID) (*Layer, error) {
	in, err := g.InputPort(target)
	if err != nil {
		return nil, err
	}
	if !in.Connected {
		return nil, fmt.Errorf("graph: input %d of layer %s is not connected", target.Index, g.layers[target.Layer])
	}
	source := in.Source
	out, err := g.OutputPort(source)
	if err != nil {
		return nil, err
	}
	pos := -1
	for i, c := range out.Connections {
		if c.Target == target {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("graph: connection to %s input %d missing on producer", g.layers[target.Layer], target.Index)
	}

	l := g.AddLayer(kind, kind.String(), name, 1, 1)
	l.Backend = b

	out.Connections[pos] = Connection{Target: InputRef{Layer: l.ID}, Strategy: DirectCompatibility}
	l.Inputs[0] = InputPort{Source: source, Connected: true}
	l.Outputs[0].Connections = []Connection{{Target: target, Strategy: DirectCompatibility}}
	in.Source = OutputRef{Layer: l.ID}
	return l, nil
}

// ClearAnnotations resets every factory choice and edge strategy.
func (g *Graph) ClearAnnotations() {
	for _, l := range g.layers {
		for i := range l.Outputs {
			l.Outputs[i].Factory = ""
			for j := range l.Outputs[i].Connections {
				l.Outputs[i].Connections[j].Strategy = Undefined
			}
		}
	}
}

// Edges returns every connection, producers in topological order.
func (g *Graph) Edges() ([]Edge, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	var edges []Edge
	for _, l := range order {
		for i, out := range l.Outputs {
			for j, c := range out.Connections {
				edges = append(edges, Edge{
					From:            OutputRef{Layer: l.ID, Index: i},
					ConnectionIndex: j,
					To:              c.Target,
					Strategy:        c.Strategy,
				})
			}
		}
	}
	return edges, nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		layers: make([]*Layer, len(g.layers)),
		byName: make(map[string]LayerID, len(g.byName)),
		order:  append([]LayerID(nil), g.order...),
		sorted: g.sorted,
	}
	for name, id := range g.byName {
		c.byName[name] = id
	}
	for i, l := range g.layers {
		cl := *l
		cl.Inputs = append([]InputPort(nil), l.Inputs...)
		cl.Outputs = make([]OutputPort, len(l.Outputs))
		for j, out := range l.Outputs {
			cl.Outputs[j] = OutputPort{
				Factory:     out.Factory,
				Connections: append([]Connection(nil), out.Connections...),
			}
		}
		c.layers[i] = &cl
	}
	return c
}
