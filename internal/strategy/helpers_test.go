package strategy

import (
	"testing"
	"time"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/capability"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/stretchr/testify/require"
)

// fixture bundles the backends and registry a test graph resolves against.
type fixture struct {
	backends backend.Map
	reg      *backend.Registry
}

func newFixture(t *testing.T, bs ...*backend.Static) fixture {
	t.Helper()
	list := make([]backend.Backend, len(bs))
	for i, b := range bs {
		list[i] = b
	}
	m, err := backend.NewMap(list...)
	require.NoError(t, err)
	reg := backend.NewRegistry()
	require.NoError(t, m.RegisterAll(reg))
	return fixture{backends: m, reg: reg}
}

func (f fixture) selectAll(t *testing.T, g *graph.Graph, exportEnabled bool) *Result {
	t.Helper()
	res, err := Select(g, f.backends, f.reg, Options{ExportEnabled: exportEnabled})
	require.NoError(t, err)
	return res
}

func static(id backend.ID, prefs []backend.FactoryID, owned ...backend.Factory) *backend.Static {
	return &backend.Static{BackendID: id, Kind: backend.CPU, Preferences: prefs, Owned: owned}
}

func ids(s ...string) []backend.FactoryID {
	out := make([]backend.FactoryID, len(s))
	for i, v := range s {
		out[i] = backend.FactoryID(v)
	}
	return out
}

// mappable is a factory that only supports explicit copies.
func mappable(id string) backend.Factory {
	return backend.Factory{ID: backend.FactoryID(id), MapUnmap: true}
}

// opaque is a factory that supports neither export, import nor copies.
func opaque(id string) backend.Factory {
	return backend.Factory{ID: backend.FactoryID(id)}
}

func padded(f backend.Factory) backend.Factory {
	f.Capabilities = append(f.Capabilities, capability.NewBool(backend.CapPaddingRequired, true))
	return f
}

// addLayer adds a single-input single-output layer of kind on b.
func addLayer(g *graph.Graph, kind graph.Kind, name string, b backend.ID) *graph.Layer {
	var l *graph.Layer
	switch kind {
	case graph.Input:
		l = g.AddInput(name)
	case graph.Output:
		l = g.AddOutput(name)
	default:
		l = g.AddCompute("Activation", name, 1, 1)
	}
	l.Backend = b
	return l
}

func link(t *testing.T, g *graph.Graph, from, to *graph.Layer, input int) {
	t.Helper()
	require.NoError(t, g.Connect(graph.OutputRef{Layer: from.ID}, graph.InputRef{Layer: to.ID, Index: input}))
}

// chain builds Input -> compute... -> Output with one layer per backend.
func chain(t *testing.T, g *graph.Graph, names []string, backends []backend.ID) []*graph.Layer {
	t.Helper()
	require.Equal(t, len(names), len(backends))
	layers := make([]*graph.Layer, len(names))
	for i := range names {
		kind := graph.Compute
		switch i {
		case 0:
			kind = graph.Input
		case len(names) - 1:
			kind = graph.Output
		}
		layers[i] = addLayer(g, kind, names[i], backends[i])
		if i > 0 {
			link(t, g, layers[i-1], layers[i], 0)
		}
	}
	return layers
}

func strategies(l *graph.Layer) []graph.EdgeStrategy {
	var out []graph.EdgeStrategy
	for _, c := range l.Outputs[0].Connections {
		out = append(out, c.Strategy)
	}
	return out
}

// annotation is a comparable snapshot of one output port.
type annotation struct {
	Layer      string
	Output     int
	Factory    backend.FactoryID
	Strategies []graph.EdgeStrategy
}

func snapshot(g *graph.Graph) []annotation {
	var out []annotation
	g.ForEachLayer(func(l *graph.Layer) {
		for i, port := range l.Outputs {
			a := annotation{Layer: l.Name, Output: i, Factory: port.Factory}
			for _, c := range port.Connections {
				a.Strategies = append(a.Strategies, c.Strategy)
			}
			out = append(out, a)
		}
	})
	return out
}

// countingRecorder records metric events for assertions.
type countingRecorder struct {
	edges    map[graph.EdgeStrategy]int
	errors   int
	warnings int
	passes   []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{edges: make(map[graph.EdgeStrategy]int)}
}

func (r *countingRecorder) EdgeResolved(s graph.EdgeStrategy)          { r.edges[s]++ }
func (r *countingRecorder) ResolutionError()                           { r.errors++ }
func (r *countingRecorder) ResolutionWarning()                         { r.warnings++ }
func (r *countingRecorder) BridgeInserted(graph.Kind)                  {}
func (r *countingRecorder) PassCompleted(pass string, _ time.Duration) { r.passes = append(r.passes, pass) }
