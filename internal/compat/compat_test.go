package compat

import (
	"testing"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/backend/cpu"
	"github.com/born-ml/hetero/internal/backend/webgpu"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

// resolve runs the selector and the inserter, failing on resolution errors.
func (f fixture) resolve(t *testing.T, g *graph.Graph) (*strategy.Result, Summary) {
	t.Helper()
	res, err := strategy.Select(g, f.backends, f.reg, strategy.DefaultOptions())
	require.NoError(t, err)
	require.False(t, res.HasError, "%v", res.Errors)
	sum, err := AddCompatibilityLayers(g, f.backends, f.reg, Options{})
	require.NoError(t, err)
	return res, sum
}

func static(id backend.ID, factory backend.Factory) *backend.Static {
	return &backend.Static{
		BackendID:   id,
		Preferences: []backend.FactoryID{factory.ID},
		Owned:       []backend.Factory{factory},
	}
}

func chain(t *testing.T, g *graph.Graph, names []string, backends []backend.ID) []*graph.Layer {
	t.Helper()
	layers := make([]*graph.Layer, len(names))
	for i, name := range names {
		switch i {
		case 0:
			layers[i] = g.AddInput(name)
		case len(names) - 1:
			layers[i] = g.AddOutput(name)
		default:
			layers[i] = g.AddCompute("Softmax", name, 1, 1)
		}
		layers[i].Backend = backends[i]
		if i > 0 {
			connect(t, g, layers[i-1], layers[i], 0)
		}
	}
	return layers
}

func connect(t *testing.T, g *graph.Graph, from, to *graph.Layer, input int) {
	t.Helper()
	require.NoError(t, g.Connect(graph.OutputRef{Layer: from.ID}, graph.InputRef{Layer: to.ID, Index: input}))
}

func orderNames(t *testing.T, g *graph.Graph) []string {
	t.Helper()
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	out := make([]string, len(order))
	for i, l := range order {
		out[i] = l.Name
	}
	return out
}

func assertAllDirect(t *testing.T, g *graph.Graph) {
	t.Helper()
	edges, err := g.Edges()
	require.NoError(t, err)
	for _, e := range edges {
		assert.Equal(t, graph.DirectCompatibility, e.Strategy, "%s -> %s", g.Layer(e.From.Layer), g.Layer(e.To.Layer))
	}
}

var (
	exporter = backend.Factory{ID: "fa", ExportFlags: backend.Malloc, MapUnmap: true}
	importer = backend.Factory{ID: "fb", ImportFlags: backend.Malloc, MapUnmap: true}
	copier   = backend.Factory{ID: "fc", MapUnmap: true}
)

func TestAddCompatibilityLayers_SameBackend(t *testing.T) {
	fx := newFixture(t, static("A", exporter))

	g := graph.New()
	chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{"A", "A", "A", "A"})
	_, sum := fx.resolve(t, g)

	assert.Equal(t, Summary{}, sum)
	assert.Equal(t, 4, g.Len())
}

func TestAddCompatibilityLayers_ExportInsertsMemImport(t *testing.T) {
	fx := newFixture(t, static("A", exporter), static("B", importer))

	g := graph.New()
	layers := chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{"A", "A", "B", "B"})
	res, sum := fx.resolve(t, g)

	assert.False(t, res.HasWarning)
	assert.Equal(t, 1, sum.Imports)
	assert.Equal(t, 0, sum.Copies)
	assert.Equal(t, 0, g.CountKind(graph.MemCopy))
	require.Len(t, sum.Inserted, 1)

	bridge := g.Layer(sum.Inserted[0])
	assert.Equal(t, graph.MemImport, bridge.Kind)
	assert.Equal(t, "[ x (0) -> y (0) ]", bridge.Name)
	assert.Equal(t, backend.ID("B"), bridge.Backend, "bridge runs on the consumer backend")
	assert.Equal(t, backend.FactoryID("fb"), bridge.Outputs[0].Factory)
	assert.Equal(t, graph.OutputRef{Layer: bridge.ID}, layers[2].Inputs[0].Source)

	assert.Equal(t, []string{"input", "x", "[ x (0) -> y (0) ]", "y", "output"}, orderNames(t, g))
	assertAllDirect(t, g)
}

func TestAddCompatibilityLayers_ImportSkipsMappableFactory(t *testing.T) {
	// B lists a mappable device factory ahead of the one that imports.
	device := backend.Factory{ID: "device", MapUnmap: true}
	wrap := backend.Factory{ID: "wrap", ImportFlags: backend.Malloc}
	b := &backend.Static{
		BackendID:   "B",
		Preferences: []backend.FactoryID{"device", "wrap"},
		Owned:       []backend.Factory{device, wrap},
	}
	fx := newFixture(t, static("A", exporter), b)

	g := graph.New()
	chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{"A", "A", "B", "B"})
	_, sum := fx.resolve(t, g)

	require.Equal(t, 1, sum.Imports)
	bridge := g.Layer(sum.Inserted[0])
	assert.Equal(t, graph.MemImport, bridge.Kind)
	assert.Equal(t, backend.FactoryID("wrap"), bridge.Outputs[0].Factory)
}

func TestAddCompatibilityLayers_BuiltinCPUToWebGPU(t *testing.T) {
	backends, err := backend.NewMap(cpu.New(), webgpu.New())
	require.NoError(t, err)
	reg := backend.NewRegistry()
	require.NoError(t, backends.RegisterAll(reg))
	fx := fixture{backends: backends, reg: reg}

	g := graph.New()
	layers := chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{cpu.RefID, cpu.RefID, webgpu.ID, webgpu.ID})
	res, err := strategy.Select(g, fx.backends, fx.reg, strategy.DefaultOptions())
	require.NoError(t, err)
	require.False(t, res.HasError, "%v", res.Errors)
	assert.Equal(t, graph.ExportToTarget, layers[1].Outputs[0].Connections[0].Strategy)

	sum, err := AddCompatibilityLayers(g, fx.backends, fx.reg, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Imports)

	bridge := g.Layer(sum.Inserted[0])
	out := reg.Factory(bridge.Outputs[0].Factory)
	require.NotNil(t, out)
	assert.Equal(t, webgpu.ImportFactoryID, out.ID)
	assert.True(t, out.CanImport())
	assert.True(t, reg.Factory(cpu.RefFactoryID).ExportsTo(out))
	assertAllDirect(t, g)
}

func TestAddCompatibilityLayers_CopyInsertsMemCopy(t *testing.T) {
	fx := newFixture(t, static("A", copier), static("B", importer))

	g := graph.New()
	chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{"A", "A", "B", "B"})
	res, sum := fx.resolve(t, g)

	assert.True(t, res.HasWarning)
	assert.False(t, res.HasError)
	assert.Equal(t, Summary{Copies: 1, Inserted: sum.Inserted}, sum)
	assert.Equal(t, 1, g.CountKind(graph.MemCopy))
	assert.Equal(t, 0, g.CountKind(graph.MemImport))
	assertAllDirect(t, g)
}

func TestAddCompatibilityLayers_Idempotent(t *testing.T) {
	fx := newFixture(t, static("A", copier), static("B", importer))

	g := graph.New()
	chain(t, g, []string{"input", "x", "y", "output"}, []backend.ID{"A", "A", "B", "B"})
	fx.resolve(t, g)
	n := g.Len()

	sum, err := AddCompatibilityLayers(g, fx.backends, fx.reg, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total())
	assert.Equal(t, n, g.Len())

	// Selecting again on the bridged graph finds nothing left to bridge.
	res, sum := fx.resolve(t, g)
	assert.False(t, res.HasWarning)
	assert.Equal(t, 0, sum.Total())
	assert.Equal(t, n, g.Len())
}

func TestAddCompatibilityLayers_FanOut(t *testing.T) {
	fx := newFixture(t, static("A", exporter), static("B", importer), static("C", copier))

	g := graph.New()
	input := g.AddInput("input")
	input.Backend = "A"
	x := g.AddCompute("Softmax", "x", 1, 1)
	x.Backend = "A"
	connect(t, g, input, x, 0)

	consumers := map[backend.ID]*graph.Layer{}
	for _, id := range []backend.ID{"A", "B", "C"} {
		l := g.AddCompute("Softmax", "on"+string(id), 1, 1)
		l.Backend = id
		connect(t, g, x, l, 0)
		consumers[id] = l
	}

	_, sum := fx.resolve(t, g)

	assert.Equal(t, 1, sum.Imports)
	assert.Equal(t, 1, sum.Copies)

	conns := x.Outputs[0].Connections
	require.Len(t, conns, 3)
	assert.Equal(t, graph.InputRef{Layer: consumers["A"].ID}, conns[0].Target, "direct edge untouched")
	assert.Equal(t, graph.MemImport, g.Layer(conns[1].Target.Layer).Kind)
	assert.Equal(t, graph.MemCopy, g.Layer(conns[2].Target.Layer).Kind)
	assert.Equal(t, backend.ID("C"), g.Layer(conns[2].Target.Layer).Backend)
	assertAllDirect(t, g)
}

func TestAddCompatibilityLayers_KeepsInputIndex(t *testing.T) {
	fx := newFixture(t, static("A", copier), static("B", importer))

	g := graph.New()
	left := g.AddInput("left")
	left.Backend = "B"
	right := g.AddInput("right")
	right.Backend = "A"
	pre := g.AddCompute("Softmax", "pre", 1, 1)
	pre.Backend = "A"
	stack := g.AddCompute("Stack", "stack", 2, 1)
	stack.Backend = "B"
	connect(t, g, left, stack, 0)
	connect(t, g, right, pre, 0)
	connect(t, g, pre, stack, 1)

	_, sum := fx.resolve(t, g)
	require.Equal(t, 1, sum.Copies)

	bridge := g.Layer(sum.Inserted[0])
	assert.Equal(t, "[ pre (0) -> stack (1) ]", bridge.Name)
	assert.Equal(t, graph.OutputRef{Layer: left.ID}, stack.Inputs[0].Source)
	assert.Equal(t, graph.OutputRef{Layer: bridge.ID}, stack.Inputs[1].Source)
}

func TestAddCompatibilityLayers_AlternatingChain(t *testing.T) {
	shared := backend.Factory{ID: "shared", MapUnmap: true}
	b := &backend.Static{BackendID: "B", Preferences: []backend.FactoryID{"shared"}}
	fx := newFixture(t, static("A", shared), b)

	g := graph.New()
	chain(t, g,
		[]string{"input", "softmax1", "softmax2", "softmax3", "softmax4", "output"},
		[]backend.ID{"A", "B", "A", "B", "A", "B"})
	_, sum := fx.resolve(t, g)

	assert.Equal(t, 0, g.CountKind(graph.MemCopy))
	assert.Equal(t, 0, g.CountKind(graph.MemImport))
	assert.Equal(t, Summary{}, sum)
}

func TestAddCompatibilityLayers_PanicsOnUndefined(t *testing.T) {
	fx := newFixture(t, static("A", copier))

	g := graph.New()
	chain(t, g, []string{"input", "x", "output"}, []backend.ID{"A", "A", "A"})

	assert.PanicsWithValue(t,
		"compat: connection input output 0 -> x input 0 has no resolved strategy",
		func() { _, _ = AddCompatibilityLayers(g, fx.backends, fx.reg, Options{}) })
	assert.Equal(t, 3, g.Len(), "graph untouched")
}

func TestBridgeFactory(t *testing.T) {
	noMap := backend.Factory{ID: "nomap", ImportFlags: backend.DmaBuf}
	fx := newFixture(t, static("B", noMap))
	dst := &graph.Layer{Op: "Softmax"}
	src := &backend.Factory{ID: "src", ExportFlags: backend.DmaBuf}

	assert.Equal(t, backend.FactoryID("nomap"), bridgeFactory(graph.MemImport, src, fx.backends["B"], fx.reg, dst, 0))
	assert.Equal(t, backend.FactoryID(""), bridgeFactory(graph.MemCopy, src, fx.backends["B"], fx.reg, dst, 0))
	assert.Equal(t, backend.FactoryID(""), bridgeFactory(graph.MemCopy, src, nil, fx.reg, dst, 0))
}

func TestBridgeFactory_ImportIgnoresMapUnmap(t *testing.T) {
	mapOnly := backend.Factory{ID: "maponly", MapUnmap: true}
	fx := newFixture(t, static("B", mapOnly))
	dst := &graph.Layer{Op: "Softmax"}
	src := &backend.Factory{ID: "src", ExportFlags: backend.Malloc, MapUnmap: true}

	assert.Equal(t, backend.FactoryID(""), bridgeFactory(graph.MemImport, src, fx.backends["B"], fx.reg, dst, 0))
	assert.Equal(t, backend.FactoryID("maponly"), bridgeFactory(graph.MemCopy, src, fx.backends["B"], fx.reg, dst, 0))
}
