package optimize

import (
	"errors"
	"testing"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, a, b backend.Factory) (*graph.Graph, backend.Map, *backend.Registry) {
	t.Helper()
	backends, err := backend.NewMap(
		&backend.Static{BackendID: "A", Preferences: []backend.FactoryID{a.ID}, Owned: []backend.Factory{a}},
		&backend.Static{BackendID: "B", Preferences: []backend.FactoryID{b.ID}, Owned: []backend.Factory{b}},
	)
	require.NoError(t, err)
	reg := backend.NewRegistry()
	require.NoError(t, backends.RegisterAll(reg))

	g := graph.New()
	input := g.AddInput("input")
	input.Backend = "A"
	x := g.AddCompute("Softmax", "x", 1, 1)
	x.Backend = "A"
	y := g.AddCompute("Softmax", "y", 1, 1)
	y.Backend = "B"
	output := g.AddOutput("output")
	output.Backend = "B"
	for _, pair := range [][2]*graph.Layer{{input, x}, {x, y}, {y, output}} {
		require.NoError(t, g.Connect(graph.OutputRef{Layer: pair[0].ID}, graph.InputRef{Layer: pair[1].ID}))
	}
	return g, backends, reg
}

func TestValidate_DoesNotTouchGraph(t *testing.T) {
	g, backends, reg := setup(t,
		backend.Factory{ID: "fa", MapUnmap: true},
		backend.Factory{ID: "fb", MapUnmap: true})

	res, err := Validate(g, backends, reg, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.HasWarning)
	assert.Equal(t, 1, res.Counts.Copy)

	g.ForEachLayer(func(l *graph.Layer) {
		for _, port := range l.Outputs {
			assert.Empty(t, port.Factory)
			for _, c := range port.Connections {
				assert.Equal(t, graph.Undefined, c.Strategy)
			}
		}
	})
	assert.Equal(t, 4, g.Len())
}

func TestResolve_AnnotatesInPlace(t *testing.T) {
	g, backends, reg := setup(t,
		backend.Factory{ID: "fa", MapUnmap: true},
		backend.Factory{ID: "fb", MapUnmap: true})

	res, err := Resolve(g, backends, reg, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Copy)
	assert.Equal(t, 4, g.Len(), "no layers are inserted")

	x, ok := g.LayerByName("x")
	require.True(t, ok)
	assert.Equal(t, backend.FactoryID("fa"), x.Outputs[0].Factory)
	assert.Equal(t, graph.CopyToTarget, x.Outputs[0].Connections[0].Strategy)
}

func TestOptimize_InsertsLayers(t *testing.T) {
	g, backends, reg := setup(t,
		backend.Factory{ID: "fa", ExportFlags: backend.Malloc},
		backend.Factory{ID: "fb", ImportFlags: backend.Malloc})

	out, err := Optimize(g, backends, reg, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Imports)
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 1, g.CountKind(graph.MemImport))
}

func TestOptimize_AbortsOnErrors(t *testing.T) {
	g, backends, reg := setup(t,
		backend.Factory{ID: "fa"},
		backend.Factory{ID: "fb"})

	out, err := Optimize(g, backends, reg, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResolution))
	assert.Contains(t, err.Error(), `layer "x" output 0 -> layer "y" input 0`)
	require.NotNil(t, out)
	assert.True(t, out.Result.HasError)
	assert.Equal(t, 4, g.Len(), "no layers inserted")
}

func TestOptimize_ExportDisabledCopies(t *testing.T) {
	g, backends, reg := setup(t,
		backend.Factory{ID: "fa", ExportFlags: backend.Malloc, MapUnmap: true},
		backend.Factory{ID: "fb", ImportFlags: backend.Malloc, MapUnmap: true})

	out, err := Optimize(g, backends, reg, Options{ExportEnabled: false})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Copies)
	assert.Equal(t, 0, out.Summary.Imports)
}

func TestValidate_Cycle(t *testing.T) {
	g := graph.New()
	a := g.AddCompute("Softmax", "a", 1, 1)
	b := g.AddCompute("Softmax", "b", 1, 1)
	require.NoError(t, g.Connect(graph.OutputRef{Layer: a.ID}, graph.InputRef{Layer: b.ID}))
	require.NoError(t, g.Connect(graph.OutputRef{Layer: b.ID}, graph.InputRef{Layer: a.ID}))

	_, err := Validate(g, backend.Map{}, backend.NewRegistry(), DefaultOptions())
	assert.True(t, errors.Is(err, graph.ErrCycle))
}
