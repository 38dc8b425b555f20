// Package manifest loads network descriptions from YAML or HCL files and builds
// the graph, backends and factory registry the resolution passes run on.
//
// A manifest declares backends, the tensor handle factories they own, layers
// assigned to backends and the connections between layer ports. The builtin
// backends CpuRef, CpuAcc and GpuAcc can be used without being declared.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/backend/cpu"
	"github.com/born-ml/hetero/internal/backend/webgpu"
	"github.com/born-ml/hetero/internal/capability"
	"github.com/born-ml/hetero/internal/graph"
)

// Manifest is the decoded form of a manifest file.
type Manifest struct {
	Name        string    `mapstructure:"name" json:"name,omitempty"`
	Backends    []Backend `mapstructure:"backends" json:"backends,omitempty"`
	Factories   []Factory `mapstructure:"factories" json:"factories,omitempty"`
	Layers      []Layer   `mapstructure:"layers" json:"layers"`
	Connections []string  `mapstructure:"connections" json:"connections"`
}

// Backend declares a backend described by data.
type Backend struct {
	ID           string            `mapstructure:"id" json:"id"`
	Device       backend.Device    `mapstructure:"device" json:"device"`
	Preferences  []string          `mapstructure:"preferences" json:"preferences,omitempty"`
	Inputs       []InputPreference `mapstructure:"inputs" json:"inputs,omitempty"`
	Capabilities map[string]any    `mapstructure:"capabilities" json:"capabilities,omitempty"`
}

// InputPreference restricts the factories a backend accepts on one input of
// layers running Op.
type InputPreference struct {
	Op        string   `mapstructure:"op" json:"op"`
	Index     int      `mapstructure:"index" json:"index"`
	Factories []string `mapstructure:"factories" json:"factories"`
}

// Factory declares a tensor handle factory owned by a declared backend.
type Factory struct {
	ID           string               `mapstructure:"id" json:"id"`
	Backend      string               `mapstructure:"backend" json:"backend"`
	Export       backend.MemorySource `mapstructure:"export" json:"export"`
	Import       backend.MemorySource `mapstructure:"import" json:"import"`
	MapUnmap     bool                 `mapstructure:"map_unmap" json:"map_unmap"`
	Capabilities map[string]any       `mapstructure:"capabilities" json:"capabilities,omitempty"`
}

// Layer declares a graph layer. Kind defaults to Compute; Inputs and Outputs
// default to one port each for compute layers.
type Layer struct {
	Name    string `mapstructure:"name" json:"name"`
	Kind    string `mapstructure:"kind" json:"kind,omitempty"`
	Op      string `mapstructure:"op" json:"op,omitempty"`
	Backend string `mapstructure:"backend" json:"backend"`
	Inputs  int    `mapstructure:"inputs" json:"inputs,omitempty"`
	Outputs int    `mapstructure:"outputs" json:"outputs,omitempty"`
}

// Network is a manifest turned into the inputs of the resolution passes.
type Network struct {
	Name     string
	Graph    *graph.Graph
	Backends backend.Map
	Registry *backend.Registry
}

// Builtin returns the builtin backend registered under id.
func Builtin(id backend.ID) (backend.Backend, bool) {
	switch id {
	case cpu.RefID:
		return cpu.New(), true
	case cpu.AccID:
		return cpu.NewAccelerated(), true
	case webgpu.ID:
		return webgpu.New(), true
	default:
		return nil, false
	}
}

// BuiltinIDs lists the builtin backend identifiers.
func BuiltinIDs() []backend.ID {
	return []backend.ID{cpu.RefID, cpu.AccID, webgpu.ID}
}

// Load reads a manifest, choosing the format from the file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".hcl":
		return ParseHCL(data, path)
	default:
		return nil, fmt.Errorf("manifest: unsupported file extension %q", filepath.Ext(path))
	}
}

// Build validates the manifest and creates the network it describes. All
// problems found are returned together.
func (m *Manifest) Build() (*Network, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("manifest: "+format, args...))
	}

	declared := make(map[backend.ID]*backend.Static, len(m.Backends))
	var order []backend.ID
	for _, b := range m.Backends {
		id := backend.ID(b.ID)
		if id == "" {
			fail("backend without id")
			continue
		}
		if _, dup := declared[id]; dup {
			fail("backend %s declared twice", id)
			continue
		}
		caps, err := capabilitySet(b.Capabilities)
		if err != nil {
			fail("backend %s: %v", id, err)
		}
		s := &backend.Static{
			BackendID:   id,
			Kind:        b.Device,
			Preferences: factoryIDs(b.Preferences),
			Options:     caps,
		}
		for _, in := range b.Inputs {
			if s.InputPreferences == nil {
				s.InputPreferences = make(map[string]map[int][]backend.FactoryID)
			}
			if s.InputPreferences[in.Op] == nil {
				s.InputPreferences[in.Op] = make(map[int][]backend.FactoryID)
			}
			s.InputPreferences[in.Op][in.Index] = factoryIDs(in.Factories)
		}
		declared[id] = s
		order = append(order, id)
	}

	for _, f := range m.Factories {
		owner, ok := declared[backend.ID(f.Backend)]
		if !ok {
			fail("factory %s: backend %q is not declared", f.ID, f.Backend)
			continue
		}
		caps, err := capabilitySet(f.Capabilities)
		if err != nil {
			fail("factory %s: %v", f.ID, err)
		}
		owner.Owned = append(owner.Owned, backend.Factory{
			ID:           backend.FactoryID(f.ID),
			Backend:      owner.BackendID,
			ExportFlags:  f.Export,
			ImportFlags:  f.Import,
			MapUnmap:     f.MapUnmap,
			Capabilities: caps,
		})
	}

	backends := make(backend.Map, len(declared))
	for _, id := range order {
		s := declared[id]
		if len(s.Preferences) == 0 {
			for _, f := range s.Owned {
				s.Preferences = append(s.Preferences, f.ID)
			}
		}
		backends[id] = s
	}

	g := graph.New()
	for _, l := range m.Layers {
		layer, err := m.addLayer(g, l)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id := backend.ID(l.Backend)
		if _, ok := backends[id]; !ok {
			if b, builtin := Builtin(id); builtin {
				backends[id] = b
			} else {
				fail("layer %q: backend %q is neither declared nor builtin", l.Name, l.Backend)
			}
		}
		layer.Backend = id
	}

	for _, c := range m.Connections {
		from, to, err := parseConnection(g, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := g.Connect(from, to); err != nil {
			fail("connection %q: %v", c, err)
		}
	}

	reg := backend.NewRegistry()
	if err := backends.RegisterAll(reg); err != nil {
		fail("%v", err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Network{Name: m.Name, Graph: g, Backends: backends, Registry: reg}, nil
}

func (m *Manifest) addLayer(g *graph.Graph, l Layer) (*graph.Layer, error) {
	if l.Name == "" {
		return nil, errors.New("manifest: layer without name")
	}
	if _, dup := g.LayerByName(l.Name); dup {
		return nil, fmt.Errorf("manifest: layer %q declared twice", l.Name)
	}
	kind := graph.Compute
	if l.Kind != "" {
		k, err := graph.ParseKind(l.Kind)
		if err != nil {
			return nil, fmt.Errorf("manifest: layer %q: %w", l.Name, err)
		}
		kind = k
	}

	switch kind {
	case graph.Input:
		return g.AddInput(l.Name), nil
	case graph.Output:
		return g.AddOutput(l.Name), nil
	}
	op := l.Op
	if op == "" {
		op = kind.String()
	}
	inputs, outputs := l.Inputs, l.Outputs
	if inputs == 0 {
		inputs = 1
	}
	if outputs == 0 {
		outputs = 1
	}
	return g.AddLayer(kind, op, l.Name, inputs, outputs), nil
}

// parseConnection parses "producer[:output] -> consumer[:input]".
func parseConnection(g *graph.Graph, s string) (graph.OutputRef, graph.InputRef, error) {
	left, right, ok := strings.Cut(s, "->")
	if !ok {
		return graph.OutputRef{}, graph.InputRef{}, fmt.Errorf("manifest: connection %q: missing \"->\"", s)
	}
	from, fromIdx, err := parseEndpoint(g, left)
	if err != nil {
		return graph.OutputRef{}, graph.InputRef{}, fmt.Errorf("manifest: connection %q: %w", s, err)
	}
	to, toIdx, err := parseEndpoint(g, right)
	if err != nil {
		return graph.OutputRef{}, graph.InputRef{}, fmt.Errorf("manifest: connection %q: %w", s, err)
	}
	return graph.OutputRef{Layer: from.ID, Index: fromIdx}, graph.InputRef{Layer: to.ID, Index: toIdx}, nil
}

func parseEndpoint(g *graph.Graph, s string) (*graph.Layer, int, error) {
	name, port, hasPort := strings.Cut(strings.TrimSpace(s), ":")
	l, ok := g.LayerByName(strings.TrimSpace(name))
	if !ok {
		return nil, 0, fmt.Errorf("unknown layer %q", name)
	}
	if !hasPort {
		return l, 0, nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return nil, 0, fmt.Errorf("invalid port %q", port)
	}
	return l, idx, nil
}

// capabilitySet converts decoded capabilities into a Set ordered by name.
func capabilitySet(raw map[string]any) (capability.Set, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(capability.Set, 0, len(names))
	for _, name := range names {
		v, err := capability.FromInterface(raw[name])
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", name, err)
		}
		set = append(set, capability.Option{Name: name, Value: v})
	}
	return set, nil
}

func factoryIDs(ids []string) []backend.FactoryID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]backend.FactoryID, len(ids))
	for i, id := range ids {
		out[i] = backend.FactoryID(id)
	}
	return out
}
