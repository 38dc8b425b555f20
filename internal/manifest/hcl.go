package manifest

import (
	"fmt"
	"math/big"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclRoot is the top-level schema of an HCL manifest.
type hclRoot struct {
	Name        string        `hcl:"name,optional"`
	Backends    []*hclBackend `hcl:"backend,block"`
	Factories   []*hclFactory `hcl:"factory,block"`
	Layers      []*hclLayer   `hcl:"layer,block"`
	Connections []string      `hcl:"connections,optional"`
}

type hclBackend struct {
	ID           string      `hcl:"id,label"`
	Device       string      `hcl:"device,optional"`
	Preferences  []string    `hcl:"preferences,optional"`
	Capabilities *cty.Value  `hcl:"capabilities,optional"`
	Inputs       []*hclInput `hcl:"input,block"`
}

type hclInput struct {
	Op        string   `hcl:"op,label"`
	Index     int      `hcl:"index,optional"`
	Factories []string `hcl:"factories"`
}

type hclFactory struct {
	ID           string     `hcl:"id,label"`
	Backend      string     `hcl:"backend"`
	Export       []string   `hcl:"export,optional"`
	Import       []string   `hcl:"import,optional"`
	MapUnmap     bool       `hcl:"map_unmap,optional"`
	Capabilities *cty.Value `hcl:"capabilities,optional"`
}

type hclLayer struct {
	Name    string `hcl:"name,label"`
	Kind    string `hcl:"kind,optional"`
	Op      string `hcl:"op,optional"`
	Backend string `hcl:"backend"`
	Inputs  int    `hcl:"inputs,optional"`
	Outputs int    `hcl:"outputs,optional"`
}

// ParseHCL decodes an HCL manifest. filename is only used in diagnostics.
func ParseHCL(data []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: failed to parse HCL file %s: %w", filename, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("manifest: failed to decode HCL file %s: %w", filename, diags)
	}
	return root.translate()
}

func (r *hclRoot) translate() (*Manifest, error) {
	m := &Manifest{Name: r.Name, Connections: r.Connections}

	for _, b := range r.Backends {
		out := Backend{ID: b.ID, Preferences: b.Preferences}
		if b.Device != "" {
			d, err := backend.ParseDevice(b.Device)
			if err != nil {
				return nil, fmt.Errorf("manifest: backend %s: %w", b.ID, err)
			}
			out.Device = d
		}
		caps, err := ctyCapabilities(b.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("manifest: backend %s: %w", b.ID, err)
		}
		out.Capabilities = caps
		for _, in := range b.Inputs {
			out.Inputs = append(out.Inputs, InputPreference{Op: in.Op, Index: in.Index, Factories: in.Factories})
		}
		m.Backends = append(m.Backends, out)
	}

	for _, f := range r.Factories {
		exp, err := backend.ParseMemorySources(f.Export...)
		if err != nil {
			return nil, fmt.Errorf("manifest: factory %s: %w", f.ID, err)
		}
		imp, err := backend.ParseMemorySources(f.Import...)
		if err != nil {
			return nil, fmt.Errorf("manifest: factory %s: %w", f.ID, err)
		}
		caps, err := ctyCapabilities(f.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("manifest: factory %s: %w", f.ID, err)
		}
		m.Factories = append(m.Factories, Factory{
			ID:           f.ID,
			Backend:      f.Backend,
			Export:       exp,
			Import:       imp,
			MapUnmap:     f.MapUnmap,
			Capabilities: caps,
		})
	}

	for _, l := range r.Layers {
		m.Layers = append(m.Layers, Layer{
			Name:    l.Name,
			Kind:    l.Kind,
			Op:      l.Op,
			Backend: l.Backend,
			Inputs:  l.Inputs,
			Outputs: l.Outputs,
		})
	}
	return m, nil
}

// ctyCapabilities converts an object of capabilities into plain Go values.
// Whole numbers become int64, other numbers float64 and null a presence flag.
func ctyCapabilities(v *cty.Value) (map[string]any, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("capabilities must be an object, got %s", ty.FriendlyName())
	}

	out := make(map[string]any)
	it := v.ElementIterator()
	for it.Next() {
		key, val := it.Element()
		native, err := ctyScalar(val)
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", key.AsString(), err)
		}
		out[key.AsString()] = native
	}
	return out, nil
}

func ctyScalar(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	switch v.Type() {
	case cty.Bool:
		return v.True(), nil
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", v.Type().FriendlyName())
	}
}
