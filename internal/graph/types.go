package graph

import (
	"fmt"

	"github.com/born-ml/hetero/internal/backend"
)

// LayerID is a stable handle to a layer in a Graph. Handles stay valid across
// insertions; layers are never removed.
type LayerID int

// Kind classifies a layer.
type Kind int

// Supported layer kinds.
const (
	Input Kind = iota
	Output
	Compute
	MemCopy
	MemImport
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Compute:
		return "Compute"
	case MemCopy:
		return "MemCopy"
	case MemImport:
		return "MemImport"
	default:
		return "Unknown"
	}
}

// ParseKind converts a kind name into a Kind.
func ParseKind(name string) (Kind, error) {
	for k := Input; k <= MemImport; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return Compute, fmt.Errorf("graph: unknown layer kind %q", name)
}

// IsBridge reports whether the kind is a data-movement layer inserted between
// backends.
func (k Kind) IsBridge() bool {
	return k == MemCopy || k == MemImport
}

// EdgeStrategy is the transfer method resolved for one connection.
type EdgeStrategy int

// Edge strategies.
const (
	Undefined EdgeStrategy = iota
	DirectCompatibility
	ExportToTarget
	CopyToTarget
)

// String returns a human-readable name for the strategy.
func (s EdgeStrategy) String() string {
	switch s {
	case Undefined:
		return "Undefined"
	case DirectCompatibility:
		return "DirectCompatibility"
	case ExportToTarget:
		return "ExportToTarget"
	case CopyToTarget:
		return "CopyToTarget"
	default:
		return "Unknown"
	}
}

// OutputRef addresses an output port.
type OutputRef struct {
	Layer LayerID
	Index int
}

// InputRef addresses an input port.
type InputRef struct {
	Layer LayerID
	Index int
}

// Connection is one fan-out edge of an output port.
type Connection struct {
	Target   InputRef
	Strategy EdgeStrategy
}

// OutputPort holds the factory chosen for the data it produces and its
// connections in creation order.
type OutputPort struct {
	Factory     backend.FactoryID
	Connections []Connection
}

// InputPort is connected to at most one output port.
type InputPort struct {
	Source    OutputRef
	Connected bool
}

// Layer is a node of the graph. It owns its ports.
type Layer struct {
	ID      LayerID
	Name    string
	Kind    Kind
	Op      string
	Backend backend.ID

	Inputs  []InputPort
	Outputs []OutputPort
}

// String returns the layer name, falling back to kind and id.
func (l *Layer) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%s#%d", l.Kind, l.ID)
}

// Edge is a flattened view of one connection.
type Edge struct {
	From            OutputRef
	ConnectionIndex int
	To              InputRef
	Strategy        EdgeStrategy
}
