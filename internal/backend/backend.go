// Package backend defines execution backends, tensor handle factories and the
// registry that collects them.
package backend

import (
	"fmt"
	"sort"

	"github.com/born-ml/hetero/internal/capability"
)

// ID identifies an execution backend (e.g. "CpuRef", "GpuAcc").
type ID string

// FactoryID identifies a tensor handle factory (e.g. "Born/Cpu/TensorHandleFactory").
type FactoryID string

// Device represents the hardware class a backend runs on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ParseDevice converts a device name into a Device.
func ParseDevice(name string) (Device, error) {
	for d := CPU; d <= WebGPU; d++ {
		if d.String() == name {
			return d, nil
		}
	}
	return CPU, fmt.Errorf("backend: unknown device %q", name)
}

// Well-known capability names advertised by backends and factories.
const (
	CapNonConstWeights = "NonConstWeights"
	CapAsyncExecution  = "AsyncExecution"
	CapPaddingRequired = "PaddingRequired"
)

// Backend is an execution target that owns one or more tensor handle factories.
//
// Implementations:
//   - backend/cpu: portable reference and SIMD CPU backends
//   - backend/webgpu: GPU compute via WebGPU
type Backend interface {
	// ID returns the unique backend identifier.
	ID() ID

	// Device returns the hardware class.
	Device() Device

	// HandleFactoryPreferences lists the factories this backend produces and
	// accepts, most preferred first.
	HandleFactoryPreferences() []FactoryID

	// RegisterTensorHandleFactories adds the backend's factories to r.
	RegisterTensorHandleFactories(r *Registry) error

	// Capabilities returns the options advertised by the backend.
	Capabilities() capability.Set
}

// InputFactoryProvider is implemented by backends whose compute layers accept
// different factories on specific inputs.
type InputFactoryProvider interface {
	// InputFactories returns the factories accepted on input index of a layer
	// running op. A nil result means the backend preferences apply.
	InputFactories(op string, index int) []FactoryID
}

// Map associates backend identifiers with backend instances.
type Map map[ID]Backend

// NewMap builds a Map from backends, rejecting duplicate identifiers.
func NewMap(backends ...Backend) (Map, error) {
	m := make(Map, len(backends))
	for _, b := range backends {
		if _, ok := m[b.ID()]; ok {
			return nil, fmt.Errorf("backend: duplicate backend %q", b.ID())
		}
		m[b.ID()] = b
	}
	return m, nil
}

// IDs returns the backend identifiers in sorted order.
func (m Map) IDs() []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RegisterAll registers the factories of every backend in identifier order.
func (m Map) RegisterAll(r *Registry) error {
	for _, id := range m.IDs() {
		if err := m[id].RegisterTensorHandleFactories(r); err != nil {
			return fmt.Errorf("backend %s: %w", id, err)
		}
	}
	return nil
}

// AcceptedFactories returns the factories b accepts on input index of a layer
// running op.
func AcceptedFactories(b Backend, op string, index int) []FactoryID {
	if p, ok := b.(InputFactoryProvider); ok {
		if ids := p.InputFactories(op, index); ids != nil {
			return ids
		}
	}
	return b.HandleFactoryPreferences()
}
