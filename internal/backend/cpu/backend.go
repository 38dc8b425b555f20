// Package cpu implements the portable reference CPU backend and the
// vector-extension CPU backend.
package cpu

import (
	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/capability"
)

// Backend identifiers and factory ids.
const (
	RefID backend.ID = "CpuRef"
	AccID backend.ID = "CpuAcc"

	RefFactoryID backend.FactoryID = "Born/CpuRef/TensorHandleFactory"
	AccFactoryID backend.FactoryID = "Born/CpuAcc/TensorHandleFactory"
)

// CPUBackend places tensors in host memory.
type CPUBackend struct {
	id      backend.ID
	device  backend.Device
	factory backend.Factory
	caps    capability.Set
}

// Compile-time check that CPUBackend implements backend.Backend.
var _ backend.Backend = (*CPUBackend)(nil)

// New creates the portable reference CPU backend.
// Its buffers are plain malloc'd memory that any host-mappable factory can read.
func New() *CPUBackend {
	return &CPUBackend{
		id:     RefID,
		device: backend.CPU,
		factory: backend.Factory{
			ID:          RefFactoryID,
			Backend:     RefID,
			ExportFlags: backend.Malloc,
			ImportFlags: backend.Malloc,
			MapUnmap:    true,
		},
		caps: capability.Set{
			capability.Flag(backend.CapNonConstWeights),
			capability.Flag(backend.CapAsyncExecution),
		},
	}
}

// NewAccelerated creates the vector-extension CPU backend.
// The SIMD features of the running machine are advertised as capabilities.
func NewAccelerated() *CPUBackend {
	caps := capability.Set{
		capability.NewBool(backend.CapNonConstWeights, true),
		capability.NewBool(backend.CapAsyncExecution, false),
	}
	caps = append(caps, DetectFeatures().Capabilities()...)

	return &CPUBackend{
		id:     AccID,
		device: backend.CPU,
		factory: backend.Factory{
			ID:          AccFactoryID,
			Backend:     AccID,
			ExportFlags: backend.Malloc,
			ImportFlags: backend.Malloc,
			MapUnmap:    true,
			// Rows are packed, so buffers can be handed over as-is.
			Capabilities: capability.Set{capability.NewBool(backend.CapPaddingRequired, false)},
		},
		caps: caps,
	}
}

// ID returns the backend identifier.
func (cpu *CPUBackend) ID() backend.ID {
	return cpu.id
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return string(cpu.id)
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() backend.Device {
	return cpu.device
}

// HandleFactoryPreferences returns the single host-memory factory.
func (cpu *CPUBackend) HandleFactoryPreferences() []backend.FactoryID {
	return []backend.FactoryID{cpu.factory.ID}
}

// RegisterTensorHandleFactories registers the host-memory factory.
func (cpu *CPUBackend) RegisterTensorHandleFactories(r *backend.Registry) error {
	return r.Register(cpu.factory)
}

// Capabilities returns the advertised options.
func (cpu *CPUBackend) Capabilities() capability.Set {
	return cpu.caps
}
