// Package webgpu implements the WebGPU backend for GPU-accelerated execution.
// Adapter probing uses go-webgpu (github.com/go-webgpu/webgpu) zero-CGO bindings.
package webgpu

import (
	"fmt"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/capability"
)

// Backend identifier and factory ids.
const (
	ID backend.ID = "GpuAcc"

	// FactoryID allocates device-local storage buffers.
	FactoryID backend.FactoryID = "Born/WebGPU/TensorHandleFactory"
	// ImportFactoryID wraps host or dma-buf memory exported by another backend.
	ImportFactoryID backend.FactoryID = "Born/WebGPU/ImportTensorHandleFactory"
)

// Backend describes the WebGPU execution target.
type Backend struct {
	factories []backend.Factory
	caps      capability.Set

	// Adapter is set when the backend was created by NewProbed.
	Adapter *AdapterInfo
}

// AdapterInfo summarizes the GPU adapter found by probing.
type AdapterInfo struct {
	Name        string
	Vendor      string
	Description string
}

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// New creates the WebGPU backend without touching the GPU.
// Resolution only needs the factory layout, so graphs can be planned for a
// GPU target on machines without one.
func New() *Backend {
	return &Backend{
		factories: []backend.Factory{
			{
				ID:       FactoryID,
				Backend:  ID,
				MapUnmap: true,
			},
			{
				ID:          ImportFactoryID,
				Backend:     ID,
				ExportFlags: backend.Malloc | backend.DmaBuf,
				ImportFlags: backend.Malloc | backend.DmaBuf,
			},
		},
		caps: capability.Set{
			capability.NewBool(backend.CapNonConstWeights, true),
			capability.NewBool(backend.CapAsyncExecution, false),
		},
	}
}

// NewProbed creates the WebGPU backend and records the adapter it found.
// Returns an error if WebGPU is not available.
func NewProbed() (*Backend, error) {
	info, err := probeAdapter()
	if err != nil {
		return nil, err
	}
	b := New()
	b.Adapter = info
	b.caps = append(b.caps, capability.NewString("Adapter", info.Name))
	if info.Vendor != "" {
		b.caps = append(b.caps, capability.NewString("Vendor", info.Vendor))
	}
	return b, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() bool {
	_, err := probeAdapter()
	return err == nil
}

// ID returns the backend identifier.
func (b *Backend) ID() backend.ID {
	return ID
}

// Name returns a human-readable backend name.
func (b *Backend) Name() string {
	if b.Adapter != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.Adapter.Name, b.Adapter.Vendor)
	}
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() backend.Device {
	return backend.WebGPU
}

// HandleFactoryPreferences prefers device-local buffers, then importable ones.
func (b *Backend) HandleFactoryPreferences() []backend.FactoryID {
	ids := make([]backend.FactoryID, len(b.factories))
	for i, f := range b.factories {
		ids[i] = f.ID
	}
	return ids
}

// RegisterTensorHandleFactories registers both GPU factories.
func (b *Backend) RegisterTensorHandleFactories(r *backend.Registry) error {
	for _, f := range b.factories {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// Capabilities returns the advertised options.
func (b *Backend) Capabilities() capability.Set {
	return b.caps
}
