package backend

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/born-ml/hetero/internal/capability"
)

// MemorySource is a bit set of memory kinds a factory can export or import.
type MemorySource uint32

// Supported memory sources.
const (
	Undefined       MemorySource = 0
	Malloc          MemorySource = 1 << 0
	DmaBuf          MemorySource = 1 << 1
	DmaBufProtected MemorySource = 1 << 2
	Gralloc         MemorySource = 1 << 3
)

var memorySourceNames = []struct {
	flag MemorySource
	name string
}{
	{Malloc, "malloc"},
	{DmaBuf, "dmabuf"},
	{DmaBufProtected, "dmabuf-protected"},
	{Gralloc, "gralloc"},
}

// String formats the set as a "|" separated list.
func (m MemorySource) String() string {
	if m == Undefined {
		return "none"
	}
	var parts []string
	for _, n := range memorySourceNames {
		if m&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseMemorySources converts names such as "malloc" or "dmabuf" into flags.
func ParseMemorySources(names ...string) (MemorySource, error) {
	var m MemorySource
	for _, name := range names {
		found := false
		for _, n := range memorySourceNames {
			if strings.EqualFold(strings.TrimSpace(name), n.name) {
				m |= n.flag
				found = true
				break
			}
		}
		if !found {
			return Undefined, fmt.Errorf("backend: unknown memory source %q", name)
		}
	}
	return m, nil
}

// Factory describes a tensor handle factory: the memory representation one
// backend allocates buffers in, and whether those buffers can cross to another
// backend without a copy.
type Factory struct {
	ID      FactoryID
	Backend ID

	// ExportFlags lists the memory sources buffers can be exported through.
	ExportFlags MemorySource
	// ImportFlags lists the memory sources foreign buffers can be imported from.
	ImportFlags MemorySource
	// MapUnmap is true when host code can map the buffers, which makes
	// an explicit copy to or from another representation possible.
	MapUnmap bool

	Capabilities capability.Set
}

// CanExport reports whether buffers can be handed to another backend.
func (f *Factory) CanExport() bool { return f.ExportFlags != Undefined }

// CanImport reports whether buffers exported elsewhere can be adopted.
func (f *Factory) CanImport() bool { return f.ImportFlags != Undefined }

// SupportsMapUnmap reports whether buffers are host mappable.
func (f *Factory) SupportsMapUnmap() bool { return f.MapUnmap }

// PaddingRequired reports whether the factory pads its buffers, which rules
// out handing them to another representation without a copy.
func (f *Factory) PaddingRequired() bool {
	return capability.HasOption(capability.NewBool(CapPaddingRequired, true), f.Capabilities)
}

// ExportsTo reports whether buffers of f can be adopted by dst without a copy,
// in either direction of the handoff.
func (f *Factory) ExportsTo(dst *Factory) bool {
	if f.PaddingRequired() || dst.PaddingRequired() {
		return false
	}
	return f.ExportFlags&dst.ImportFlags != 0 || dst.ExportFlags&f.ImportFlags != 0
}

// ErrDuplicateFactory is returned when a factory id is registered twice.
var ErrDuplicateFactory = errors.New("backend: duplicate tensor handle factory")

// Registry holds tensor handle factories in registration order.
// Registration order is the tie breaker for factory selection.
type Registry struct {
	mu        sync.RWMutex
	factories []*Factory
	index     map[FactoryID]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[FactoryID]int)}
}

// Register adds a factory. Ids must be unique across all backends.
func (r *Registry) Register(f Factory) error {
	if f.ID == "" {
		return errors.New("backend: factory id must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[f.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, f.ID)
	}
	r.index[f.ID] = len(r.factories)
	r.factories = append(r.factories, &f)
	return nil
}

// Factory returns the factory registered under id, or nil.
func (r *Registry) Factory(id FactoryID) *Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.factories[i]
}

// Order returns the registration position of id, or -1 if unknown.
func (r *Registry) Order(id FactoryID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return -1
	}
	return i
}

// Factories returns all factories in registration order.
func (r *Registry) Factories() []*Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Factory, len(r.factories))
	copy(out, r.factories)
	return out
}

// ForBackend returns the factories owned by backend id in registration order.
func (r *Registry) ForBackend(id ID) []*Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Factory
	for _, f := range r.factories {
		if f.Backend == id {
			out = append(out, f)
		}
	}
	return out
}

// Resolve maps ids to registered factories, dropping unknown ids and duplicates.
func (r *Registry) Resolve(ids []FactoryID) []*Factory {
	seen := make(map[FactoryID]bool, len(ids))
	out := make([]*Factory, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if f := r.Factory(id); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
