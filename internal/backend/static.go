package backend

import (
	"fmt"

	"github.com/born-ml/hetero/internal/capability"
)

// Static is a Backend described entirely by data. It backs manifest-declared
// backends and test fixtures.
type Static struct {
	BackendID   ID
	Kind        Device
	Preferences []FactoryID
	Owned       []Factory
	Options     capability.Set

	// InputPreferences overrides Preferences per op and input index.
	InputPreferences map[string]map[int][]FactoryID
}

// Compile-time checks.
var (
	_ Backend              = (*Static)(nil)
	_ InputFactoryProvider = (*Static)(nil)
)

// ID returns the backend identifier.
func (s *Static) ID() ID { return s.BackendID }

// Device returns the hardware class.
func (s *Static) Device() Device { return s.Kind }

// HandleFactoryPreferences returns the configured preference order.
func (s *Static) HandleFactoryPreferences() []FactoryID { return s.Preferences }

// Capabilities returns the configured capability set.
func (s *Static) Capabilities() capability.Set { return s.Options }

// InputFactories returns the per-input override for op, if any.
func (s *Static) InputFactories(op string, index int) []FactoryID {
	if byIndex, ok := s.InputPreferences[op]; ok {
		return byIndex[index]
	}
	return nil
}

// RegisterTensorHandleFactories registers every owned factory, stamping the
// owning backend id.
func (s *Static) RegisterTensorHandleFactories(r *Registry) error {
	for _, f := range s.Owned {
		if f.Backend != "" && f.Backend != s.BackendID {
			return fmt.Errorf("backend: factory %s declared for %s but owned by %s", f.ID, f.Backend, s.BackendID)
		}
		f.Backend = s.BackendID
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
