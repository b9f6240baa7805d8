package conduit

import (
	"github.com/xraph/conduit/internal/registry"
	"github.com/xraph/conduit/internal/shared"
)

// Registry owns the service handles of one process, keyed by (name, kind)
// with insertion order preserved.
type Registry = registry.Registry

// RegistryView is the registry interface seen by service callbacks.
type RegistryView = shared.Registry

// NewRegistry creates an empty registry.
func NewRegistry(log Logger) *Registry {
	return registry.New(log)
}
