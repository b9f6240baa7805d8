package shared

import (
	"github.com/xraph/conduit/internal/config"
)

// Registry is the per-process service registry seen by callbacks. It is
// passed explicitly through every context object; there is no process-wide
// singleton. Its lifetime is scoped to the owning process.
type Registry interface {
	// Register adds a descriptor. Duplicate (name, kind) pairs fail with a
	// registration error.
	Register(spec *ServiceSpec) error

	// Get looks up a handle. It never allocates an instance implicitly;
	// a miss returns a not-found error.
	Get(name string, kind ServiceKind) (*Handle, error)

	// ResolveOrCreate looks up a handle and, on miss, runs the descriptor's
	// Init callback to produce the instance.
	ResolveOrCreate(name string, kind ServiceKind, ictx InitContext) (*Handle, error)

	// ForEach traverses handles of the given kind in registration order.
	// KindAny visits every handle exactly once.
	ForEach(kind ServiceKind, visit func(*Handle) error) error

	// Len returns the number of registered handles.
	Len() int
}

// DeviceState is the mutable per-process engine state shared with callbacks.
type DeviceState struct {
	// NodeID identifies the topology node this process realizes.
	NodeID string
	// Streams is the number of logical data streams of the node.
	Streams int
	// InputsAvailable is false during a dangling-input cycle.
	InputsAvailable bool
}

// InitContext is handed to Init and Configure callbacks.
type InitContext struct {
	Registry Registry
	State    *DeviceState
	Options  config.Options
}

// ProcessingContext is handed to processing-phase callbacks for one cycle of
// the engine's main loop.
type ProcessingContext struct {
	Registry Registry
	State    *DeviceState
	// Cycle counts iterations of the main loop, starting at 1.
	Cycle uint64
}

// DanglingContext is handed to dangling-input callbacks.
type DanglingContext struct {
	Registry Registry
	State    *DeviceState
}

// EndOfStreamContext is handed to end-of-stream callbacks.
type EndOfStreamContext struct {
	Registry Registry
	State    *DeviceState
}

// ConfigContext carries the parsed options and the workflow under
// construction into topology callbacks.
type ConfigContext struct {
	Options  config.Options
	Workflow *Workflow
}
