package shared

import (
	"fmt"

	"github.com/xraph/conduit/internal/errors"
)

// Handle is the runtime binding of a ServiceSpec to one instantiated,
// type-erased service object. The spec is non-owning and outlives every
// handle built from it; the handle owns the instance.
//
// Handles are mutated only under the owning registry's lock or from the
// single processing loop thread; they carry no locking of their own.
type Handle struct {
	spec     *ServiceSpec
	instance any
	state    ServiceState
}

// NewHandle binds a spec with no instance yet.
func NewHandle(spec *ServiceSpec) *Handle {
	return &Handle{spec: spec, state: StateUninitialized}
}

// Spec returns the originating descriptor.
func (h *Handle) Spec() *ServiceSpec { return h.spec }

// Name returns the descriptor name.
func (h *Handle) Name() string { return h.spec.Name }

// Kind returns the descriptor kind.
func (h *Handle) Kind() ServiceKind { return h.spec.Kind }

// State returns the current lifecycle state.
func (h *Handle) State() ServiceState { return h.state }

// Instance returns the type-erased service object, nil before init.
func (h *Handle) Instance() any { return h.instance }

// MarkInitialized stores the instance produced by init. Repeated init on the
// same handle is a programming error, not a silent overwrite.
func (h *Handle) MarkInitialized(instance any) error {
	if h.state != StateUninitialized {
		return errors.ErrLifecycleState(h.spec.Name, h.state.String(), "init")
	}
	h.instance = instance
	h.state = StateInitialized
	return nil
}

// MarkConfigured records a configure pass, optionally replacing the instance.
// Configure may run any number of times while initialized, configured or
// running; a running handle stays running.
func (h *Handle) MarkConfigured(instance any) error {
	switch h.state {
	case StateInitialized, StateConfigured:
		h.instance = instance
		h.state = StateConfigured
		return nil
	case StateRunning:
		h.instance = instance
		return nil
	default:
		return errors.ErrLifecycleState(h.spec.Name, h.state.String(), "configure")
	}
}

// MarkRunning transitions to running.
func (h *Handle) MarkRunning() error {
	switch h.state {
	case StateInitialized, StateConfigured:
		h.state = StateRunning
		return nil
	default:
		return errors.ErrLifecycleState(h.spec.Name, h.state.String(), "start")
	}
}

// MarkStopped transitions running to stopped.
func (h *Handle) MarkStopped() error {
	if h.state != StateRunning {
		return errors.ErrLifecycleState(h.spec.Name, h.state.String(), "stop")
	}
	h.state = StateStopped
	return nil
}

// MarkExited transitions stopped to exited. Exited is terminal.
func (h *Handle) MarkExited() error {
	if h.state != StateStopped {
		return errors.ErrLifecycleState(h.spec.Name, h.state.String(), "exit")
	}
	h.state = StateExited
	return nil
}

// Active reports whether phase callbacks may fire on this handle.
func (h *Handle) Active() bool {
	return h.state == StateRunning
}

// As asserts the type-erased instance to T. The registry never assumes a
// concrete type; callers assert the expected one at the point of use and a
// mismatch fails loudly instead of corrupting anything.
func As[T any](h *Handle) (T, error) {
	var zero T
	v, ok := h.Instance().(T)
	if !ok {
		return zero, errors.ErrTypeMismatch(h.Name(), fmt.Sprintf("%T", zero), fmt.Sprintf("%T", h.Instance()))
	}
	return v, nil
}
