// Package registry owns the service handles of one process.
//
// The registry is exclusively owned by the process it lives in; no
// cross-process shared pointers exist. Serial- and stream-kind entries are
// accessed only from the processing loop, global-kind entries must be
// internally thread-safe when the node runs worker threads.
package registry

import (
	"sync"

	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/logger"
	"github.com/xraph/conduit/internal/shared"
)

type key struct {
	name string
	kind shared.ServiceKind
}

// Registry maps (name, kind) to service handles, preserving insertion order
// for deterministic callback firing.
type Registry struct {
	mu      sync.RWMutex
	order   []key
	entries map[key]*shared.Handle
	log     logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Registry{
		entries: make(map[key]*shared.Handle),
		log:     log,
	}
}

var _ shared.Registry = (*Registry)(nil)

// Register adds a descriptor and its empty handle. A duplicate (name, kind)
// pair is rejected, fatal to process startup.
func (r *Registry) Register(spec *shared.ServiceSpec) error {
	if spec == nil {
		return errors.New("service spec cannot be nil")
	}
	if spec.Name == "" {
		return errors.New("service name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{name: spec.Name, kind: spec.Kind}
	if _, exists := r.entries[k]; exists {
		return errors.ErrRegistration(spec.Name, spec.Kind.String())
	}

	r.entries[k] = shared.NewHandle(spec)
	r.order = append(r.order, k)

	r.log.Debug("service registered",
		logger.String("service", spec.Name),
		logger.Stringer("kind", spec.Kind),
	)

	return nil
}

// Get looks up a handle. It never allocates an instance implicitly;
// construction happens only through the init callback path.
func (r *Registry) Get(name string, kind shared.ServiceKind) (*shared.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.entries[key{name: name, kind: kind}]
	if !exists {
		return nil, errors.ErrServiceNotFound(name).WithContext("service_kind", kind.String())
	}
	return h, nil
}

// ResolveOrCreate looks up a handle and, if its instance has not been built
// yet, runs the descriptor's Init callback with the process-wide context.
// Init runs at most once per service per process; an already-built handle is
// returned as-is.
//
// The callback runs without the registry lock held so it may call back into
// the registry to reach collaborators; the commit under the write lock plus
// the uninitialized-state guard keep the at-most-once invariant.
func (r *Registry) ResolveOrCreate(name string, kind shared.ServiceKind, ictx shared.InitContext) (*shared.Handle, error) {
	r.mu.RLock()
	h, exists := r.entries[key{name: name, kind: kind}]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.ErrServiceNotFound(name).WithContext("service_kind", kind.String())
	}

	if h.State() != shared.StateUninitialized {
		return h, nil
	}

	spec := h.Spec()
	if spec.Init == nil {
		return nil, errors.ErrCallback(name, "init", errors.New("descriptor has no init callback"))
	}

	instance, err := spec.Init(ictx)
	if err != nil {
		return nil, errors.ErrCallback(name, "init", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have won the race while the callback ran; the
	// committed instance wins.
	if h.State() != shared.StateUninitialized {
		return h, nil
	}
	if err := h.MarkInitialized(instance); err != nil {
		return nil, err
	}

	r.log.Debug("service initialized",
		logger.String("service", name),
		logger.Stringer("kind", kind),
	)

	return h, nil
}

// Configure runs the descriptor's Configure callback on an initialized
// handle. Unset Configure slots are no-ops. As with ResolveOrCreate, the
// callback itself runs without the lock so it may reach into the registry.
func (r *Registry) Configure(name string, kind shared.ServiceKind, ictx shared.InitContext) error {
	h, err := r.Get(name, kind)
	if err != nil {
		return err
	}

	spec := h.Spec()
	if spec.Configure == nil {
		return nil
	}

	instance, err := spec.Configure(ictx, h.Instance())
	if err != nil {
		return errors.ErrCallback(name, "configure", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return h.MarkConfigured(instance)
}

// ForEach traverses handles of the given kind in registration order.
// KindAny visits every handle exactly once. Global-kind entries are visited
// once per process regardless of how many stream contexts exist, which falls
// out of the one-handle-per-key invariant.
func (r *Registry) ForEach(kind shared.ServiceKind, visit func(*shared.Handle) error) error {
	for _, h := range r.snapshot(kind) {
		if err := visit(h); err != nil {
			return err
		}
	}
	return nil
}

// Handles returns every handle in registration order.
func (r *Registry) Handles() []*shared.Handle {
	return r.snapshot(shared.KindAny)
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// snapshot copies matching handles under the read lock so visitors may call
// back into the registry.
func (r *Registry) snapshot(kind shared.ServiceKind) []*shared.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*shared.Handle, 0, len(r.order))
	for _, k := range r.order {
		if kind != shared.KindAny && k.kind != kind {
			continue
		}
		out = append(out, r.entries[k])
	}
	return out
}
