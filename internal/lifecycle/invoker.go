// Package lifecycle sequences service callbacks at the engine's phase
// boundaries.
//
// Within one phase, callbacks fire in registry insertion order. Across
// phases the sequence is a strict barrier: every post-processing callback
// completes before any pre-dangling callback fires. The invoker itself never
// blocks on I/O; blocking happens only inside the external processing step
// between the pre and post phases, which it treats as an opaque call. All
// callbacks execute on the calling thread of the phase that invokes them.
package lifecycle

import (
	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/logger"
	"github.com/xraph/conduit/internal/registry"
	"github.com/xraph/conduit/internal/shared"
)

// Phase names a synchronization point of the engine.
type Phase string

const (
	PhaseStart           Phase = "start"
	PhasePreProcessing   Phase = "pre_processing"
	PhasePostProcessing  Phase = "post_processing"
	PhasePreDangling     Phase = "pre_dangling"
	PhasePostDangling    Phase = "post_dangling"
	PhasePreEOS          Phase = "pre_eos"
	PhasePostEOS         Phase = "post_eos"
	PhasePostDispatching Phase = "post_dispatching"
	PhaseStop            Phase = "stop"
	PhaseExit            Phase = "exit"
)

// DefaultFailureThreshold is the number of consecutive degraded cycles after
// which a service is individually shut down.
const DefaultFailureThreshold = 3

// Invoker walks the registry at each synchronization point and fires the
// matching callbacks in deterministic order.
type Invoker struct {
	reg       *registry.Registry
	state     *shared.DeviceState
	log       logger.Logger
	threshold int

	cycle    uint64
	failures map[failureKey]int
}

// failureKey tracks consecutive failures per callback slot, so a clean pass
// through one phase does not absolve failures accumulating in another.
type failureKey struct {
	name  string
	kind  shared.ServiceKind
	phase Phase
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithFailureThreshold overrides the consecutive-failure escalation limit.
func WithFailureThreshold(n int) Option {
	return func(inv *Invoker) {
		if n > 0 {
			inv.threshold = n
		}
	}
}

// NewInvoker creates an invoker over the given registry.
func NewInvoker(reg *registry.Registry, state *shared.DeviceState, log logger.Logger, opts ...Option) *Invoker {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	inv := &Invoker{
		reg:       reg,
		state:     state,
		log:       log,
		threshold: DefaultFailureThreshold,
		failures:  make(map[failureKey]int),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Cycle returns the number of completed processing cycles.
func (inv *Invoker) Cycle() uint64 { return inv.cycle }

// InitAll eagerly builds and configures every registered service. Used at
// process bootstrap before Start.
func (inv *Invoker) InitAll(opts shared.InitContext) error {
	for _, h := range inv.reg.Handles() {
		ictx := shared.InitContext{Registry: inv.reg, State: inv.state, Options: opts.Options}
		if _, err := inv.reg.ResolveOrCreate(h.Name(), h.Kind(), ictx); err != nil {
			return err
		}
		if err := inv.reg.Configure(h.Name(), h.Kind(), ictx); err != nil {
			return err
		}
	}
	return nil
}

// Start transitions every service to running and fires Start callbacks in
// registration order. A failure here is fatal to process startup.
func (inv *Invoker) Start() error {
	for _, h := range inv.reg.Handles() {
		if err := h.MarkRunning(); err != nil {
			return err
		}
		if cb := h.Spec().Start; cb != nil {
			if err := cb(inv.reg, h.Instance()); err != nil {
				return errors.ErrCallback(h.Name(), string(PhaseStart), err)
			}
		}
	}
	inv.log.Debug("services started", logger.Int("count", inv.reg.Len()))
	return nil
}

// ProcessingCycle runs one iteration of the main loop: every PreProcessing
// callback, the external processing step, every PostProcessing callback.
// The returned degraded flag is true when any callback failed this cycle;
// the error is the external step's, which is never swallowed.
func (inv *Invoker) ProcessingCycle(process func(*shared.ProcessingContext) error) (bool, error) {
	inv.cycle++
	pctx := &shared.ProcessingContext{Registry: inv.reg, State: inv.state, Cycle: inv.cycle}

	degraded := inv.runPhase(PhasePreProcessing, func(h *shared.Handle) error {
		if cb := h.Spec().PreProcessing; cb != nil {
			return cb(pctx, h.Instance())
		}
		return nil
	})

	var procErr error
	if process != nil {
		procErr = process(pctx)
	}

	if inv.runPhase(PhasePostProcessing, func(h *shared.Handle) error {
		if cb := h.Spec().PostProcessing; cb != nil {
			return cb(pctx, h.Instance())
		}
		return nil
	}) {
		degraded = true
	}

	return degraded, procErr
}

// Dangling brackets the dangling-input policy for a cycle with no new input.
func (inv *Invoker) Dangling(policy func(*shared.DanglingContext) error) (bool, error) {
	dctx := &shared.DanglingContext{Registry: inv.reg, State: inv.state}

	degraded := inv.runPhase(PhasePreDangling, func(h *shared.Handle) error {
		if cb := h.Spec().PreDangling; cb != nil {
			return cb(dctx, h.Instance())
		}
		return nil
	})

	var err error
	if policy != nil {
		err = policy(dctx)
	}

	if inv.runPhase(PhasePostDangling, func(h *shared.Handle) error {
		if cb := h.Spec().PostDangling; cb != nil {
			return cb(dctx, h.Instance())
		}
		return nil
	}) {
		degraded = true
	}

	return degraded, err
}

// EndOfStream brackets end-of-stream finalization.
func (inv *Invoker) EndOfStream(finalize func(*shared.EndOfStreamContext) error) (bool, error) {
	ectx := &shared.EndOfStreamContext{Registry: inv.reg, State: inv.state}

	degraded := inv.runPhase(PhasePreEOS, func(h *shared.Handle) error {
		if cb := h.Spec().PreEOS; cb != nil {
			return cb(ectx, h.Instance())
		}
		return nil
	})

	var err error
	if finalize != nil {
		err = finalize(ectx)
	}

	if inv.runPhase(PhasePostEOS, func(h *shared.Handle) error {
		if cb := h.Spec().PostEOS; cb != nil {
			return cb(ectx, h.Instance())
		}
		return nil
	}) {
		degraded = true
	}

	return degraded, err
}

// PostDispatching fires after a message batch is fully delivered downstream.
func (inv *Invoker) PostDispatching() bool {
	pctx := &shared.ProcessingContext{Registry: inv.reg, State: inv.state, Cycle: inv.cycle}
	return inv.runPhase(PhasePostDispatching, func(h *shared.Handle) error {
		if cb := h.Spec().PostDispatching; cb != nil {
			return cb(pctx, h.Instance())
		}
		return nil
	})
}

// Stop fires Stop callbacks on every running service, best-effort: all
// handlers are attempted and the first error is retained.
func (inv *Invoker) Stop() error {
	var firstErr error
	for _, h := range inv.reg.Handles() {
		if h.State() != shared.StateRunning {
			continue
		}
		if cb := h.Spec().Stop; cb != nil {
			if err := cb(inv.reg, h.Instance()); err != nil && firstErr == nil {
				firstErr = errors.ErrCallback(h.Name(), string(PhaseStop), err)
			}
		}
		if err := h.MarkStopped(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Exit fires Exit callbacks on every stopped service, best-effort. Exited is
// terminal.
func (inv *Invoker) Exit() error {
	var firstErr error
	for _, h := range inv.reg.Handles() {
		if h.State() != shared.StateStopped {
			continue
		}
		if cb := h.Spec().Exit; cb != nil {
			if err := cb(inv.reg, h.Instance()); err != nil && firstErr == nil {
				firstErr = errors.ErrCallback(h.Name(), string(PhaseExit), err)
			}
		}
		if err := h.MarkExited(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown runs the stop then exit sequence.
func (inv *Invoker) Shutdown() error {
	return errors.Join(inv.Stop(), inv.Exit())
}

// runPhase fires one callback per active handle, in registration order. A
// failing callback aborts the remainder of the phase for the current cycle:
// it is logged, the service's consecutive-failure count grows, and past the
// threshold the service alone is shut down. Services that complete the phase
// have their count reset.
func (inv *Invoker) runPhase(phase Phase, fire func(*shared.Handle) error) bool {
	for _, h := range inv.reg.Handles() {
		if !h.Active() {
			continue
		}
		k := failureKey{name: h.Name(), kind: h.Kind(), phase: phase}
		if err := fire(h); err != nil {
			inv.failures[k]++
			inv.log.Warn("service callback failed, cycle degraded",
				logger.String("service", h.Name()),
				logger.Stringer("kind", h.Kind()),
				logger.String("phase", string(phase)),
				logger.Int("consecutive", inv.failures[k]),
				logger.Error(err),
			)
			if inv.failures[k] >= inv.threshold {
				inv.escalate(h)
			}
			return true
		}
		inv.failures[k] = 0
	}
	return false
}

// escalate shuts down one repeatedly failing service instance. Sibling
// services and the process itself continue normally.
func (inv *Invoker) escalate(h *shared.Handle) {
	inv.log.Error("service exceeded failure threshold, shutting it down",
		logger.String("service", h.Name()),
		logger.Stringer("kind", h.Kind()),
		logger.Int("threshold", inv.threshold),
	)

	if cb := h.Spec().Stop; cb != nil {
		if err := cb(inv.reg, h.Instance()); err != nil {
			inv.log.Warn("stop callback failed during escalation",
				logger.String("service", h.Name()), logger.Error(err))
		}
	}
	if err := h.MarkStopped(); err != nil {
		inv.log.Warn("stop transition failed during escalation",
			logger.String("service", h.Name()), logger.Error(err))
		return
	}
	if cb := h.Spec().Exit; cb != nil {
		if err := cb(inv.reg, h.Instance()); err != nil {
			inv.log.Warn("exit callback failed during escalation",
				logger.String("service", h.Name()), logger.Error(err))
		}
	}
	if err := h.MarkExited(); err != nil {
		inv.log.Warn("exit transition failed during escalation",
			logger.String("service", h.Name()), logger.Error(err))
	}
}
