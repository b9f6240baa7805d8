package conduit

import (
	"github.com/xraph/conduit/internal/lifecycle"
)

// Invoker walks the registry at each engine synchronization point and fires
// the matching callbacks in registration order.
type Invoker = lifecycle.Invoker

// Phase names a synchronization point of the engine.
type Phase = lifecycle.Phase

// Engine phases.
const (
	PhaseStart           = lifecycle.PhaseStart
	PhasePreProcessing   = lifecycle.PhasePreProcessing
	PhasePostProcessing  = lifecycle.PhasePostProcessing
	PhasePreDangling     = lifecycle.PhasePreDangling
	PhasePostDangling    = lifecycle.PhasePostDangling
	PhasePreEOS          = lifecycle.PhasePreEOS
	PhasePostEOS         = lifecycle.PhasePostEOS
	PhasePostDispatching = lifecycle.PhasePostDispatching
	PhaseStop            = lifecycle.PhaseStop
	PhaseExit            = lifecycle.PhaseExit
)

// DefaultFailureThreshold is the number of consecutive degraded cycles after
// which a service is individually shut down.
const DefaultFailureThreshold = lifecycle.DefaultFailureThreshold

// NewInvoker creates an invoker over the given registry.
func NewInvoker(reg *Registry, state *DeviceState, log Logger, opts ...lifecycle.Option) *Invoker {
	return lifecycle.NewInvoker(reg, state, log, opts...)
}

// WithFailureThreshold overrides the consecutive-failure escalation limit.
var WithFailureThreshold = lifecycle.WithFailureThreshold
