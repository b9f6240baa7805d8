package conduit

import (
	"github.com/xraph/conduit/internal/errors"
)

// ConduitError is the structured error carried by every error this module
// produces.
type ConduitError = errors.ConduitError

// Re-export error constructors.
var (
	ErrRegistration    = errors.ErrRegistration
	ErrLifecycleState  = errors.ErrLifecycleState
	ErrCallback        = errors.ErrCallback
	ErrTopology        = errors.ErrTopology
	ErrServiceNotFound = errors.ErrServiceNotFound
	ErrConfigError     = errors.ErrConfigError
)

// Re-export sentinel errors for error comparison using errors.Is().
var (
	ErrRegistrationSentinel    = errors.ErrRegistrationSentinel
	ErrLifecycleStateSentinel  = errors.ErrLifecycleStateSentinel
	ErrCallbackSentinel        = errors.ErrCallbackSentinel
	ErrTopologySentinel        = errors.ErrTopologySentinel
	ErrServiceNotFoundSentinel = errors.ErrServiceNotFoundSentinel
	ErrConfigSentinel          = errors.ErrConfigSentinel
)

// Re-export error predicates.
var (
	IsRegistration    = errors.IsRegistration
	IsLifecycleState  = errors.IsLifecycleState
	IsCallback        = errors.IsCallback
	IsTopology        = errors.IsTopology
	IsServiceNotFound = errors.IsServiceNotFound
)
