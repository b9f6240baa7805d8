package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error code constants for structured errors
const (
	CodeRegistrationError   = "REGISTRATION_ERROR"
	CodeLifecycleStateError = "LIFECYCLE_STATE_ERROR"
	CodeCallbackError       = "CALLBACK_ERROR"
	CodeTopologyError       = "TOPOLOGY_ERROR"
	CodeServiceNotFound     = "SERVICE_NOT_FOUND"
	CodeConfigError         = "CONFIG_ERROR"
)

// ConduitError represents a structured error with context
type ConduitError struct {
	Code      string
	Message   string
	Cause     error
	Timestamp time.Time
	Context   map[string]interface{}
}

func (e *ConduitError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ConduitError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ConduitError.
// Compares by error code, allowing matching against sentinel errors
func (e *ConduitError) Is(target error) bool {
	t, ok := target.(*ConduitError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithContext adds context to the error
func (e *ConduitError) WithContext(key string, value interface{}) *ConduitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ErrRegistration creates a duplicate-registration error. Rejected at
// registry-build time, fatal to process startup.
func ErrRegistration(name, kind string) *ConduitError {
	return &ConduitError{
		Code:      CodeRegistrationError,
		Message:   fmt.Sprintf("service '%s' (kind %s) already registered", name, kind),
		Cause:     nil,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"service_name": name, "service_kind": kind},
	}
}

// ErrLifecycleState creates an error for a callback invoked while the handle
// is in a state that forbids it.
func ErrLifecycleState(name, state, callback string) *ConduitError {
	return &ConduitError{
		Code:      CodeLifecycleStateError,
		Message:   fmt.Sprintf("service '%s' cannot run %s while %s", name, callback, state),
		Cause:     nil,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"service_name": name, "state": state, "callback": callback},
	}
}

// ErrCallback wraps a failure signalled by a user callback.
func ErrCallback(name, phase string, cause error) *ConduitError {
	return &ConduitError{
		Code:      CodeCallbackError,
		Message:   fmt.Sprintf("service '%s' callback failed in phase %s", name, phase),
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"service_name": name, "phase": phase},
	}
}

// ErrTopology creates a topology error. Fatal to the controller.
func ErrTopology(message string, cause error) *ConduitError {
	return &ConduitError{
		Code:      CodeTopologyError,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// ErrServiceNotFound creates a lookup miss error. Always recoverable, the
// caller decides the fallback.
func ErrServiceNotFound(name string) *ConduitError {
	return &ConduitError{
		Code:      CodeServiceNotFound,
		Message:   "service '" + name + "' not found",
		Cause:     nil,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"service_name": name},
	}
}

// ErrConfigError creates a config error
func ErrConfigError(message string, cause error) *ConduitError {
	return &ConduitError{
		Code:      CodeConfigError,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// ErrTypeMismatch reports a failed typed access to a type-erased instance.
func ErrTypeMismatch(name, want, got string) *ConduitError {
	return &ConduitError{
		Code:      CodeCallbackError,
		Message:   fmt.Sprintf("service '%s' holds %s, not %s", name, got, want),
		Cause:     nil,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"service_name": name, "want": want, "got": got},
	}
}

// ErrMalformedWorkflow reports a workflow graph the controller cannot deploy.
func ErrMalformedWorkflow(reasons []string) *ConduitError {
	return &ConduitError{
		Code:      CodeTopologyError,
		Message:   "malformed workflow: " + strings.Join(reasons, "; "),
		Cause:     nil,
		Timestamp: time.Now(),
		Context:   map[string]interface{}{"reasons": reasons},
	}
}

// =============================================================================
// STANDARD ERRORS PACKAGE INTEGRATION
// =============================================================================

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target, and if so,
// sets target to that error value and returns true. Otherwise, it returns false.
// This is a convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
// This is a convenience wrapper around errors.New from the standard library.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
// Any nil error values are discarded.
// This is a convenience wrapper around errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// =============================================================================
// SENTINEL ERRORS (for use with Is)
// =============================================================================

// Sentinel errors that can be used with errors.Is comparisons
var (
	// ErrRegistrationSentinel is a sentinel error for duplicate registrations
	ErrRegistrationSentinel = &ConduitError{Code: CodeRegistrationError}

	// ErrLifecycleStateSentinel is a sentinel error for forbidden state transitions
	ErrLifecycleStateSentinel = &ConduitError{Code: CodeLifecycleStateError}

	// ErrCallbackSentinel is a sentinel error for user callback failures
	ErrCallbackSentinel = &ConduitError{Code: CodeCallbackError}

	// ErrTopologySentinel is a sentinel error for topology failures
	ErrTopologySentinel = &ConduitError{Code: CodeTopologyError}

	// ErrServiceNotFoundSentinel is a sentinel error for lookup misses
	ErrServiceNotFoundSentinel = &ConduitError{Code: CodeServiceNotFound}

	// ErrConfigSentinel is a sentinel error for config errors
	ErrConfigSentinel = &ConduitError{Code: CodeConfigError}
)

// IsRegistration checks if the error is a duplicate registration error
func IsRegistration(err error) bool {
	return Is(err, ErrRegistrationSentinel)
}

// IsLifecycleState checks if the error is a lifecycle state error
func IsLifecycleState(err error) bool {
	return Is(err, ErrLifecycleStateSentinel)
}

// IsCallback checks if the error is a user callback error
func IsCallback(err error) bool {
	return Is(err, ErrCallbackSentinel)
}

// IsTopology checks if the error is a topology error
func IsTopology(err error) bool {
	return Is(err, ErrTopologySentinel)
}

// IsServiceNotFound checks if the error is a service not found error
func IsServiceNotFound(err error) bool {
	return Is(err, ErrServiceNotFoundSentinel)
}
