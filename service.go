package conduit

import (
	"github.com/xraph/conduit/internal/shared"
)

// Re-export the service data model.
type (
	ServiceSpec  = shared.ServiceSpec
	ServiceKind  = shared.ServiceKind
	ServiceState = shared.ServiceState
	Handle       = shared.Handle

	InitContext        = shared.InitContext
	ProcessingContext  = shared.ProcessingContext
	DanglingContext    = shared.DanglingContext
	EndOfStreamContext = shared.EndOfStreamContext
	ConfigContext      = shared.ConfigContext
	DeviceState        = shared.DeviceState

	InitFunc       = shared.InitFunc
	ConfigureFunc  = shared.ConfigureFunc
	ProcessingFunc = shared.ProcessingFunc
	DanglingFunc   = shared.DanglingFunc
	EOSFunc        = shared.EOSFunc
	RunFunc        = shared.RunFunc
	ForkFunc       = shared.ForkFunc
	PostForkFunc   = shared.PostForkFunc
	ScheduleFunc   = shared.ScheduleFunc
	MetricFunc     = shared.MetricFunc
	DriverFunc     = shared.DriverFunc
	TopologyFunc   = shared.TopologyFunc
)

// Service kinds.
const (
	KindSerial = shared.KindSerial
	KindGlobal = shared.KindGlobal
	KindStream = shared.KindStream
	KindAny    = shared.KindAny
)

// Handle lifecycle states.
const (
	StateUninitialized = shared.StateUninitialized
	StateInitialized   = shared.StateInitialized
	StateConfigured    = shared.StateConfigured
	StateRunning       = shared.StateRunning
	StateStopped       = shared.StateStopped
	StateExited        = shared.StateExited
)

// As asserts a handle's type-erased instance to T, failing loudly on a
// mismatch.
func As[T any](h *Handle) (T, error) {
	return shared.As[T](h)
}
