package shared

import (
	"time"

	"github.com/xraph/conduit/internal/config"
)

// ServiceKind is the scope of a service instance within a process.
type ServiceKind int

const (
	// KindSerial services have one instance per process, accessed only from
	// the processing loop thread.
	KindSerial ServiceKind = iota

	// KindGlobal services have one instance shared across all processing
	// contexts of a process. When the process runs worker threads the
	// implementation must be internally thread-safe; the registry does not
	// enforce this.
	KindGlobal

	// KindStream services have one instance per logical data stream.
	KindStream

	// KindAny is a ForEach filter matching every kind.
	KindAny ServiceKind = -1
)

func (k ServiceKind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindGlobal:
		return "global"
	case KindStream:
		return "stream"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// ServiceState tracks a handle through its lifecycle.
type ServiceState int

const (
	StateUninitialized ServiceState = iota
	StateInitialized
	StateConfigured
	StateRunning
	StateStopped
	StateExited
)

func (s ServiceState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// InitFunc creates the type-erased service instance. It receives the
// process-wide context objects: registry, device state and program options.
type InitFunc func(InitContext) (any, error)

// ConfigureFunc reconfigures an existing instance. It may replace the
// instance by returning a different value.
type ConfigureFunc func(InitContext, any) (any, error)

// ProcessingFunc runs at a processing-phase boundary.
type ProcessingFunc func(*ProcessingContext, any) error

// DanglingFunc runs around the dangling-input policy.
type DanglingFunc func(*DanglingContext, any) error

// EOSFunc runs around end-of-stream finalization.
type EOSFunc func(*EndOfStreamContext, any) error

// RunFunc runs at start, stop and exit boundaries.
type RunFunc func(Registry, any) error

// ForkFunc runs in the parent before a fork, with the current options.
// Forking can happen multiple times; the service tracks the count itself.
type ForkFunc func(Registry, config.Options) error

// PostForkFunc runs after a fork, in the child before any other callback or
// in the parent for bookkeeping.
type PostForkFunc func(Registry) error

// ScheduleFunc brackets a redeployment of the whole configuration. Driver only.
type ScheduleFunc func(Registry, config.Options) error

// MetricFunc receives the accumulated metric snapshots for all known
// downstream processes. The snapshot is read-only for the callback.
type MetricFunc func(Registry, []MetricSnapshot, []DeviceSpec, []DeviceInfo, time.Time) error

// DriverFunc runs in the driver process only.
type DriverFunc func(Registry, config.Options) error

// TopologyFunc lets a service mutate or inspect the workflow graph before it
// is finalized.
type TopologyFunc func(*Workflow, *ConfigContext) error

// ServiceSpec is the immutable, declarative descriptor of a service: a name,
// a kind, and the set of lifecycle callbacks the service participates in.
// Unset slots are no-ops. A spec never changes once registered; its
// (Name, Kind) pair is the registry key.
//
// A service is a utility attached to the engine's lifecycle; it does not
// process data itself but carries out cross-cutting work (monitoring,
// configuration, metrics) around the data processor.
type ServiceSpec struct {
	// Name of the service, unique per kind within a process.
	Name string
	// Kind of service being specified.
	Kind ServiceKind

	// Init creates the service instance.
	Init InitFunc
	// Configure reconfigures the service. May run any number of times while
	// the handle is initialized, configured or running.
	Configure ConfigureFunc

	// PreProcessing runs before each user processing step.
	PreProcessing ProcessingFunc
	// PostProcessing runs after each user processing step.
	PostProcessing ProcessingFunc

	// PreDangling runs before the dangling-input policy.
	PreDangling DanglingFunc
	// PostDangling runs after the dangling-input policy.
	PostDangling DanglingFunc

	// PreEOS runs before end-of-stream finalization.
	PreEOS EOSFunc
	// PostEOS runs after end-of-stream finalization.
	PostEOS EOSFunc

	// PreFork runs in the parent before a node process is spawned.
	PreFork ForkFunc
	// PostForkChild runs in the child before any other service callback.
	// Global-kind state must be treated as freshly uninitialized there.
	PostForkChild PostForkFunc
	// PostForkParent runs in the parent after each spawn.
	PostForkParent PostForkFunc

	// PreSchedule and PostSchedule bracket a redeployment. Driver only.
	PreSchedule  ScheduleFunc
	PostSchedule ScheduleFunc

	// MetricHandling runs on the driver metric timer.
	MetricHandling MetricFunc

	// PostDispatching runs after a message batch is fully delivered.
	PostDispatching ProcessingFunc

	// Start runs when the process enters its running phase.
	Start RunFunc
	// Stop runs when the process leaves its running phase.
	Stop RunFunc
	// Exit runs before the process terminates.
	Exit RunFunc

	// DriverInit runs once in the driver before any forking.
	DriverInit DriverFunc
	// DriverStartup runs once after all children are spawned.
	DriverStartup DriverFunc

	// InjectTopology may add auxiliary nodes before the graph is finalized.
	InjectTopology TopologyFunc
	// AdjustTopology validates or annotates the finalized graph.
	AdjustTopology TopologyFunc
}
