package conduit

import (
	"github.com/xraph/conduit/internal/shared"
	"github.com/xraph/conduit/internal/topology"
)

// Re-export the workflow graph types.
type (
	Workflow = shared.Workflow
	Node     = shared.Node
	Edge     = shared.Edge
)

// NewNode creates a named workflow node with a fresh identity.
var NewNode = shared.NewNode

// Controller manages the multi-process deployment of a workflow.
type Controller = topology.Controller

// Spawner turns a workflow node into a running process.
type Spawner = topology.Spawner

// ExecSpawner re-executes the current binary for each node.
type ExecSpawner = topology.ExecSpawner

// NodeProcess is the parent's supervising record of one spawned child.
type NodeProcess = topology.NodeProcess

// NodeSpec is the configuration handoff for one child process.
type NodeSpec = topology.NodeSpec

// Supervisor watches the spawned node processes from the driver.
type Supervisor = topology.Supervisor

// NewController creates a controller over the driver's registry.
func NewController(reg *Registry, opts Options, log Logger, copts ...topology.ControllerOption) *Controller {
	return topology.NewController(reg, opts, log, copts...)
}

// NewSupervisor creates a supervisor over the given child records.
func NewSupervisor(procs []*NodeProcess, log Logger, opts ...topology.SupervisorOption) *Supervisor {
	return topology.NewSupervisor(procs, log, opts...)
}

// Controller and supervisor options.
var (
	WithSpawner        = topology.WithSpawner
	WithSampleInterval = topology.WithSampleInterval
)

// NewExecSpawner creates the production spawner.
var NewExecSpawner = topology.NewExecSpawner

// BootstrapChild fires postForkChild in a freshly spawned node process.
var BootstrapChild = topology.BootstrapChild

// DecodeNodeSpec reads the node spec handed off to a spawned child.
var DecodeNodeSpec = topology.DecodeNodeSpec
