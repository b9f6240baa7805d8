// Package topology realizes a declarative workflow as a tree of OS
// processes and drives the fork-specific service lifecycle.
//
// Go cannot fork a multi-threaded process, so replication is done by
// re-executing the own binary with a serialized node spec handed off through
// the environment; the child rebuilds its service registry from scratch.
// Global-kind state therefore never crosses the process boundary.
package topology

import (
	"context"

	"github.com/xraph/conduit/internal/config"
	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/logger"
	"github.com/xraph/conduit/internal/registry"
	"github.com/xraph/conduit/internal/shared"
)

// Controller manages the multi-process deployment of a workflow and invokes
// the fork and schedule hooks on both sides.
type Controller struct {
	reg     *registry.Registry
	opts    config.Options
	log     logger.Logger
	spawner Spawner

	workflow *shared.Workflow
	procs    []*NodeProcess
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSpawner replaces the process spawner. Tests use this to run simulated
// in-process children.
func WithSpawner(s Spawner) ControllerOption {
	return func(c *Controller) { c.spawner = s }
}

// NewController creates a controller over the driver's registry.
func NewController(reg *registry.Registry, opts config.Options, log logger.Logger, copts ...ControllerOption) *Controller {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	c := &Controller{
		reg:     reg,
		opts:    opts,
		log:     log.Named("topology"),
		spawner: NewExecSpawner(),
	}
	for _, opt := range copts {
		opt(c)
	}
	return c
}

// Workflow returns the finalized graph, nil before BuildWorkflow.
func (c *Controller) Workflow() *shared.Workflow { return c.workflow }

// Processes returns the supervising records of all spawned children.
func (c *Controller) Processes() []*NodeProcess { return c.procs }

// DriverInit fires once in the driver process before any forking.
func (c *Controller) DriverInit() error {
	return c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().DriverInit; cb != nil {
			if err := cb(c.reg, c.opts); err != nil {
				return errors.ErrCallback(h.Name(), "driverInit", err)
			}
		}
		return nil
	})
}

// BuildWorkflow runs the topology construction phases over the supplied
// graph: InjectTopology may add auxiliary nodes, AdjustTopology then
// validates and annotates the augmented graph. An adjust pass that removes
// any previously present node is rejected wholesale; the controller mutates
// only the node list, never edge semantics.
func (c *Controller) BuildWorkflow(w *shared.Workflow) error {
	cctx := &shared.ConfigContext{Options: c.opts, Workflow: w}

	err := c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().InjectTopology; cb == nil {
			return nil
		} else {
			before := len(w.Nodes)
			if err := cb(w, cctx); err != nil {
				return errors.ErrCallback(h.Name(), "injectTopology", err)
			}
			for i := before; i < len(w.Nodes); i++ {
				w.Nodes[i].Injected = true
				c.log.Debug("auxiliary node injected",
					logger.String("node", w.Nodes[i].Name),
					logger.String("service", h.Name()),
				)
			}
			return nil
		}
	})
	if err != nil {
		return err
	}

	required := make(map[string]string, len(w.Nodes))
	for i := range w.Nodes {
		required[w.Nodes[i].ID] = w.Nodes[i].Name
	}

	adjusted := w.Clone()
	actx := &shared.ConfigContext{Options: c.opts, Workflow: adjusted}
	err = c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().AdjustTopology; cb != nil {
			if err := cb(adjusted, actx); err != nil {
				return errors.ErrCallback(h.Name(), "adjustTopology", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	surviving := make(map[string]bool, len(adjusted.Nodes))
	for i := range adjusted.Nodes {
		surviving[adjusted.Nodes[i].ID] = true
	}
	for id, name := range required {
		if !surviving[id] {
			return errors.ErrTopology("adjustTopology removed node '"+name+"'", nil).
				WithContext("node_id", id)
		}
	}

	if problems := adjusted.Validate(); len(problems) > 0 {
		return errors.ErrMalformedWorkflow(problems)
	}

	c.workflow = adjusted
	c.log.Info("workflow finalized",
		logger.Int("nodes", len(adjusted.Nodes)),
		logger.Int("edges", len(adjusted.Edges)),
	)
	return nil
}

// Deploy spawns one process per workflow node, firing PreFork in the parent
// before each spawn and PostForkParent after it. Spawn failure is fatal to
// the controller. DriverStartup fires once all children are up.
func (c *Controller) Deploy(ctx context.Context) error {
	if c.workflow == nil {
		return errors.ErrTopology("deploy before workflow finalization", nil)
	}

	for i := range c.workflow.Nodes {
		node := c.workflow.Nodes[i]

		err := c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
			if cb := h.Spec().PreFork; cb != nil {
				if err := cb(c.reg, c.opts); err != nil {
					return errors.ErrCallback(h.Name(), "preFork", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		proc, err := c.spawner.Spawn(ctx, node, c.opts)
		if err != nil {
			return errors.ErrTopology("spawning node '"+node.Name+"'", err)
		}
		c.procs = append(c.procs, proc)
		c.log.Info("node process spawned",
			logger.String("node", node.Name),
			logger.Int("pid", proc.PID),
		)

		err = c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
			if cb := h.Spec().PostForkParent; cb != nil {
				if err := cb(c.reg); err != nil {
					return errors.ErrCallback(h.Name(), "postForkParent", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().DriverStartup; cb != nil {
			if err := cb(c.reg, c.opts); err != nil {
				return errors.ErrCallback(h.Name(), "driverStartup", err)
			}
		}
		return nil
	})
}

// Schedule brackets a redeployment with the PreSchedule and PostSchedule
// hooks. It fires in the driver only.
func (c *Controller) Schedule(ctx context.Context, redeploy func(context.Context) error) error {
	err := c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().PreSchedule; cb != nil {
			if err := cb(c.reg, c.opts); err != nil {
				return errors.ErrCallback(h.Name(), "preSchedule", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if redeploy != nil {
		if err := redeploy(ctx); err != nil {
			return err
		}
	}

	return c.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().PostSchedule; cb != nil {
			if err := cb(c.reg, c.opts); err != nil {
				return errors.ErrCallback(h.Name(), "postSchedule", err)
			}
		}
		return nil
	})
}

// BootstrapChild runs in a freshly spawned node process, before any other
// service callback. Children must treat all global-kind state as
// uninitialized; the registry here was rebuilt from scratch.
func BootstrapChild(reg *registry.Registry) error {
	return reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		if cb := h.Spec().PostForkChild; cb != nil {
			if err := cb(reg); err != nil {
				return errors.ErrCallback(h.Name(), "postForkChild", err)
			}
		}
		return nil
	})
}
