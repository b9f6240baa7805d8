package main

import (
	"time"

	"github.com/xraph/conduit"
)

// deploymentMonitor is the driver-side built-in: it traces the fork and
// schedule phases and summarizes every metric dispatch.
type deploymentMonitor struct {
	spawned int
	started time.Time
}

// driverServices returns the descriptors registered in the driver process.
func driverServices() []*conduit.ServiceSpec {
	return []*conduit.ServiceSpec{
		{
			Name: "deployment-monitor",
			Kind: conduit.KindGlobal,
			Init: func(ictx conduit.InitContext) (any, error) {
				return &deploymentMonitor{}, nil
			},
			DriverInit: func(reg conduit.RegistryView, opts conduit.Options) error {
				log.Info("driver initialized", conduit.Int("options", len(opts)))
				return nil
			},
			PreFork: func(reg conduit.RegistryView, opts conduit.Options) error {
				h, err := reg.Get("deployment-monitor", conduit.KindGlobal)
				if err != nil {
					return err
				}
				mon, err := conduit.As[*deploymentMonitor](h)
				if err != nil {
					return err
				}
				if mon.spawned == 0 {
					mon.started = time.Now()
				}
				return nil
			},
			PostForkParent: func(reg conduit.RegistryView) error {
				h, err := reg.Get("deployment-monitor", conduit.KindGlobal)
				if err != nil {
					return err
				}
				mon, err := conduit.As[*deploymentMonitor](h)
				if err != nil {
					return err
				}
				mon.spawned++
				return nil
			},
			DriverStartup: func(reg conduit.RegistryView, opts conduit.Options) error {
				h, err := reg.Get("deployment-monitor", conduit.KindGlobal)
				if err != nil {
					return err
				}
				mon, err := conduit.As[*deploymentMonitor](h)
				if err != nil {
					return err
				}
				log.Info("topology deployed",
					conduit.Int("nodes", mon.spawned),
					conduit.Duration("took", time.Since(mon.started)),
				)
				return nil
			},
			MetricHandling: func(reg conduit.RegistryView, snapshots []conduit.MetricSnapshot, specs []conduit.DeviceSpec, infos []conduit.DeviceInfo, ts time.Time) error {
				running := 0
				for _, info := range infos {
					if info.Running {
						running++
					}
				}
				log.Debug("metric dispatch",
					conduit.Int("snapshots", len(snapshots)),
					conduit.Int("devices", len(specs)),
					conduit.Int("running", running),
				)
				return nil
			},
		},
	}
}

// cycleMonitor is the node-side built-in instance: per-process cycle counters.
type cycleMonitor struct {
	cycles   uint64
	dangling uint64
	started  time.Time
}

// nodeServices returns the descriptors registered in every spawned node.
func nodeServices() []*conduit.ServiceSpec {
	return []*conduit.ServiceSpec{
		{
			Name: "cycle-monitor",
			Kind: conduit.KindSerial,
			Init: func(ictx conduit.InitContext) (any, error) {
				return &cycleMonitor{}, nil
			},
			PostForkChild: func(reg conduit.RegistryView) error {
				log.Debug("child bootstrap, registry rebuilt from scratch")
				return nil
			},
			Start: func(reg conduit.RegistryView, instance any) error {
				instance.(*cycleMonitor).started = time.Now()
				return nil
			},
			PostProcessing: func(pctx *conduit.ProcessingContext, instance any) error {
				instance.(*cycleMonitor).cycles++
				return nil
			},
			PostDangling: func(dctx *conduit.DanglingContext, instance any) error {
				instance.(*cycleMonitor).dangling++
				return nil
			},
			PreEOS: func(ectx *conduit.EndOfStreamContext, instance any) error {
				log.Info("end of stream reached",
					conduit.Uint64("cycles", instance.(*cycleMonitor).cycles))
				return nil
			},
			Stop: func(reg conduit.RegistryView, instance any) error {
				mon := instance.(*cycleMonitor)
				log.Info("node summary",
					conduit.Uint64("cycles", mon.cycles),
					conduit.Uint64("dangling", mon.dangling),
					conduit.Duration("uptime", time.Since(mon.started)),
				)
				return nil
			},
		},
	}
}
