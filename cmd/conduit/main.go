package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/xraph/conduit"
)

var (
	flagConfigPath   string // value of --config flag
	flagWorkflowPath string // value of --workflow flag
	flagVerbose      bool   // value of --verbose flag

	opts conduit.Options
	log  conduit.Logger
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "YAML config file to load")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	runCmd.Flags().StringVar(&flagWorkflowPath, "workflow", "workflow.yaml", "workflow graph to deploy")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initConduit

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("conduit failed", conduit.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "conduit:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "conduit",
	Short:        "Driver for the conduit streaming engine service layer",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run deploys the workflow and supervises the node processes",
	RunE:  doRun,
}

var nodeCmd = &cobra.Command{
	Use:    "_node",
	Short:  "internal command, runs one spawned topology node",
	RunE:   doNode,
	Hidden: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version prints build information",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("conduit: version info not available")
			return
		}
		bold := color.New(color.Bold)
		bold.Printf("conduit: ")
		fmt.Println(info.Main.Version)
		bold.Printf("go:      ")
		fmt.Println(info.GoVersion)
	},
}

func initConduit(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		log = conduit.NewDevelopmentLogger()
	} else {
		log = conduit.NewProductionLogger()
	}

	opts = make(conduit.Options)
	if flagConfigPath != "" {
		loaded, err := conduit.LoadOptions(flagConfigPath)
		if err != nil {
			return err
		}
		opts = loaded
	}
	opts.FromEnv()
	return nil
}

// doRun is the driver process: finalize the workflow, spawn one process per
// node and supervise them, dispatching metrics on the driver timer.
func doRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := conduit.NewRegistry(log)
	for _, spec := range driverServices() {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}

	// Driver services need their instances built before any fork hook
	// dereferences them.
	inv := conduit.NewInvoker(reg, &conduit.DeviceState{}, log)
	if err := inv.InitAll(conduit.InitContext{Options: opts}); err != nil {
		return err
	}

	workflow, err := workflowFromFile(flagWorkflowPath)
	if err != nil {
		return err
	}

	ctrl := conduit.NewController(reg, opts, log)
	if err := ctrl.DriverInit(); err != nil {
		return err
	}
	if err := ctrl.BuildWorkflow(workflow); err != nil {
		return err
	}
	if err := ctrl.Deploy(ctx); err != nil {
		return err
	}

	sup := conduit.NewSupervisor(ctrl.Processes(), log)
	sink := conduit.NewSink(reg, log, conduit.WithExporter(conduit.NewExporter()))
	poller := conduit.NewPoller(sink, func(now time.Time) ([]conduit.MetricSnapshot, []conduit.DeviceSpec, []conduit.DeviceInfo) {
		return sup.Snapshots(now), sup.Specs(), sup.Infos()
	}, opts.GetDuration("metrics.interval", conduit.DefaultDispatchInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error {
		err := poller.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// doNode is a spawned child: rebuild the registry from scratch, fire
// postForkChild before anything else, then drive the processing loop until
// the driver tears it down. Exit code 0 requires clean exit callbacks.
func doNode(cmd *cobra.Command, args []string) error {
	spec, err := conduit.DecodeNodeSpec()
	if err != nil {
		return err
	}
	log = log.With(conduit.String("node", spec.Name), conduit.Int("pid", os.Getpid()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := conduit.NewRegistry(log)
	for _, s := range nodeServices() {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	if err := conduit.BootstrapChild(reg); err != nil {
		return err
	}

	state := &conduit.DeviceState{NodeID: spec.ID, Streams: spec.Streams}
	inv := conduit.NewInvoker(reg, state, log)
	if err := inv.InitAll(conduit.InitContext{Options: spec.Options}); err != nil {
		return err
	}
	if err := inv.Start(); err != nil {
		return err
	}

	interval := spec.Options.GetDuration("node.cycle", 100*time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			// The data-processing step itself is the external transport's;
			// with no input pending this is a dangling cycle.
			if state.InputsAvailable {
				if _, err := inv.ProcessingCycle(nil); err != nil {
					log.Error("processing step failed", conduit.Error(err))
				}
			} else {
				if _, err := inv.Dangling(nil); err != nil {
					log.Error("dangling policy failed", conduit.Error(err))
				}
			}
		}
	}

	if _, err := inv.EndOfStream(nil); err != nil {
		log.Error("end of stream finalization failed", conduit.Error(err))
	}
	return inv.Shutdown()
}

// workflowFile is the on-disk workflow schema.
type workflowFile struct {
	Nodes []struct {
		Name string `yaml:"name"`
	} `yaml:"nodes"`
	Edges []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"edges"`
}

func workflowFromFile(path string) (*conduit.Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wf workflowFile
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, err
	}

	w := &conduit.Workflow{}
	for _, n := range wf.Nodes {
		w.AddNode(conduit.NewNode(n.Name, nodeServices()...))
	}
	for _, e := range wf.Edges {
		w.Edges = append(w.Edges, conduit.Edge{From: e.From, To: e.To})
	}
	return w, nil
}
