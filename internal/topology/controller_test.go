package topology

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/conduit/internal/config"
	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/registry"
	"github.com/xraph/conduit/internal/shared"
)

// fakeSpawner records spawn requests instead of launching processes.
type fakeSpawner struct {
	spawned []string
	fail    bool
}

func (f *fakeSpawner) Spawn(ctx context.Context, node shared.Node, opts config.Options) (*NodeProcess, error) {
	if f.fail {
		return nil, errors.New("out of pids")
	}
	f.spawned = append(f.spawned, node.Name)
	return &NodeProcess{
		ID:     node.ID,
		Node:   node,
		PID:    1000 + len(f.spawned),
		waitFn: func() (int, error) { return 0, nil },
	}, nil
}

func testController(t *testing.T, spawner Spawner, specs ...*shared.ServiceSpec) (*Controller, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil)
	for _, s := range specs {
		require.NoError(t, reg.Register(s))
	}
	return NewController(reg, config.Options{}, nil, WithSpawner(spawner)), reg
}

func twoNodeWorkflow() *shared.Workflow {
	w := &shared.Workflow{}
	w.AddNode(shared.NewNode("reader"))
	w.AddNode(shared.NewNode("processor"))
	w.Edges = append(w.Edges, shared.Edge{From: "reader", To: "processor"})
	return w
}

func TestBuildWorkflowInjectMarksAuxiliaryNodes(t *testing.T) {
	ctrl, _ := testController(t, &fakeSpawner{}, &shared.ServiceSpec{
		Name: "relay",
		Kind: shared.KindGlobal,
		InjectTopology: func(w *shared.Workflow, cctx *shared.ConfigContext) error {
			w.AddNode(shared.NewNode("metrics-relay"))
			return nil
		},
	})

	w := twoNodeWorkflow()
	require.NoError(t, ctrl.BuildWorkflow(w))

	final := ctrl.Workflow()
	require.Len(t, final.Nodes, 3)
	assert.False(t, final.Nodes[0].Injected)
	assert.False(t, final.Nodes[1].Injected)
	assert.True(t, final.Nodes[2].Injected)
	assert.Equal(t, "metrics-relay", final.Nodes[2].Name)
}

func TestBuildWorkflowAdjustSeesInjectedNodes(t *testing.T) {
	var seen []string
	ctrl, _ := testController(t, &fakeSpawner{},
		&shared.ServiceSpec{
			Name: "relay",
			Kind: shared.KindGlobal,
			InjectTopology: func(w *shared.Workflow, cctx *shared.ConfigContext) error {
				w.AddNode(shared.NewNode("metrics-relay"))
				return nil
			},
		},
		&shared.ServiceSpec{
			Name: "annotator",
			Kind: shared.KindGlobal,
			AdjustTopology: func(w *shared.Workflow, cctx *shared.ConfigContext) error {
				seen = w.NodeNames()
				for i := range w.Nodes {
					w.Nodes[i].Labels["pass"] = "adjusted"
				}
				return nil
			},
		},
	)

	require.NoError(t, ctrl.BuildWorkflow(twoNodeWorkflow()))
	assert.Equal(t, []string{"reader", "processor", "metrics-relay"}, seen)
	for _, n := range ctrl.Workflow().Nodes {
		assert.Equal(t, "adjusted", n.Labels["pass"])
	}
}

func TestBuildWorkflowRejectsNodeRemoval(t *testing.T) {
	ctrl, _ := testController(t, &fakeSpawner{}, &shared.ServiceSpec{
		Name: "pruner",
		Kind: shared.KindGlobal,
		AdjustTopology: func(w *shared.Workflow, cctx *shared.ConfigContext) error {
			w.Nodes = w.Nodes[:1]
			w.Edges = nil
			return nil
		},
	})

	err := ctrl.BuildWorkflow(twoNodeWorkflow())
	require.Error(t, err)
	assert.True(t, errors.IsTopology(err))
	assert.Contains(t, err.Error(), "removed node")
	assert.Nil(t, ctrl.Workflow())
}

func TestBuildWorkflowRejectsMalformedGraph(t *testing.T) {
	ctrl, _ := testController(t, &fakeSpawner{})

	w := twoNodeWorkflow()
	w.AddNode(shared.NewNode("reader"))

	err := ctrl.BuildWorkflow(w)
	require.Error(t, err)
	assert.True(t, errors.IsTopology(err))
	assert.Contains(t, err.Error(), "duplicate node name")
}

func TestDeployFiresForkHooksPerNode(t *testing.T) {
	var events []string
	spawner := &fakeSpawner{}
	ctrl, _ := testController(t, spawner, &shared.ServiceSpec{
		Name: "observer",
		Kind: shared.KindGlobal,
		PreFork: func(reg shared.Registry, opts config.Options) error {
			events = append(events, "preFork")
			return nil
		},
		PostForkParent: func(reg shared.Registry) error {
			events = append(events, "postForkParent")
			return nil
		},
		DriverStartup: func(reg shared.Registry, opts config.Options) error {
			events = append(events, "driverStartup")
			return nil
		},
	})

	require.NoError(t, ctrl.BuildWorkflow(twoNodeWorkflow()))
	require.NoError(t, ctrl.Deploy(context.Background()))

	assert.Equal(t, []string{"reader", "processor"}, spawner.spawned)
	assert.Equal(t, []string{
		"preFork", "postForkParent",
		"preFork", "postForkParent",
		"driverStartup",
	}, events)
	assert.Len(t, ctrl.Processes(), 2)
}

func TestDeployBeforeBuildFails(t *testing.T) {
	ctrl, _ := testController(t, &fakeSpawner{})
	err := ctrl.Deploy(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTopology(err))
}

func TestDeploySpawnFailureIsFatal(t *testing.T) {
	ctrl, _ := testController(t, &fakeSpawner{fail: true})
	require.NoError(t, ctrl.BuildWorkflow(twoNodeWorkflow()))

	err := ctrl.Deploy(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTopology(err))
	assert.Empty(t, ctrl.Processes())
}

func TestScheduleBracketsRedeploy(t *testing.T) {
	var events []string
	ctrl, _ := testController(t, &fakeSpawner{}, &shared.ServiceSpec{
		Name: "scheduler-hook",
		Kind: shared.KindGlobal,
		PreSchedule: func(reg shared.Registry, opts config.Options) error {
			events = append(events, "preSchedule")
			return nil
		},
		PostSchedule: func(reg shared.Registry, opts config.Options) error {
			events = append(events, "postSchedule")
			return nil
		},
	})

	require.NoError(t, ctrl.Schedule(context.Background(), func(context.Context) error {
		events = append(events, "redeploy")
		return nil
	}))
	assert.Equal(t, []string{"preSchedule", "redeploy", "postSchedule"}, events)
}

func TestDriverInit(t *testing.T) {
	fired := false
	ctrl, _ := testController(t, &fakeSpawner{}, &shared.ServiceSpec{
		Name: "driver-hook",
		Kind: shared.KindGlobal,
		DriverInit: func(reg shared.Registry, opts config.Options) error {
			fired = true
			return nil
		},
	})
	require.NoError(t, ctrl.DriverInit())
	assert.True(t, fired)
}

// TestChildRebuildsGlobalState simulates the two sides of a spawn: the parent
// registry holds an initialized global instance, the child rebuilds its own
// registry from the same descriptors and must end up with a distinct one.
func TestChildRebuildsGlobalState(t *testing.T) {
	spec := func() *shared.ServiceSpec {
		return &shared.ServiceSpec{
			Name: "session",
			Kind: shared.KindGlobal,
			Init: func(shared.InitContext) (any, error) {
				return &struct{ id int }{}, nil
			},
		}
	}

	parent := registry.New(nil)
	require.NoError(t, parent.Register(spec()))
	ph, err := parent.ResolveOrCreate("session", shared.KindGlobal, shared.InitContext{})
	require.NoError(t, err)

	bootstrapped := false
	childSpec := spec()
	childSpec.PostForkChild = func(reg shared.Registry) error {
		bootstrapped = true
		h, err := reg.Get("session", shared.KindGlobal)
		if err != nil {
			return err
		}
		// Global state never crosses the process boundary.
		if h.State() != shared.StateUninitialized {
			return errors.New("child saw parent state")
		}
		return nil
	}

	child := registry.New(nil)
	require.NoError(t, child.Register(childSpec))
	require.NoError(t, BootstrapChild(child))
	assert.True(t, bootstrapped)

	ch, err := child.ResolveOrCreate("session", shared.KindGlobal, shared.InitContext{})
	require.NoError(t, err)
	assert.NotSame(t, ph.Instance(), ch.Instance())
}

func TestNodeSpecHandoff(t *testing.T) {
	encoded, err := EncodeNodeSpec(NodeSpec{
		ID:      "node-1",
		Name:    "reader",
		Streams: 4,
		Options: config.Options{"log.level": "debug"},
	})
	require.NoError(t, err)

	t.Setenv(NodeSpecEnv, encoded)

	spec, err := DecodeNodeSpec()
	require.NoError(t, err)
	assert.Equal(t, "node-1", spec.ID)
	assert.Equal(t, "reader", spec.Name)
	assert.Equal(t, 4, spec.Streams)
	assert.Equal(t, "debug", spec.Options.GetString("log.level", ""))
}

func TestDecodeNodeSpecOutsideChild(t *testing.T) {
	t.Setenv(NodeSpecEnv, "")
	require.NoError(t, os.Unsetenv(NodeSpecEnv))

	_, err := DecodeNodeSpec()
	require.Error(t, err)
	assert.True(t, errors.IsTopology(err))
}
