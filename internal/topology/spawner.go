package topology

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/xraph/conduit/internal/config"
	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/shared"
)

// NodeSpecEnv carries the serialized node spec into the spawned child.
const NodeSpecEnv = "CONDUIT_NODE_SPEC"

// NodeSpec is the configuration handoff for one child process.
type NodeSpec struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Streams int            `yaml:"streams"`
	Options config.Options `yaml:"options"`
}

// EncodeNodeSpec serializes a node spec for the environment handoff.
func EncodeNodeSpec(spec NodeSpec) (string, error) {
	raw, err := yaml.Marshal(spec)
	if err != nil {
		return "", errors.ErrTopology("encoding node spec", err)
	}
	return string(raw), nil
}

// DecodeNodeSpec reads the node spec from the environment. Called in the
// child during bootstrap.
func DecodeNodeSpec() (NodeSpec, error) {
	raw, ok := os.LookupEnv(NodeSpecEnv)
	if !ok {
		return NodeSpec{}, errors.ErrTopology(NodeSpecEnv+" not set, not a spawned node", nil)
	}
	var spec NodeSpec
	if err := yaml.Unmarshal([]byte(raw), &spec); err != nil {
		return NodeSpec{}, errors.ErrTopology("decoding node spec", err)
	}
	return spec, nil
}

// NodeProcess is the parent's supervising record of one spawned child:
// identity, PID and exit status, retained until reaped.
type NodeProcess struct {
	ID   string
	Node shared.Node
	PID  int

	waitOnce sync.Once
	waitErr  error
	waitFn   func() (int, error)
	exit     int
}

// Wait blocks until the child exits and records its status. Safe to call
// more than once.
func (p *NodeProcess) Wait() error {
	p.waitOnce.Do(func() {
		if p.waitFn != nil {
			p.exit, p.waitErr = p.waitFn()
		}
	})
	return p.waitErr
}

// ExitCode returns the child's exit code; valid after Wait returns.
// A node process exits 0 only on clean exit-callback completion.
func (p *NodeProcess) ExitCode() int { return p.exit }

// Spawner turns a workflow node into a running process. The exec-based
// implementation is the production one; tests substitute in-process
// simulations.
type Spawner interface {
	Spawn(ctx context.Context, node shared.Node, opts config.Options) (*NodeProcess, error)
}

// ExecSpawner re-executes the current binary with the hidden node
// subcommand, handing the node spec off through the environment.
type ExecSpawner struct {
	// Arg is the subcommand the child binary runs. Defaults to "_node".
	Arg string
}

// NewExecSpawner creates the production spawner.
func NewExecSpawner() *ExecSpawner {
	return &ExecSpawner{Arg: "_node"}
}

// Spawn starts one child process for the node. Resource exhaustion here is
// fatal to the controller.
func (s *ExecSpawner) Spawn(ctx context.Context, node shared.Node, opts config.Options) (*NodeProcess, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeNodeSpec(NodeSpec{
		ID:      node.ID,
		Name:    node.Name,
		Streams: 1,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, self, s.Arg)
	cmd.Env = append(os.Environ(), NodeSpecEnv+"="+encoded)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &NodeProcess{
		ID:   uuid.NewString(),
		Node: node,
		PID:  cmd.Process.Pid,
		waitFn: func() (int, error) {
			err := cmd.Wait()
			code := 0
			if cmd.ProcessState != nil {
				code = cmd.ProcessState.ExitCode()
			}
			return code, err
		},
	}, nil
}
