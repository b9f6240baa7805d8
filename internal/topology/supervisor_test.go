package topology

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/conduit/internal/shared"
)

func stubProcess(id, name string, pid int, exit <-chan int) *NodeProcess {
	return &NodeProcess{
		ID:   id,
		Node: shared.Node{ID: id, Name: name},
		PID:  pid,
		waitFn: func() (int, error) {
			return <-exit, nil
		},
	}
}

func TestSupervisorReapsAllChildren(t *testing.T) {
	readerExit := make(chan int, 1)
	processorExit := make(chan int, 1)
	procs := []*NodeProcess{
		stubProcess("n-1", "reader", 101, readerExit),
		stubProcess("n-2", "processor", 102, processorExit),
	}

	sup := NewSupervisor(procs, nil, WithSampleInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()

	// A crashing child is recorded, it does not take its sibling down.
	readerExit <- 3
	assert.Eventually(t, func() bool {
		for _, info := range sup.Infos() {
			if info.DeviceID == "n-1" {
				return !info.Running && info.ExitCode == 3
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	for _, info := range sup.Infos() {
		if info.DeviceID == "n-2" {
			assert.True(t, info.Running)
		}
	}

	processorExit <- 0
	require.NoError(t, <-done)

	infos := sup.Infos()
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.False(t, info.Running)
	}
}

func TestSupervisorRunHonorsCancel(t *testing.T) {
	exit := make(chan int)
	sup := NewSupervisor([]*NodeProcess{stubProcess("n-1", "reader", 101, exit)}, nil,
		WithSampleInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	// Run keeps reaping after cancellation; in production the context kills
	// the children, here the stub is released by hand.
	cancel()
	close(exit)
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSupervisorSnapshots(t *testing.T) {
	exit := make(chan int, 1)
	sup := NewSupervisor([]*NodeProcess{stubProcess("n-1", "reader", 101, exit)}, nil)

	specs := sup.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, shared.DeviceSpec{ID: "n-1", Name: "reader"}, specs[0])

	now := time.Now()
	snaps := sup.Snapshots(now)
	require.Len(t, snaps, 2)
	assert.Equal(t, "cpu_percent", snaps[0].Metric)
	assert.Equal(t, "rss_bytes", snaps[1].Metric)
	assert.Equal(t, now, snaps[0].Timestamp)

	// Dead children drop out of the snapshot set.
	exit <- 0
	require.NoError(t, sup.procs[0].Wait())
	sup.recordExit(sup.procs[0], nil)
	assert.Empty(t, sup.Snapshots(now))
}
