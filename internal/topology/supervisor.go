package topology

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/conduit/internal/logger"
	"github.com/xraph/conduit/internal/shared"
)

// DefaultSampleInterval is how often child process resource usage is sampled.
const DefaultSampleInterval = 5 * time.Second

// Supervisor watches the spawned node processes from the driver. A crashing
// child is recorded and reported; it does not by itself terminate siblings.
// Restart policy is an external collaborator, not part of this core.
type Supervisor struct {
	procs    []*NodeProcess
	log      logger.Logger
	interval time.Duration

	mu    sync.RWMutex
	infos map[string]*shared.DeviceInfo
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSampleInterval overrides the resource sampling interval.
func WithSampleInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewSupervisor creates a supervisor over the given child records.
func NewSupervisor(procs []*NodeProcess, log logger.Logger, opts ...SupervisorOption) *Supervisor {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	s := &Supervisor{
		procs:    procs,
		log:      log.Named("supervisor"),
		interval: DefaultSampleInterval,
		infos:    make(map[string]*shared.DeviceInfo, len(procs)),
	}
	for _, p := range procs {
		s.infos[p.ID] = &shared.DeviceInfo{
			DeviceID: p.ID,
			PID:      p.PID,
			Running:  true,
		}
	}
	return s
}

// Run blocks until every child has exited or the context is cancelled,
// reaping exit statuses and periodically sampling resource usage.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	var reaped sync.WaitGroup
	allExited := make(chan struct{})

	for _, p := range s.procs {
		p := p
		reaped.Add(1)
		g.Go(func() error {
			defer reaped.Done()
			err := p.Wait()
			s.recordExit(p, err)
			// A child crash is reported, never propagated to siblings.
			return nil
		})
	}

	go func() {
		reaped.Wait()
		close(allExited)
	}()

	g.Go(func() error {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-allExited:
				return nil
			case <-ticker.C:
				s.sample()
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func (s *Supervisor) recordExit(p *NodeProcess, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := s.infos[p.ID]
	info.Running = false
	info.ExitCode = p.ExitCode()

	if err != nil || info.ExitCode != 0 {
		s.log.Error("node process exited abnormally",
			logger.String("node", p.Node.Name),
			logger.Int("pid", p.PID),
			logger.Int("exit_code", info.ExitCode),
			logger.Error(err),
		)
		return
	}
	s.log.Info("node process exited cleanly",
		logger.String("node", p.Node.Name),
		logger.Int("pid", p.PID),
	)
}

// sample refreshes CPU and RSS figures for the running children.
func (s *Supervisor) sample() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, info := range s.infos {
		if !info.Running {
			continue
		}
		proc, err := process.NewProcess(int32(info.PID))
		if err != nil {
			continue
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			info.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			info.RSSBytes = mem.RSS
		}
	}
}

// Infos returns a copy of the supervising records.
func (s *Supervisor) Infos() []shared.DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.DeviceInfo, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, *s.infos[p.ID])
	}
	return out
}

// Specs returns the device identities in deployment order.
func (s *Supervisor) Specs() []shared.DeviceSpec {
	out := make([]shared.DeviceSpec, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, shared.DeviceSpec{ID: p.ID, Name: p.Node.Name})
	}
	return out
}

// Snapshots renders the sampled resource usage as metric snapshots for the
// sink.
func (s *Supervisor) Snapshots(now time.Time) []shared.MetricSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.MetricSnapshot, 0, len(s.procs)*2)
	for _, p := range s.procs {
		info := s.infos[p.ID]
		if !info.Running {
			continue
		}
		out = append(out,
			shared.MetricSnapshot{DeviceID: p.ID, Metric: "cpu_percent", Value: info.CPUPercent, Timestamp: now},
			shared.MetricSnapshot{DeviceID: p.ID, Metric: "rss_bytes", Value: float64(info.RSSBytes), Timestamp: now},
		)
	}
	return out
}
