package metrics

import (
	"context"
	"time"

	"github.com/xraph/conduit/internal/shared"
)

// DefaultDispatchInterval is the driver's metric timer period.
const DefaultDispatchInterval = 10 * time.Second

// CollectFunc gathers the current snapshot set for one dispatch.
type CollectFunc func(now time.Time) ([]shared.MetricSnapshot, []shared.DeviceSpec, []shared.DeviceInfo)

// Poller drives the sink on a periodic timer, independent of the processing
// cycle.
type Poller struct {
	sink     *Sink
	collect  CollectFunc
	interval time.Duration
}

// NewPoller creates a poller. A non-positive interval falls back to the
// default.
func NewPoller(sink *Sink, collect CollectFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	return &Poller{sink: sink, collect: collect, interval: interval}
}

// Run dispatches on every tick until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			snapshots, specs, infos := p.collect(now)
			p.sink.Dispatch(snapshots, specs, infos, now)
		}
	}
}
