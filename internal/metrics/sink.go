// Package metrics routes collected runtime metrics from all processes
// through the metricHandling callback chain into observability backends.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/xraph/conduit/internal/logger"
	"github.com/xraph/conduit/internal/registry"
	"github.com/xraph/conduit/internal/shared"
)

// Sink fans one metric dispatch out to every registered metricHandling
// callback. At most one dispatch is in flight per sink; dispatches arriving
// while one runs are dropped as stale, so a slow callback never backs up the
// driver timer.
type Sink struct {
	reg      *registry.Registry
	log      logger.Logger
	exporter *Exporter

	inflight atomic.Bool
	dropped  atomic.Uint64
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithExporter attaches a prometheus exporter fed on every dispatch.
func WithExporter(e *Exporter) SinkOption {
	return func(s *Sink) { s.exporter = e }
}

// NewSink creates a sink over the driver's registry.
func NewSink(reg *registry.Registry, log logger.Logger, opts ...SinkOption) *Sink {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	s := &Sink{
		reg: reg,
		log: log.Named("metrics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch invokes every metricHandling callback with the same read-only
// snapshot. Callbacks may mutate only their own derived state, never the
// snapshot. Returns false when the dispatch was dropped.
func (s *Sink) Dispatch(snapshots []shared.MetricSnapshot, specs []shared.DeviceSpec, infos []shared.DeviceInfo, ts time.Time) bool {
	if !s.inflight.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		if s.exporter != nil {
			s.exporter.droppedDispatches.Inc()
		}
		s.log.Warn("metric dispatch dropped, previous one still in flight",
			logger.Uint64("dropped_total", s.dropped.Load()),
		)
		return false
	}
	defer s.inflight.Store(false)

	if s.exporter != nil {
		s.exporter.Observe(snapshots, infos)
	}

	_ = s.reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		cb := h.Spec().MetricHandling
		if cb == nil {
			return nil
		}
		// A service that was individually shut down no longer receives
		// dispatches.
		if state := h.State(); state == shared.StateStopped || state == shared.StateExited {
			return nil
		}
		if err := cb(s.reg, snapshots, specs, infos, ts); err != nil {
			// One misbehaving sink must not starve the others.
			s.log.Warn("metricHandling callback failed",
				logger.String("service", h.Name()),
				logger.Error(err),
			)
		}
		return nil
	})
	return true
}

// Dropped returns the number of dispatches dropped so far.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }
