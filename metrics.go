package conduit

import (
	"github.com/xraph/conduit/internal/metrics"
	"github.com/xraph/conduit/internal/shared"
)

// Re-export the metric snapshot schema.
type (
	MetricSnapshot = shared.MetricSnapshot
	DeviceSpec     = shared.DeviceSpec
	DeviceInfo     = shared.DeviceInfo
)

// Sink routes metric dispatches through the metricHandling callback chain.
type Sink = metrics.Sink

// Exporter publishes dispatched snapshots to a prometheus registry.
type Exporter = metrics.Exporter

// Poller drives the sink on a periodic timer.
type Poller = metrics.Poller

// CollectFunc gathers the snapshot set for one dispatch.
type CollectFunc = metrics.CollectFunc

// DefaultDispatchInterval is the driver's metric timer period.
const DefaultDispatchInterval = metrics.DefaultDispatchInterval

// NewSink creates a sink over the driver's registry.
func NewSink(reg *Registry, log Logger, opts ...metrics.SinkOption) *Sink {
	return metrics.NewSink(reg, log, opts...)
}

// NewExporter creates an exporter with its own prometheus registry.
var NewExporter = metrics.NewExporter

// NewPoller creates a poller over a sink.
var NewPoller = metrics.NewPoller

// WithExporter attaches a prometheus exporter to a sink.
var WithExporter = metrics.WithExporter
