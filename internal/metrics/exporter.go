package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/conduit/internal/shared"
)

// Exporter publishes dispatched snapshots to a prometheus registry so an
// external scrape surface can expose them.
type Exporter struct {
	registry *prometheus.Registry

	deviceMetric      *prometheus.GaugeVec
	deviceUp          *prometheus.GaugeVec
	dispatches        prometheus.Counter
	droppedDispatches prometheus.Counter
}

// NewExporter creates an exporter with its own prometheus registry.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()

	e := &Exporter{
		registry: reg,
		deviceMetric: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "conduit",
			Name:      "device_metric",
			Help:      "Last dispatched value of a device metric.",
		}, []string{"device", "metric"}),
		deviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "conduit",
			Name:      "device_up",
			Help:      "Whether the device process is running.",
		}, []string{"device"}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "conduit",
			Name:      "metric_dispatches_total",
			Help:      "Completed metric dispatches.",
		}),
		droppedDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "conduit",
			Name:      "metric_dispatches_dropped_total",
			Help:      "Metric dispatches dropped because one was in flight.",
		}),
	}

	reg.MustRegister(e.deviceMetric, e.deviceUp, e.dispatches, e.droppedDispatches)
	return e
}

// Registry exposes the prometheus registry for the external scrape surface.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Observe records one dispatched snapshot set.
func (e *Exporter) Observe(snapshots []shared.MetricSnapshot, infos []shared.DeviceInfo) {
	for _, snap := range snapshots {
		e.deviceMetric.WithLabelValues(snap.DeviceID, snap.Metric).Set(snap.Value)
	}
	for _, info := range infos {
		up := 0.0
		if info.Running {
			up = 1.0
		}
		e.deviceUp.WithLabelValues(info.DeviceID).Set(up)
	}
	e.dispatches.Inc()
}
