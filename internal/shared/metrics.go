package shared

import "time"

// MetricSnapshot is one sampled metric value of a downstream process. The
// schema is owned by the external metrics collaborator; this core routes
// snapshots, it does not interpret them.
type MetricSnapshot struct {
	DeviceID  string
	Metric    string
	Value     float64
	Timestamp time.Time
}

// DeviceSpec identifies a deployed node process to metric callbacks.
type DeviceSpec struct {
	ID   string
	Name string
}

// DeviceInfo is the supervising record the driver keeps per child process.
type DeviceInfo struct {
	DeviceID string
	PID      int
	Running  bool
	ExitCode int

	// Sampled by the supervisor, zero when unavailable.
	CPUPercent float64
	RSSBytes   uint64
}
