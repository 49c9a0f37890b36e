package processor

import "time"

// MetricsRecorder defines the metrics operations needed by the processor.
type MetricsRecorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = (*NoOpMetrics)(nil)

func (n *NoOpMetrics) RecordReceived()                 {}
func (n *NoOpMetrics) RecordProcessed(_ time.Duration) {}
func (n *NoOpMetrics) RecordError()                    {}
func (n *NoOpMetrics) IncrementCustom(_ string)        {}

// Custom counter names reported under metrics:storage.
const (
	metricStored        = "logs_stored"
	metricUnresolved    = "logs_unresolved"
	metricPoison        = "logs_poison"
	metricDuplicate     = "logs_duplicate"
	metricStoreFailures = "store_failures"
	metricRejected      = "logs_rejected"
)
