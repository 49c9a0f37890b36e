// Package handlers provides HTTP handlers for the ingestion gateway.
package handlers

import (
	"context"

	"github.com/vanamuthuV/logsy/pkg/metrics"
)

// PipelineMetrics is the subset of the Redis metrics collector the gateway reports to.
type PipelineMetrics interface {
	RecordReceived()
	RecordPublished()
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a null-object implementation of PipelineMetrics.
type NoOpMetrics struct{}

var _ PipelineMetrics = NoOpMetrics{}

func (NoOpMetrics) RecordReceived()          {}
func (NoOpMetrics) RecordPublished()         {}
func (NoOpMetrics) RecordError()             {}
func (NoOpMetrics) IncrementCustom(_ string) {}

// MetricsReader reads service metric snapshots.
type MetricsReader interface {
	Service(ctx context.Context, service string) (*metrics.Snapshot, error)
	All(ctx context.Context) (map[string]*metrics.Snapshot, error)
}
