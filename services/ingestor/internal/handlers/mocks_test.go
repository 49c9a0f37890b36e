package handlers

import (
	"context"
	"fmt"

	"github.com/vanamuthuV/logsy/pkg/metrics"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/producer"
)

// mockPublisher records published batches.
type mockPublisher struct {
	Batches    [][]producer.Envelope
	PublishErr error
}

func (m *mockPublisher) Publish(ctx context.Context, env producer.Envelope) error {
	return m.PublishBatch(ctx, []producer.Envelope{env})
}

func (m *mockPublisher) PublishBatch(ctx context.Context, envs []producer.Envelope) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Batches = append(m.Batches, envs)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// mockPipelineMetrics counts pipeline metric calls.
type mockPipelineMetrics struct {
	Received  int
	Published int
	Errors    int
	Custom    map[string]int
}

func (m *mockPipelineMetrics) RecordReceived()  { m.Received++ }
func (m *mockPipelineMetrics) RecordPublished() { m.Published++ }
func (m *mockPipelineMetrics) RecordError()     { m.Errors++ }
func (m *mockPipelineMetrics) IncrementCustom(name string) {
	if m.Custom == nil {
		m.Custom = make(map[string]int)
	}
	m.Custom[name]++
}

// mockMetricsReader returns fixed snapshots.
type mockMetricsReader struct {
	Snapshots map[string]*metrics.Snapshot
	Err       error
}

func (m *mockMetricsReader) Service(ctx context.Context, name string) (*metrics.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.Snapshots[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w %q", metrics.ErrNotFound, name)
}

func (m *mockMetricsReader) All(ctx context.Context) (map[string]*metrics.Snapshot, error) {
	return m.Snapshots, m.Err
}
