package processor

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// FakeReader is a test fake for MessageReader. Once Messages are exhausted it
// calls Cancel, if set, and reports context.Canceled.
type FakeReader struct {
	Messages   []kafka.Message
	FetchErr   error
	CommitErr  error
	Cancel     context.CancelFunc
	ReadIndex  int
	Committed  []kafka.Message
	FetchCalls int
}

func (f *FakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.FetchCalls++
	if f.FetchErr != nil {
		return kafka.Message{}, f.FetchErr
	}
	if f.ReadIndex >= len(f.Messages) {
		if f.Cancel != nil {
			f.Cancel()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return msg, nil
}

func (f *FakeReader) CommitMessage(ctx context.Context, msg kafka.Message) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = append(f.Committed, msg)
	return nil
}

func (f *FakeReader) Close() error {
	return nil
}

// FakeStorage is a test fake for LogStorage.
type FakeStorage struct {
	Inserted     []*events.LogEvent
	Idempotent   []*events.LogEvent
	NextID       int64
	InsertErr    error
	InsertFunc   func(call int, e *events.LogEvent) error
	Duplicate    bool
	InsertCalls  int
	ContextAlive []bool
}

func (f *FakeStorage) insert(ctx context.Context, e *events.LogEvent) error {
	f.InsertCalls++
	f.ContextAlive = append(f.ContextAlive, ctx.Err() == nil)
	if f.InsertFunc != nil {
		return f.InsertFunc(f.InsertCalls, e)
	}
	return f.InsertErr
}

func (f *FakeStorage) InsertLog(ctx context.Context, e *events.LogEvent) (int64, error) {
	if err := f.insert(ctx, e); err != nil {
		return 0, err
	}
	f.NextID++
	f.Inserted = append(f.Inserted, e)
	return f.NextID, nil
}

func (f *FakeStorage) InsertLogIdempotent(ctx context.Context, e *events.LogEvent) (*int64, error) {
	if err := f.insert(ctx, e); err != nil {
		return nil, err
	}
	if f.Duplicate {
		return nil, nil
	}
	f.NextID++
	f.Idempotent = append(f.Idempotent, e)
	id := f.NextID
	return &id, nil
}

// FakeMetrics is a test fake for MetricsRecorder that tracks calls.
type FakeMetrics struct {
	ReceivedCount    int
	ProcessedCount   int
	ErrorCount       int
	CustomIncrements map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{CustomIncrements: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived()                 { f.ReceivedCount++ }
func (f *FakeMetrics) RecordProcessed(_ time.Duration) { f.ProcessedCount++ }
func (f *FakeMetrics) RecordError()                    { f.ErrorCount++ }
func (f *FakeMetrics) IncrementCustom(name string)     { f.CustomIncrements[name]++ }
