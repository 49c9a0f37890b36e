package processor

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/services/alerter/internal/identity"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
)

// FakeReader is a test fake for MessageReader. Once Messages are exhausted it
// calls Cancel, if set, and reports context.Canceled.
type FakeReader struct {
	Messages  []kafka.Message
	CommitErr error
	Cancel    context.CancelFunc
	ReadIndex int
	Committed []kafka.Message
}

func (f *FakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
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

// FakeRedis serves the subscriber key. GetFunc, when set, overrides Value.
type FakeRedis struct {
	Value    *string
	GetFunc  func(call int) (string, error)
	GetCalls int
}

func (f *FakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.GetCalls++
	if f.GetFunc != nil {
		return redis.NewStringResult(f.GetFunc(f.GetCalls))
	}
	if f.Value == nil {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(*f.Value, nil)
}

func (f *FakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

// FakeDispatcher records alerts. ErrFunc decides the result of each call.
type FakeDispatcher struct {
	mu           sync.Mutex
	Alerts       []notifier.Alert
	ErrFunc      func(call int) error
	Calls        int
	ContextAlive []bool
}

func (f *FakeDispatcher) Dispatch(ctx context.Context, alert notifier.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.ContextAlive = append(f.ContextAlive, ctx.Err() == nil)
	if f.ErrFunc != nil {
		if err := f.ErrFunc(f.Calls); err != nil {
			return err
		}
	}
	f.Alerts = append(f.Alerts, alert)
	return nil
}

type fakeIdentity struct {
	id identity.Identity
	ok bool
}

func (f fakeIdentity) Cached() (identity.Identity, bool) { return f.id, f.ok }

// FakeMetrics is a test fake for MetricsRecorder that tracks calls.
type FakeMetrics struct {
	ReceivedCount    int
	ProcessedCount   int
	PublishedCount   int
	ErrorCount       int
	CustomIncrements map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{CustomIncrements: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived()                 { f.ReceivedCount++ }
func (f *FakeMetrics) RecordProcessed(_ time.Duration) { f.ProcessedCount++ }
func (f *FakeMetrics) RecordPublished()                { f.PublishedCount++ }
func (f *FakeMetrics) RecordError()                    { f.ErrorCount++ }
func (f *FakeMetrics) IncrementCustom(name string)     { f.CustomIncrements[name]++ }

// FakeSMTPServer accepts any number of sessions and answers RCPT for the
// addresses in Reject with a 550.
type FakeSMTPServer struct {
	Reject map[string]bool

	ln        net.Listener
	mu        sync.Mutex
	sessions  int
	delivered []string
}

func NewFakeSMTPServer(t *testing.T, reject ...string) *FakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FakeSMTPServer{Reject: make(map[string]bool), ln: ln}
	for _, r := range reject {
		s.Reject[r] = true
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.session(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *FakeSMTPServer) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Stats returns the session count and every recipient that received mail.
func (s *FakeSMTPServer) Stats() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions, append([]string(nil), s.delivered...)
}

func (s *FakeSMTPServer) session(conn net.Conn) {
	defer conn.Close()
	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	r := bufio.NewReader(conn)
	reply := func(line string) { conn.Write([]byte(line + "\r\n")) }
	reply("220 localhost ESMTP")

	var rcpts []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			rcpt := strings.Trim(strings.TrimSpace(line)[len("RCPT TO:"):], "<>")
			if s.Reject[rcpt] {
				reply("550 5.1.1 User unknown")
				continue
			}
			rcpts = append(rcpts, rcpt)
			reply("250 OK")
		case cmd == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
			}
			s.mu.Lock()
			s.delivered = append(s.delivered, rcpts...)
			s.mu.Unlock()
			rcpts = nil
			reply("250 OK queued")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}
