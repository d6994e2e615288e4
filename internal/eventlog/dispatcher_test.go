package eventlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (s *captureSink) Record(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, nil, 16)

	for i := 0; i < 5; i++ {
		d.Record("u", "user", "hello", "web", time.Now())
	}
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 5 {
		t.Fatalf("expected 5 delivered events, got %d", len(sink.events))
	}
	if sink.events[0].ID == "" || sink.events[0].UserID != "u" {
		t.Fatalf("unexpected event: %+v", sink.events[0])
	}
}

func TestDispatcher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("log down")}
	d := NewDispatcher(sink, nil, 16)

	// must not panic or block the caller
	d.Record("u", "user", "hello", "web", time.Now())
	d.Close()
}

func TestDispatcher_RecordNeverBlocksWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	d := NewDispatcher(sink, nil, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Record("u", "user", "hello", "web", time.Now())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a full buffer")
	}

	close(block)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Record(ctx context.Context, ev *Event) error {
	<-s.release
	return nil
}
