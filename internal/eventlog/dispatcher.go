package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/threadline/stylist/internal/common"
)

// Sink accepts events. Failures are the dispatcher's problem to log, never
// the caller's.
type Sink interface {
	Record(ctx context.Context, ev *Event) error
}

// RepoSink writes events straight into the database.
type RepoSink struct {
	Repo *Repo
}

func (s RepoSink) Record(ctx context.Context, ev *Event) error {
	return s.Repo.Insert(ctx, ev)
}

// Dispatcher decouples event-log I/O from the chat path. Record never blocks:
// events go through a buffered channel drained by one background goroutine,
// and are dropped with a warning when the buffer is full. Close drains what
// was accepted.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	ch      chan *Event
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
}

func NewDispatcher(sink Sink, logger *slog.Logger, buffer int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sink:    sink,
		logger:  logger,
		ch:      make(chan *Event, buffer),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Record(ctx, ev); err != nil {
			d.logger.Warn("event log write failed",
				"user_id", ev.UserID, "channel", ev.Channel, "err", err)
		}
		cancel()
	}
}

// Record implements session.Recorder.
func (d *Dispatcher) Record(userID, role, content, channel string, ts time.Time) {
	id, err := common.NewULID()
	if err != nil {
		d.logger.Warn("event id generation failed", "err", err)
		return
	}
	ev := &Event{
		ID:        id,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Channel:   channel,
		CreatedAt: ts,
	}
	select {
	case d.ch <- ev:
	default:
		d.logger.Warn("event log buffer full, dropping event",
			"user_id", userID, "channel", channel)
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.ch) })
	<-d.done
}
