package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "escrowgate/pkg/domain-errors"
	audit "escrowgate/pkg/platform/audit"
)

// Sink is where events end up: the text log, Kafka, or a test recorder.
type Sink interface {
	Write(ctx context.Context, event audit.Event) error
}

// Publisher fans audit events into a Sink, optionally through a bounded
// buffer drained by a background goroutine.
type Publisher struct {
	sink   Sink
	events chan audit.Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

type Option func(*Publisher)

// WithAsyncBuffer queues events and writes them from a background goroutine.
// A full buffer drops the event and returns an error.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Write(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to write audit event",
				"error", err,
				"action", event.Action,
			)
		}
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !p.async {
		return p.sink.Write(ctx, event)
	}
	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped", "action", event.Action)
		}
		return dErrors.New(dErrors.CodeUnavailable, "audit buffer full")
	}
}
