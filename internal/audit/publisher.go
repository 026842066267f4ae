package audit

import (
	"context"
	"time"
)

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and hands
// events to a sink so tests can swap sinks easily.
type Publisher struct {
	sink Sink
	now  func() time.Time
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink, now: time.Now}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	return p.sink.Append(ctx, event)
}
