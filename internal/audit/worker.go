package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and forwards them to a sink.
// It keeps slow sinks like Kafka off the request path.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run forwards events until ctx is done or inbox is closed. Sink failures are
// logged and the event is dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit event dropped",
					"action", string(event.Action),
					"node_id", event.NodeID,
					"error", err,
				)
			}
		}
	}
}
