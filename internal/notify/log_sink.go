package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes events to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs every event at info level.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger()}
}

// Emit implements Sink.
func (s *LogSink) Emit(_ context.Context, event Event) error {
	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("user_id", event.UserID.String()).
		Str("order_id", event.OrderID.String()).
		Str("order_number", event.OrderNumber).
		Fields(event.Payload).
		Time("occurred_at", event.OccurredAt).
		Msg("order event")
	return nil
}
