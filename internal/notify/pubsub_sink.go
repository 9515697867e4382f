package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
)

// PubSubSink publishes events as JSON messages to a Pub/Sub topic.
type PubSubSink struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubSink constructs a Pub/Sub backed sink.
func NewPubSubSink(topic *pubsub.Topic) (*PubSubSink, error) {
	if topic == nil {
		return nil, errors.New("pubsub sink: topic is required")
	}
	return &PubSubSink{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Emit implements Sink and waits for the server to acknowledge the publish.
func (s *PubSubSink) Emit(ctx context.Context, event Event) error {
	data, err := s.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := map[string]string{
		"eventId": event.ID,
		"type":    string(event.Type),
	}
	if event.UserID != uuid.Nil {
		attrs["userId"] = event.UserID.String()
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}
