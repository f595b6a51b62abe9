package events

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the async producer side used by KafkaSink.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// KafkaSink mirrors bus events into Kafka for downstream consumers (stats).
type KafkaSink struct {
	Producer Publisher
	Service  string
}

func (s *KafkaSink) Consume(_ context.Context, e Event) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	b, err := json.Marshal(Envelope{
		EventID:      e.ID,
		EventType:    e.Type,
		EventVersion: 1,
		OccurredAt:   e.OccurredAt,
		Producer:     s.Service,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	ok := s.Producer.Publish(PartitionKey(e.Type), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(e.Type)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if !ok {
		return fmt.Errorf("producer inbox full, %s dropped", e.Type)
	}
	return nil
}
