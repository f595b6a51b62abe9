package events

import (
	"encoding/json"
	"time"
)

const TopicStoreEvents = "store.events"

// Envelope is the Kafka wire format (v1) of a mirrored bus event.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    Type            `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// Partition key = event type, so per-type ordering holds inside a partition.
func PartitionKey(t Type) []byte { return []byte(t) }
