package scans

import (
	"context"
	"encoding/json"
	"errors"

	"venuepass/pkg/messaging"

	"github.com/google/uuid"
)

// BatchPublisher is the part of the messaging producer the remote needs
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []messaging.Message) error
}

// KafkaRemote uploads scans as one message per scan, keyed by scan id so
// redeliveries land on the same partition and can be deduplicated downstream
type KafkaRemote struct {
	publisher BatchPublisher
	topic     string
}

func NewKafkaRemote(publisher BatchPublisher, topic string) *KafkaRemote {
	return &KafkaRemote{publisher: publisher, topic: topic}
}

func (k *KafkaRemote) Submit(ctx context.Context, events []ScanEvent) ([]uuid.UUID, error) {
	messages := make([]messaging.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		messages = append(messages, messaging.Message{
			Key:     ev.ID.String(),
			Value:   value,
			Headers: map[string]string{"device_id": ev.DeviceID, "venue_id": ev.VenueID},
		})
	}

	err := k.publisher.PublishBatch(ctx, k.topic, messages)
	if err == nil {
		confirmed := make([]uuid.UUID, len(events))
		for i, ev := range events {
			confirmed[i] = ev.ID
		}
		return confirmed, nil
	}

	var batchErr *messaging.BatchError
	if !errors.As(err, &batchErr) {
		return nil, err
	}

	confirmed := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		if _, failed := batchErr.Failed[ev.ID.String()]; !failed {
			confirmed = append(confirmed, ev.ID)
		}
	}
	return confirmed, err
}
