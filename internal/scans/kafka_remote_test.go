package scans

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"venuepass/pkg/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBatchPublisher struct {
	PublishBatchFunc func(ctx context.Context, topic string, messages []messaging.Message) error
}

func (m *mockBatchPublisher) PublishBatch(ctx context.Context, topic string, messages []messaging.Message) error {
	return m.PublishBatchFunc(ctx, topic, messages)
}

func TestKafkaRemote_AllDelivered(t *testing.T) {
	events := []ScanEvent{newScan("A"), newScan("B")}
	var sent []messaging.Message
	remote := NewKafkaRemote(&mockBatchPublisher{
		PublishBatchFunc: func(ctx context.Context, topic string, messages []messaging.Message) error {
			assert.Equal(t, "venuepass.scans", topic)
			sent = messages
			return nil
		},
	}, "venuepass.scans")

	confirmed, err := remote.Submit(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, ids(events), confirmed)

	require.Len(t, sent, 2)
	assert.Equal(t, events[0].ID.String(), sent[0].Key)
	assert.Equal(t, "venue-1", sent[0].Headers["venue_id"])

	var decoded ScanEvent
	require.NoError(t, json.Unmarshal(sent[1].Value, &decoded))
	assert.Equal(t, events[1].ID, decoded.ID)
	assert.Equal(t, ResultOfflineQueued, decoded.Result)
}

func TestKafkaRemote_PartialBatch(t *testing.T) {
	events := []ScanEvent{newScan("A"), newScan("B"), newScan("C")}
	remote := NewKafkaRemote(&mockBatchPublisher{
		PublishBatchFunc: func(ctx context.Context, topic string, messages []messaging.Message) error {
			return &messaging.BatchError{Failed: map[string]error{
				events[1].ID.String(): errors.New("not leader"),
			}}
		},
	}, "scans")

	confirmed, err := remote.Submit(context.Background(), events)
	var batchErr *messaging.BatchError
	assert.ErrorAs(t, err, &batchErr)
	assert.Equal(t, []uuid.UUID{events[0].ID, events[2].ID}, confirmed)
}

func TestKafkaRemote_UnknownFailureConfirmsNothing(t *testing.T) {
	remote := NewKafkaRemote(&mockBatchPublisher{
		PublishBatchFunc: func(ctx context.Context, topic string, messages []messaging.Message) error {
			return errors.New("client closed")
		},
	}, "scans")

	confirmed, err := remote.Submit(context.Background(), []ScanEvent{newScan("A")})
	assert.Error(t, err)
	assert.Empty(t, confirmed)
}
