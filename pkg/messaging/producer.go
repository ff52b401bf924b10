package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"venuepass/pkg/logger"

	"github.com/IBM/sarama"
)

// Config contains the settings for the Kafka producer
type Config struct {
	Brokers        []string
	ClientID       string
	MaxRetries     int
	RequestTimeout time.Duration
}

// Message is one keyed record. Records with the same key land on the same partition.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// BatchError lists the keys of messages the broker did not acknowledge
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Error() string {
	keys := e.FailedKeys()
	return fmt.Sprintf("%d message(s) not delivered: %s", len(keys), strings.Join(keys, ", "))
}

// FailedKeys returns the undelivered keys in sorted order
func (e *BatchError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Producer publishes records synchronously so callers know what was acknowledged
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewSaramaConfig returns the producer settings: idempotent writes, acks from
// all in-sync replicas and hash partitioning on the record key.
func NewSaramaConfig(cfg Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	if cfg.ClientID != "" {
		saramaConfig.ClientID = cfg.ClientID
	}

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	if cfg.MaxRetries > 0 {
		saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	}
	if cfg.RequestTimeout > 0 {
		saramaConfig.Producer.Timeout = cfg.RequestTimeout
	}
	return saramaConfig
}

// NewProducer connects to the brokers
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewProducerWith(producer), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(producer sarama.SyncProducer) *Producer {
	return &Producer{
		producer: producer,
		log:      logger.GetDefault(),
	}
}

// Publish sends a single record and waits for the acknowledgement
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(topic, Message{Key: key, Value: value})
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.log.DebugContext(ctx, "Message published",
		"topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

// PublishBatch sends all records in one call. When only some are rejected the
// error is a *BatchError naming them; the rest were delivered.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, m := range messages {
		batch = append(batch, buildMessage(topic, m))
	}

	err := p.producer.SendMessages(batch)
	if err == nil {
		p.log.DebugContext(ctx, "Batch published", "topic", topic, "count", len(batch))
		return nil
	}

	var producerErrs sarama.ProducerErrors
	if !errors.As(err, &producerErrs) {
		// nothing is known to have been delivered
		failed := make(map[string]error, len(messages))
		for _, m := range messages {
			failed[m.Key] = err
		}
		return &BatchError{Failed: failed}
	}

	failed := make(map[string]error, len(producerErrs))
	for _, pe := range producerErrs {
		key := ""
		if pe.Msg != nil && pe.Msg.Key != nil {
			if raw, encErr := pe.Msg.Key.Encode(); encErr == nil {
				key = string(raw)
			}
		}
		failed[key] = pe.Err
	}
	return &BatchError{Failed: failed}
}

// Close flushes and closes the underlying producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

func buildMessage(topic string, m Message) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(m.Key),
		Value:     sarama.ByteEncoder(m.Value),
		Timestamp: time.Now(),
	}
	for k, v := range m.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}
	return msg
}
