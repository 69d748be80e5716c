package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/redis/go-redis/v9"
)

const (
	TransactionStream    = "checkout:transactions"
	ReconciliationStream = "checkout:reconciliation"

	// streamMaxLen caps each stream with approximate trimming.
	streamMaxLen = 100_000
)

type StreamProducer struct {
	client *redis.Client
}

func NewStreamProducer(client *redis.Client) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishOutboxEntry appends a relayed outbox entry to the transaction
// stream. Consumers deduplicate on outbox_id.
func (p *StreamProducer) PublishOutboxEntry(ctx context.Context, entry *outbox.Entry) error {
	values, err := outboxValues(entry)
	if err != nil {
		return err
	}
	return p.add(ctx, TransactionStream, values)
}

func (p *StreamProducer) add(ctx context.Context, stream string, values map[string]any) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

func outboxValues(entry *outbox.Entry) (map[string]any, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return map[string]any{
		"outbox_id":      entry.ID.String(),
		"aggregate_type": entry.AggregateType,
		"transaction_id": entry.AggregateID.String(),
		"event_type":     entry.EventType,
		"payload":        string(payload),
		"timestamp":      entry.CreatedAt.Unix(),
	}, nil
}

type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

// CreateGroup creates the stream and group, tolerating an existing group.
func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read blocks for up to the block duration and returns new messages for
// this consumer. No messages is not an error.
func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []redis.XMessage
	for _, s := range streams {
		messages = append(messages, s.Messages...)
	}
	return messages, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Stream() string {
	return c.stream
}
