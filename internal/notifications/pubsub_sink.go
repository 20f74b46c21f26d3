package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/google/uuid"
)

const (
	EventOrderCreated    = "order.created"
	eventEnvelopeVersion = 1
)

// Envelope wraps an event payload published to the orders topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// PubSubSink publishes an order.created event for downstream consumers.
type PubSubSink struct {
	publisher publisher
	clock     func() time.Time
	newID     func() string
}

// NewPubSubSink wraps a Pub/Sub publisher.
func NewPubSubSink(p *gcppubsub.Publisher) (*PubSubSink, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubSink(&gcpPublisher{Publisher: p}), nil
}

func newPubSubSink(p publisher) *PubSubSink {
	return &PubSubSink{
		publisher: p,
		clock:     func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, order *orders.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	envelope := Envelope{
		Version:    eventEnvelopeVersion,
		EventID:    s.newID(),
		EventType:  EventOrderCreated,
		OccurredAt: s.clock(),
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": EventOrderCreated,
			"order_id":   strconv.FormatInt(order.ID, 10),
			"created_at": order.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	result := s.publisher.Publish(ctx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
