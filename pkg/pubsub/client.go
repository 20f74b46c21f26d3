package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/angelmondragon/menubot/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Orders are published one at a time and awaited, so batching only adds latency.
const (
	orderBatchDelay = 10 * time.Millisecond
	orderBatchCount = 1
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the order events publisher.
type Client struct {
	client *pubsub.Client
	topic  string
	orders *pubsub.Publisher
}

// NewClient connects, verifies the orders topic exists and prepares its publisher.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := topicResourceName(project, cfg.OrdersTopic)
	if topic == "" {
		return nil, errNoTopic
	}

	psClient, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	c.orders = psClient.Publisher(topic)
	c.orders.PublishSettings.DelayThreshold = orderBatchDelay
	c.orders.PublishSettings.CountThreshold = orderBatchCount

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	}
	return c, nil
}

// Orders returns the publisher for order events, nil before NewClient succeeds.
func (c *Client) Orders() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.orders
}

// Ping checks that the orders topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %s does not exist", c.topic)
		}
		return fmt.Errorf("checking topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.orders != nil {
		c.orders.Stop()
	}
	return c.client.Close()
}

// topicResourceName accepts a bare topic id or a full resource name.
func topicResourceName(project, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", project, n)
}
