package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/enums"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"github.com/angelmondragon/menubot/pkg/money"
	"github.com/angelmondragon/menubot/pkg/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func testOrder() *orders.Order {
	return &orders.Order{
		ID:          3,
		UserID:      42,
		Username:    "ann",
		DisplayName: "Ann",
		Phone:       orders.NotProvided,
		Items:       []orders.Item{{Slug: "cal1", Name: "California", Quantity: 2, LineTotal: 640}},
		TotalSum:    640,
		CreatedAt:   time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		Status:      enums.OrderStatusNew,
	}
}

type funcSink struct {
	name string
	fn   func(ctx context.Context) error
}

func (s funcSink) Name() string { return s.name }

func (s funcSink) Deliver(ctx context.Context, _ *orders.Order) error { return s.fn(ctx) }

func TestDispatcherWithoutSinksIsNoop(t *testing.T) {
	d := NewDispatcher(DispatcherParams{})
	require.NoError(t, d.NotifyOrder(context.Background(), testOrder()))

	var nilDispatcher *Dispatcher
	require.NoError(t, nilDispatcher.NotifyOrder(context.Background(), testOrder()))
}

func TestDispatcherCombinesFailuresAndCountsThem(t *testing.T) {
	reg := prometheus.NewRegistry()
	var delivered sync.WaitGroup
	delivered.Add(1)
	d := NewDispatcher(DispatcherParams{
		Metrics: metrics.NewConversationMetrics(reg),
		Sinks: []Sink{
			funcSink{name: "ok", fn: func(context.Context) error { delivered.Done(); return nil }},
			funcSink{name: "broken", fn: func(context.Context) error { return errors.New("boom") }},
			nil,
		},
	})

	err := d.NotifyOrder(context.Background(), testOrder())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	delivered.Wait()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "menubot_operator_notify_failures_total" {
			found = true
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestDispatcherBoundsSlowSinks(t *testing.T) {
	d := NewDispatcher(DispatcherParams{
		Timeout: 20 * time.Millisecond,
		Sinks: []Sink{funcSink{name: "slow", fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}},
	})

	start := time.Now()
	err := d.NotifyOrder(context.Background(), testOrder())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []telegram.SendMessageRequest
	fail map[int64]bool
}

func (f *fakeSender) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[req.ChatID] {
		return nil, errors.New("chat not found")
	}
	f.sent = append(f.sent, req)
	return &telegram.Message{MessageID: int64(len(f.sent))}, nil
}

func TestTelegramSinkSendsToEveryOperator(t *testing.T) {
	sender := &fakeSender{fail: map[int64]bool{200: true}}
	sink := NewTelegramSink(sender, []int64{100, 200, 300}, orders.NewFormatter(money.NewFormatter("₽", 0), nil))

	err := sink.Deliver(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator 200")

	require.Len(t, sender.sent, 2)
	assert.EqualValues(t, 100, sender.sent[0].ChatID)
	assert.EqualValues(t, 300, sender.sent[1].ChatID)
	assert.Contains(t, sender.sent[0].Text, "🆕 New order #3")
	assert.Contains(t, sender.sent[0].Text, "California x2 = 640₽")
}

type flakySender struct {
	failures int
	err      error
	calls    int
}

func (f *flakySender) SendMessage(context.Context, telegram.SendMessageRequest) (*telegram.Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &telegram.Message{MessageID: 1}, nil
}

func TestTelegramSinkRetriesTransientFailureOnce(t *testing.T) {
	throttled := pkgerrors.Wrap(pkgerrors.CodeRateLimit, &telegram.APIError{Code: 429, RetryAfter: 2 * time.Second}, "sendMessage throttled")
	sender := &flakySender{failures: 1, err: throttled}
	sink := NewTelegramSink(sender, []int64{100}, orders.NewFormatter(money.NewFormatter("₽", 0), nil))
	var slept []time.Duration
	sink.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, sink.Deliver(context.Background(), testOrder()))
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)

	sender = &flakySender{failures: 5, err: throttled}
	sink.sender = sender
	require.Error(t, sink.Deliver(context.Background(), testOrder()))
	assert.Equal(t, 2, sender.calls, "only one retry")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sender = &flakySender{failures: 1, err: throttled}
	sink.sender = sender
	require.Error(t, sink.Deliver(ctx, testOrder()))
	assert.Equal(t, 1, sender.calls, "no retry when the delay outlives the deadline")

	permanent := pkgerrors.Wrap(pkgerrors.CodeDependency, &telegram.APIError{Code: 403}, "sendMessage rejected").Permanent()
	sender = &flakySender{failures: 1, err: permanent}
	sink.sender = sender
	require.Error(t, sink.Deliver(context.Background(), testOrder()))
	assert.Equal(t, 1, sender.calls)
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	result   publishResult
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return f.result
}

type fakePublishResult struct {
	id  string
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) { return r.id, r.err }

func TestPubSubSinkPublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{result: fakePublishResult{id: "server-1"}}
	sink := newPubSubSink(pub)
	sink.newID = func() string { return "evt-1" }
	sink.clock = func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, sink.Deliver(context.Background(), testOrder()))
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])
	assert.Equal(t, EventOrderCreated, msg.Attributes["event_type"])
	assert.Equal(t, "3", msg.Attributes["order_id"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, EventOrderCreated, env.EventType)

	var order orders.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.EqualValues(t, 640, order.TotalSum)
	assert.Equal(t, enums.OrderStatusNew, order.Status)
}

func TestPubSubSinkSurfacesPublishErrors(t *testing.T) {
	sink := newPubSubSink(&fakePublisher{result: fakePublishResult{err: errors.New("unavailable")}})
	err := sink.Deliver(context.Background(), testOrder())
	require.Error(t, err)

	sink = newPubSubSink(&fakePublisher{})
	require.Error(t, sink.Deliver(context.Background(), testOrder()))

	_, err = NewPubSubSink(nil)
	require.Error(t, err)
}
