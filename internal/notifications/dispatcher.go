package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultTimeout = 10 * time.Second

// Sink delivers a placed order to one operator channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, order *orders.Order) error
}

type DispatcherParams struct {
	Sinks   []Sink
	Timeout time.Duration
	Logger  *logger.Logger
	Metrics *metrics.ConversationMetrics
}

// Dispatcher fans an order out to every sink. Failures are logged and counted
// but never reported back to the customer.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.ConversationMetrics
}

func NewDispatcher(params DispatcherParams) *Dispatcher {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	sinks := make([]Sink, 0, len(params.Sinks))
	for _, sink := range params.Sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logg:    logg,
		metrics: params.Metrics,
	}
}

// NotifyOrder delivers to all sinks concurrently, each bounded by the dispatcher timeout.
// The returned error combines every sink failure.
func (d *Dispatcher) NotifyOrder(ctx context.Context, order *orders.Order) error {
	if d == nil || len(d.sinks) == 0 || order == nil {
		return nil
	}
	ctx = d.logg.WithOrderID(ctx, order.ID)

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := sink.Deliver(sinkCtx, order)
			logCtx := d.logg.WithField(ctx, "sink", sink.Name())
			if err != nil {
				d.metrics.IncNotifyFailure(sink.Name())
				d.logg.Error(logCtx, "operator notification failed", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return
			}
			d.logg.Info(logCtx, "operator notified")
		}(sink)
	}
	wg.Wait()
	return errs
}
