package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "menubot"

// CatalogMetrics tracks catalog rebuilds.
type CatalogMetrics struct {
	duration   prometheus.Histogram
	reloads    *prometheus.CounterVec
	categories prometheus.Gauge
	products   prometheus.Gauge
}

// NewCatalogMetrics registers catalog collectors on reg. A nil registerer yields a no-op value.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	m := &CatalogMetrics{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_reload_duration_seconds",
			Help:      "Duration of catalog fetch and rebuild.",
			Buckets:   prometheus.DefBuckets,
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalog reload attempts by outcome.",
		}, []string{"outcome"}),
		categories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_categories",
			Help:      "Categories in the live catalog.",
		}),
		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Products in the live catalog.",
		}),
	}
	reg.MustRegister(m.duration, m.reloads, m.categories, m.products)
	return m
}

// ObserveReload records one reload attempt.
func (m *CatalogMetrics) ObserveReload(duration time.Duration, err error) {
	if m == nil || m.reloads == nil {
		return
	}
	m.duration.Observe(duration.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.reloads.WithLabelValues(outcome).Inc()
}

// SetSize publishes the size of the live catalog.
func (m *CatalogMetrics) SetSize(categories, products int) {
	if m == nil || m.categories == nil {
		return
	}
	m.categories.Set(float64(categories))
	m.products.Set(float64(products))
}

// ConversationMetrics tracks inbound actions and orders.
type ConversationMetrics struct {
	actions       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	orders        prometheus.Counter
	notifyFailure *prometheus.CounterVec
}

// NewConversationMetrics registers conversation collectors on reg.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	if reg == nil {
		return &ConversationMetrics{}
	}
	m := &ConversationMetrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Inbound user actions by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Actions answered with an error notice, by error code.",
		}, []string{"code"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created at checkout.",
		}),
		notifyFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operator_notify_failures_total",
			Help:      "Failed operator notification deliveries by sink.",
		}, []string{"sink"}),
	}
	reg.MustRegister(m.actions, m.rejected, m.orders, m.notifyFailure)
	return m
}

// IncAction counts an inbound action of the given kind.
func (m *ConversationMetrics) IncAction(kind string) {
	if m == nil || m.actions == nil {
		return
	}
	m.actions.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncRejected counts an action answered with an error code.
func (m *ConversationMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncOrders counts a created order.
func (m *ConversationMetrics) IncOrders() {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Inc()
}

// IncNotifyFailure counts a failed delivery to sink.
func (m *ConversationMetrics) IncNotifyFailure(sink string) {
	if m == nil || m.notifyFailure == nil {
		return
	}
	m.notifyFailure.WithLabelValues(normalizeLabel(sink)).Inc()
}
