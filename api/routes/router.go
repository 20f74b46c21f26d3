package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/menubot/api/controllers"
	"github.com/angelmondragon/menubot/api/middleware"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/angelmondragon/menubot/pkg/enums"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/redis"
	"github.com/angelmondragon/menubot/pkg/telegram"
)

type ActionHandler interface {
	Handle(ctx context.Context, action conversation.Action) conversation.Reply
}

type CatalogService interface {
	Current() *catalog.Snapshot
	Loaded() bool
	Reload(ctx context.Context) (catalog.ReloadResult, error)
}

type OrderRegistry interface {
	Get(id int64) (*orders.Order, error)
	List(filter orders.Filter) []*orders.Order
	SetStatus(id int64, status enums.OrderStatus) (*orders.Order, error)
}

type UpdateAcceptor interface {
	Accept(ctx context.Context, update telegram.Update) error
}

type RateStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.Window, error)
}

// Dependencies wires the HTTP surface. Updates, RateStore and Gatherer are
// optional; a nil Updates leaves the webhook unmounted.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Engine    ActionHandler
	Catalog   CatalogService
	Orders    OrderRegistry
	Operators middleware.OperatorDirectory
	Updates   UpdateAcceptor
	RateStore RateStore
	Pingers   map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Catalog, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Updates != nil {
		r.With(middleware.TelegramSecret(cfg.Bot.WebhookSecret, logg)).
			Post("/webhooks/telegram", controllers.TelegramWebhook(deps.Updates, logg))
	}

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.Redis.RateLimitWindow, cfg.Redis.APIRateLimit)
	requireOperator := middleware.RequireOperator(deps.Operators, cfg.Operators.APIToken, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.CORS(cfg.App.CORSOrigins),
			middleware.RateLimit(apiPolicy, deps.RateStore, logg),
		)

		r.Post("/actions", controllers.PostAction(deps.Engine, logg))
		r.Get("/catalog", controllers.CatalogTree(deps.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireOperator)
			r.Post("/catalog/reload", controllers.CatalogReload(deps.Catalog, logg))
			r.Get("/orders", controllers.ListOrders(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/orders/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
		})
	})

	return r
}
