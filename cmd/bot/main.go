package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/menubot/api/controllers"
	"github.com/angelmondragon/menubot/api/routes"
	"github.com/angelmondragon/menubot/internal/bot"
	"github.com/angelmondragon/menubot/internal/cart"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/internal/cron"
	"github.com/angelmondragon/menubot/internal/notifications"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/angelmondragon/menubot/pkg/instance"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"github.com/angelmondragon/menubot/pkg/money"
	"github.com/angelmondragon/menubot/pkg/pubsub"
	"github.com/angelmondragon/menubot/pkg/redis"
	"github.com/angelmondragon/menubot/pkg/sanity"
	"github.com/angelmondragon/menubot/pkg/telegram"
)

const (
	serviceName     = "menubot"
	shutdownTimeout = 20 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "menubot stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	catalogMetrics := metrics.NewCatalogMetrics(registry)
	conversationMetrics := metrics.NewConversationMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	pingers := map[string]controllers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisClient = client
		pingers["redis"] = client
		logg.Info(ctx, "redis connected")
	}

	tg, err := telegram.NewClient(cfg.Bot.Token,
		telegram.WithBaseURL(cfg.Bot.APIBaseURL),
		telegram.WithRequestTimeout(cfg.Bot.RequestTimeout),
	)
	if err != nil {
		return err
	}

	cms, err := sanity.NewClient(cfg.Catalog.ProjectID,
		sanity.WithDataset(cfg.Catalog.Dataset),
		sanity.WithAPIVersion(cfg.Catalog.APIVersion),
		sanity.WithToken(cfg.Catalog.Token),
	)
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Source:       catalog.NewSanitySource(cms, cfg.Display.MinorUnits),
		Logger:       logg,
		Metrics:      catalogMetrics,
		Locale:       cfg.Catalog.Locale,
		FetchTimeout: cfg.Catalog.FetchTimeout,
	})
	if err != nil {
		return err
	}
	if _, err := catalogService.Reload(ctx); err != nil {
		// the engine retries on the first /start
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial catalog load failed")
	}

	carts, err := cart.NewStore(catalogService)
	if err != nil {
		return err
	}
	registryOrders := orders.NewRegistry(nil)
	moneyFormatter := money.NewFormatter(cfg.Display.CurrencySymbol, cfg.Display.MinorUnits)
	orderFormatter := orders.NewFormatter(moneyFormatter, cfg.Display.Location())

	sinks := []notifications.Sink{notifications.NewTelegramSink(tg, cfg.Operators.IDs, orderFormatter)}
	if cfg.PubSub.Enabled() {
		ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := ps.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sink, err := notifications.NewPubSubSink(ps.Orders())
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
		pingers["pubsub"] = ps
	}
	dispatcher := notifications.NewDispatcher(notifications.DispatcherParams{
		Sinks:   sinks,
		Timeout: cfg.Operators.NotifyTimeout,
		Logger:  logg,
		Metrics: conversationMetrics,
	})

	sessions := conversation.NewSessionStore()
	engine, err := conversation.NewEngine(conversation.EngineParams{
		Catalog:        catalogService,
		Carts:          carts,
		Orders:         registryOrders,
		Notifier:       dispatcher,
		Operators:      cfg.Operators,
		Sessions:       sessions,
		Money:          moneyFormatter,
		OrderFormatter: &orderFormatter,
		Logger:         logg,
		Metrics:        conversationMetrics,
	})
	if err != nil {
		return err
	}

	botParams := bot.Params{
		Handler:     engine,
		API:         tg,
		Logger:      logg,
		PollTimeout: cfg.Bot.PollTimeout,
	}
	if redisClient != nil {
		botParams.Deduper = bot.NewRedisDeduper(redisClient, cfg.Redis.UpdateDedupeTTL)
		botParams.Limiter = bot.NewRedisLimiter(redisClient, cfg.Redis.RateLimitActions, cfg.Redis.RateLimitWindow)
	}
	telegramBot, err := bot.New(botParams)
	if err != nil {
		return err
	}

	deps := routes.Dependencies{
		Config:    cfg,
		Logger:    logg,
		Engine:    engine,
		Catalog:   catalogService,
		Orders:    registryOrders,
		Operators: cfg.Operators,
		Pingers:   pingers,
		Gatherer:  registry,
	}
	if cfg.Bot.IsWebhook() {
		deps.Updates = telegramBot
	}
	if redisClient != nil {
		deps.RateStore = redisClient
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler, err := buildScheduler(cfg, logg, redisClient, jobMetrics, catalogService, sessions)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithFields(gctx, map[string]any{
			"addr":     addr,
			"env":      cfg.App.Env,
			"mode":     cfg.Bot.Mode,
		}), "starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if !cfg.Bot.IsWebhook() {
		g.Go(func() error {
			err := telegramBot.Poll(gctx)
			if errors.Is(err, bot.ErrClosed) {
				return nil
			}
			return ignoreCanceled(err)
		})
	}
	g.Go(func() error {
		return ignoreCanceled(scheduler.Run(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(shutdownCtx, "shutting down")
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			telegramBot.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func buildScheduler(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	jobMetrics *metrics.JobMetrics,
	catalogService *catalog.Service,
	sessions *conversation.SessionStore,
) (*cron.Service, error) {
	registry := cron.NewRegistry()

	if cfg.Catalog.RefreshInterval > 0 {
		refresh := cron.Schedule{Job: catalog.NewRefreshJob(catalogService), Every: cfg.Catalog.RefreshInterval}
		if redisClient != nil {
			lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(refresh.Job.Name()), cfg.Catalog.RefreshInterval)
			if err != nil {
				return nil, err
			}
			refresh.Lock = lock
		}
		if err := registry.Add(refresh); err != nil {
			return nil, err
		}
	}

	if cfg.Sessions.IdleTTL > 0 {
		sweep, err := conversation.NewSessionSweepJob(sessions, cfg.Sessions.IdleTTL, logg)
		if err != nil {
			return nil, err
		}
		if err := registry.Add(cron.Schedule{Job: sweep, Every: cfg.Sessions.SweepInterval}); err != nil {
			return nil, err
		}
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  jobMetrics,
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
