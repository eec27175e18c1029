package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/service-desk/internal/api/http"
	"github.com/spec-kit/service-desk/internal/api/http/handlers"
	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/notify"
	"github.com/spec-kit/service-desk/internal/observability"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/service"
	"github.com/spec-kit/service-desk/internal/sla"
	"github.com/spec-kit/service-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	st := newStores(pg, redis, cfg.Conversation.StateTTL(), logger)

	provider := catalog.NewProvider(st.catalog, logger.Named("catalog"))
	if _, err := provider.Reload(ctx); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewAsyncDispatcher(logger.Named("events"), cfg.Notification.QueueSize, cfg.Notification.Workers)
	dispatcher.OnDrop(func(events.Event) { metrics.RecordDroppedEvent() })

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     st.tickets,
		HistoryRepo:    st.history,
		GuestRepo:      st.guests,
		Transactor:     st.tx,
		Catalog:        provider,
		Resolver:       sla.NewResolver(cfg.SLA.Fallback),
		Dispatcher:     dispatcher,
		Logger:         logger.Named("tickets"),
		SweepBatchSize: cfg.Sweep.BatchSize,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		Tickets:       tickets,
		UnmatchedRepo: st.unmatched,
		GuestRepo:     st.guests,
		Catalog:       provider,
		MinConfidence: cfg.Classifier.MinConfidence,
		Dispatcher:    dispatcher,
		Logger:        logger.Named("intake"),
	})
	unmatched := service.NewUnmatchedService(service.UnmatchedDependencies{
		UnmatchedRepo: st.unmatched,
		Tickets:       tickets,
		Transactor:    st.tx,
		Logger:        logger.Named("unmatched"),
	})
	conversations := service.NewConversationService(service.ConversationDependencies{
		Store:        st.conversations,
		Intake:       intake,
		Channel:      outboundChannel(cfg.Notification, logger),
		FeedbackRepo: st.feedback,
		GuestRepo:    st.guests,
		Catalog:      provider,
		Config:       cfg.Conversation,
		Logger:       logger.Named("conversation"),
	})
	notifications := service.NewNotificationService(dispatcher, notificationSink(cfg.Notification, redis, logger), logger.Named("notify"), metrics)

	var sweepLock worker.Locker
	if redis.Enabled() {
		sweepLock = persistence.NewRedisLock(redis.Client, cfg.Sweep.LockKey, cfg.Sweep.Timeout()+5*time.Second)
	}
	sweeper := worker.NewBreachSweeper(tickets, sweepLock, cfg.Sweep, logger.Named("sweeper"), metrics)
	refresher := worker.NewCatalogRefresher(provider, redis.Client, cfg.Catalog.Channel, cfg.Catalog.RefreshInterval(), logger.Named("catalog"))

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger.Named("http"), metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:    handlers.NewTicketsHandler(tickets),
		Intake:     handlers.NewIntakeHandler(intake, conversations),
		Unmatched:  handlers.NewUnmatchedHandler(unmatched),
		Operations: handlers.NewOperationsHandler(sweeper, refresher, metrics),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error {
		return worker.StartNotificationWorker(gctx, notifications, dispatcher)
	})
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	if cfg.Sweep.Enabled {
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
	} else {
		logger.Warn("breach sweeper disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func notificationSink(cfg config.NotificationConfig, redis *persistence.Redis, logger *zap.Logger) notify.Sink {
	sinks := notify.MultiSink{notify.NewLogSink(logger.Named("notify"))}
	timeout := time.Duration(cfg.WebhookTimeoutSeconds) * time.Second
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookURL, timeout))
	}
	if redis.Enabled() && cfg.RedisChannel != "" {
		sinks = append(sinks, notify.NewRedisSink(redis.Client, cfg.RedisChannel))
	}
	return sinks
}

func outboundChannel(cfg config.NotificationConfig, logger *zap.Logger) notify.Channel {
	if cfg.OutboundWebhookURL == "" {
		logger.Warn("OUTBOUND_WEBHOOK_URL not provided; guest replies are only logged")
		return notify.NewLogChannel(logger.Named("outbound"))
	}
	return notify.NewWebhookChannel(cfg.OutboundWebhookURL, time.Duration(cfg.WebhookTimeoutSeconds)*time.Second)
}
