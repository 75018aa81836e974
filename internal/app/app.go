// Package app собирает компоненты сервиса и управляет их жизненным циклом.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/pix-subscription-service/config"
	"github.com/Dhoini/pix-subscription-service/internal/api/rest"
	"github.com/Dhoini/pix-subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/pix-subscription-service/internal/bot"
	"github.com/Dhoini/pix-subscription-service/internal/gateway"
	"github.com/Dhoini/pix-subscription-service/internal/jobs"
	"github.com/Dhoini/pix-subscription-service/internal/kafka"
	"github.com/Dhoini/pix-subscription-service/internal/kafka/producer"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/internal/notify"
	"github.com/Dhoini/pix-subscription-service/internal/repository"
	"github.com/Dhoini/pix-subscription-service/internal/repository/memory"
	"github.com/Dhoini/pix-subscription-service/internal/repository/postgres"
	"github.com/Dhoini/pix-subscription-service/internal/service"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Telegram клиент бота: получение обновлений и отправка сообщений
type Telegram interface {
	bot.UpdateSource
	notify.Sender
}

// Deps внешние клиенты, которые создаются в main
type Deps struct {
	Telegram Telegram
}

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config        *config.Config
	Registry      *prometheus.Registry
	Subscriptions *service.SubscriptionService
	Checkout      *service.CheckoutService
	Reconciler    *service.ReconciliationService
	ExpiryJob     *jobs.ExpiryJob
	Bot           *bot.Bot
	Server        *rest.Server
	Logger        *logger.Logger

	closers []func() error
}

type storage struct {
	subscribers repository.SubscriberRepository
	ledger      repository.ChargeRepository
	marker      repository.NotificationMarker
}

// New создает и инициализирует новый экземпляр приложения.
// При ошибке уже открытые соединения закрываются.
func New(ctx context.Context, cfg *config.Config, deps Deps, log *logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Registry: metrics.NewRegistry(), Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	store, err := a.newStorage(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.NewSubscriptionMetrics(a.Registry)

	a.Subscriptions = service.NewSubscriptionService(store.subscribers, cfg.Plan.Period(), log)

	notifier := notify.Multi{
		notify.NewTelegramNotifier(deps.Telegram, notify.TelegramConfig{
			GroupInviteLink: cfg.Telegram.GroupInviteLink,
			GroupChatID:     cfg.Telegram.GroupChatID,
			InviteTTL:       cfg.Telegram.InviteTTL,
			PriceCents:      cfg.Plan.PriceCents,
			PeriodDays:      cfg.Plan.PeriodDays,
		}, log),
		notify.NewEventNotifier(publisher),
	}

	a.Checkout = service.NewCheckoutService(gateway.NewClient(cfg, nil, log), store.ledger, publisher, m, log)
	a.Reconciler = service.NewReconciliationService(store.ledger, a.Subscriptions, notifier, store.marker, m, log)
	a.ExpiryJob = jobs.NewExpiryJob(a.Subscriptions, notifier, m, cfg.Sweeper.Concurrency, log)
	a.Bot = bot.New(deps.Telegram, deps.Telegram, a.Checkout, a.Subscriptions,
		bot.Config{PriceCents: cfg.Plan.PriceCents, PeriodDays: cfg.Plan.PeriodDays}, log)

	router := rest.SetupRouter(cfg, rest.Handlers{
		Webhook:       handlers.NewWebhookHandler(a.Reconciler, cfg.Webhook.Secret, m, log),
		Charges:       handlers.NewChargeHandler(a.Checkout, log),
		Subscriptions: handlers.NewSubscriptionHandler(a.Subscriptions, store.ledger, log),
	}, a.Registry, log)
	a.Server = rest.NewServer(router, cfg, log)

	return a, nil
}

// newStorage выбирает хранилище; при заданном Redis добавляет кэш и маркер уведомлений
func (a *App) newStorage(ctx context.Context) (*storage, error) {
	cfg, log := a.Config, a.Logger
	store := &storage{}

	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("Using in-memory storage: data is lost on restart")
		store.subscribers = memory.NewSubscriberRepository()
		store.ledger = memory.NewChargeRepository()
	default:
		pool, err := postgres.NewConnection(ctx, cfg.Database.GetDSN(), log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if err := postgres.EnsureSchema(ctx, pool, log); err != nil {
			return nil, err
		}
		store.subscribers = postgres.NewSubscriberRepository(pool, log)
		store.ledger = postgres.NewChargeRepository(pool, log)
	}

	if cfg.Redis.Addr == "" {
		store.marker = memory.NewNotificationMarker(cfg.Webhook.NotifyMarkerTTL)
		return store, nil
	}

	client, err := repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	cache := repository.NewRedisCache(client, cfg.Redis.CacheTTL, log)
	store.subscribers = repository.NewCachedSubscriberRepository(store.subscribers, cache, log)
	store.marker = repository.NewRedisNotificationMarker(client, cfg.Webhook.NotifyMarkerTTL)
	return store, nil
}

// newPublisher включает Kafka, если заданы брокеры
func (a *App) newPublisher(ctx context.Context) (producer.EventPublisher, error) {
	cfg, log := a.Config, a.Logger
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("Kafka brokers not configured, subscription events are not published")
		return producer.NewNoopPublisher(), nil
	}

	kcfg := kafka.NewConfig(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err := kafka.EnsureTopic(ctx, kcfg, log); err != nil {
		// Топик мог быть создан администратором, а права на создание у сервиса нет
		log.Warn("Failed to ensure Kafka topic %s: %v", kcfg.Topic, err)
	}

	syncProducer, err := kafka.NewSyncProducer(kcfg, log)
	if err != nil {
		return nil, err
	}
	publisher := producer.NewKafkaEventPublisher(syncProducer, kcfg.Topic, log)
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// Run запускает HTTP сервер, бота и проверку истекших подписок.
// Блокируется до отмены ctx или ошибки сервера, затем останавливает все компоненты.
func (a *App) Run(ctx context.Context) error {
	if err := a.ExpiryJob.Start(ctx, a.Config.Sweeper.Interval); err != nil {
		return err
	}
	defer a.ExpiryJob.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.Server.Start)
	g.Go(func() error {
		a.Bot.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownTimeout := time.Duration(a.Config.Server.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close закрывает соединения в обратном порядке открытия
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}
