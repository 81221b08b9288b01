package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	offerservice "beacon/contexts/campaign-core/offer-service"
	offermemory "beacon/contexts/campaign-core/offer-service/adapters/memory"
	offerpostgres "beacon/contexts/campaign-core/offer-service/adapters/postgres"
	offerentities "beacon/contexts/campaign-core/offer-service/domain/entities"
	linkingservice "beacon/contexts/social-integration/linking-service"
	linkingmemory "beacon/contexts/social-integration/linking-service/adapters/memory"
	redisadapter "beacon/contexts/social-integration/linking-service/adapters/redis"
	"beacon/contexts/social-integration/linking-service/domain/workflow"
	"beacon/internal/platform/config"
	"beacon/internal/platform/db"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/messaging"
	"beacon/internal/shared/outbox"
	"beacon/internal/shared/saga"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres   *db.Postgres
	subscriber messaging.Subscriber
	ingest     outbox.Ingest

	publisher *outbox.PublisherJob
	consumer  *outbox.ConsumerJob
	timeouts  *saga.TimeoutJob

	cfg          config.Config
	pollInterval time.Duration
	logger       *slog.Logger
}

// subscribedEventTypes are the integration events this process ingests from
// the broker into the inbox. Timeout events never travel over the broker.
var subscribedEventTypes = []string{
	workflow.EventTypeAccountLinked,
	workflow.EventTypeAccountDataFetched,
	workflow.EventTypeMediaSynced,
	workflow.EventTypeLinkingFailed,
	workflow.EventTypeRenewalRequested,
	workflow.EventTypeTokenRefreshed,
	workflow.EventTypeProfileResynced,
	workflow.EventTypeRenewalFailed,
}

// relayedEventTypes leave the process through the broker relay when their
// outbox rows are published.
var relayedEventTypes = []string{
	workflow.EventTypeAccountLinked,
	workflow.EventTypeRenewalRequested,
	workflow.EventTypeLinkingStarted,
	workflow.EventTypeLinkingCompleted,
	workflow.EventTypeLinkingCompensated,
	workflow.EventTypeLinkingTimedOut,
	workflow.EventTypeRenewalStarted,
	workflow.EventTypeRenewalCompleted,
	workflow.EventTypeRenewalCompensated,
	workflow.EventTypeRenewalTimedOut,
	offerentities.EventTypeOfferCreated,
	offerentities.EventTypeOfferAccepted,
	offerentities.EventTypeOfferDeclined,
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	records := outbox.NewGormStore(pg.DB, logger)
	sagaStore := saga.NewGormStore(pg.DB)
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	linking := linkingservice.NewModule(linkingservice.Dependencies{
		Instances:      sagaStore,
		Scheduler:      sagaStore,
		Outbox:         records,
		Cache:          redisadapter.NewStatusCache(redisClient),
		Clock:          linkingmemory.SystemClock{},
		IDGenerator:    linkingmemory.UUIDGenerator{},
		LinkingTimeout: cfg.LinkingTimeout,
		RenewalTimeout: cfg.RenewalTimeout,
		StatusCacheTTL: cfg.StatusCacheTTL,
		Logger:         logger,
	})

	offerRepo := offerpostgres.NewRepository(pg.DB, records, logger)
	offers := offerservice.NewModule(offerservice.Dependencies{
		Offers:      offerRepo,
		Clock:       offermemory.SystemClock{},
		IDGenerator: offermemory.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(linking, offers, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	records := outbox.NewGormStore(pg.DB, logger)
	sagaStore := saga.NewGormStore(pg.DB)
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	broker := messaging.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	subscriber := messaging.NewKafkaSubscriber(cfg.KafkaBrokers, logger)

	// The publisher job drains the outbox through the relay; the consumer
	// job drains the inbox through the saga handlers. Separate registries
	// keep a row in one table from reaching the other side's handlers.
	outboxRegistry := outbox.NewRegistry()
	relay := outbox.BrokerRelay{Publisher: broker}
	for _, eventType := range relayedEventTypes {
		outboxRegistry.Register(eventType, relay)
	}

	inboxRegistry := outbox.NewRegistry()
	linking := linkingservice.NewModule(linkingservice.Dependencies{
		Instances:      sagaStore,
		Scheduler:      sagaStore,
		Outbox:         records,
		Registry:       inboxRegistry,
		Cache:          redisadapter.NewStatusCache(redisClient),
		Clock:          linkingmemory.SystemClock{},
		IDGenerator:    linkingmemory.UUIDGenerator{},
		LinkingTimeout: cfg.LinkingTimeout,
		RenewalTimeout: cfg.RenewalTimeout,
		StatusCacheTTL: cfg.StatusCacheTTL,
		Logger:         logger,
	})

	return &WorkerApp{
		postgres:   pg,
		subscriber: subscriber,
		ingest:     outbox.Ingest{Store: records, Logger: logger},
		publisher: &outbox.PublisherJob{
			Store:     records,
			Registry:  outboxRegistry,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		consumer: &outbox.ConsumerJob{
			Store:     records,
			Registry:  inboxRegistry,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		timeouts: &saga.TimeoutJob{
			Scheduler:   sagaStore,
			Inbox:       records,
			Definitions: linking.Definitions,
			BatchSize:   cfg.OutboxBatchSize,
			Clock:       linkingmemory.SystemClock{},
			Logger:      logger,
		},
		cfg:          cfg,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.cfg.EnableBrokerIngest {
		for _, topic := range subscribedEventTypes {
			err := w.subscriber.Subscribe(ctx, topic, w.cfg.ServiceName+"-inbox-cg", w.ingest.Receive)
			if err != nil {
				return err
			}
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	// Job errors are transient by assumption (a dropped connection, a busy
	// pool); the loop logs them and retries on the next tick.
	for {
		if w.cfg.EnableSagaTimeouts {
			w.runJob(ctx, "saga_timeouts", w.timeouts.RunOnce)
		}
		if w.cfg.EnableOutboxPublisher {
			w.runJob(ctx, "outbox_publisher", w.publisher.RunOnce)
		}
		if w.cfg.EnableInboxConsumer {
			w.runJob(ctx, "inbox_consumer", w.consumer.RunOnce)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) runJob(ctx context.Context, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("worker job failed",
			"event", "bootstrap_worker_job_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"job", name,
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
