package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/replyflow/replyflow-backend/internal/attribution"
	"github.com/replyflow/replyflow-backend/internal/catalog"
	"github.com/replyflow/replyflow-backend/internal/classifier"
	"github.com/replyflow/replyflow-backend/internal/composer"
	"github.com/replyflow/replyflow-backend/internal/consumers/events"
	"github.com/replyflow/replyflow-backend/internal/credentials"
	"github.com/replyflow/replyflow-backend/internal/dispatch"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/internal/mappings"
	"github.com/replyflow/replyflow-backend/internal/merchants"
	"github.com/replyflow/replyflow-backend/internal/pipeline"
	"github.com/replyflow/replyflow-backend/internal/settings"
	"github.com/replyflow/replyflow-backend/pkg/config"
	"github.com/replyflow/replyflow-backend/pkg/db"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
	"github.com/replyflow/replyflow-backend/pkg/migrate"
	"github.com/replyflow/replyflow-backend/pkg/openai"
	"github.com/replyflow/replyflow-backend/pkg/outbox"
	"github.com/replyflow/replyflow-backend/pkg/outbox/idempotency"
	"github.com/replyflow/replyflow-backend/pkg/pubsub"
	"github.com/replyflow/replyflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	metaClient, err := meta.NewClient(context.Background(), cfg.Meta, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create meta client", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(context.Background(), cfg.Classifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	attributionRepo := attribution.NewRepository(dbClient.DB())
	attributionService, err := attribution.NewService(attributionRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create attribution service", err)
		os.Exit(1)
	}

	credentialsService, err := credentials.NewService(credentials.NewRepository(dbClient.DB()), metaClient, cfg.Meta.TokenRefreshWindow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create credentials service", err)
		os.Exit(1)
	}

	merchantsService, err := merchants.NewService(merchants.NewRepository(dbClient.DB()), credentialsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create merchants service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	catalogClient, err := catalog.NewClient(merchantsService, cfg.Storefront.CatalogTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	mappingsService, err := mappings.NewService(mappings.NewRepository(dbClient.DB()), catalogClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create mappings service", err)
		os.Exit(1)
	}

	contextResolver, err := pipeline.NewResolver(merchantsService, settingsService, mappingsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create context resolver", err)
		os.Exit(1)
	}

	classifierService, err := classifier.NewService(openaiClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create classifier", err)
		os.Exit(1)
	}

	composerService, err := composer.NewService(openaiClient, cfg.Pipeline.MaxReplyChars, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create composer", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(metaClient, redisClient, attributionRepo, cfg.Pipeline.DedupeTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	linkBuilder, err := links.NewBuilder(cfg.App.BaseURL)
	if err != nil {
		logg.Error(context.Background(), "failed to create link builder", err)
		os.Exit(1)
	}

	processor, err := pipeline.NewProcessor(
		credentialsService,
		contextResolver,
		classifierService,
		attributionService,
		composerService,
		dispatchService,
		linkBuilder,
		metrics.NewPipelineMetrics(nil),
		pipeline.Config{
			HistoryLimit:     cfg.Pipeline.HistoryLimit,
			CheckoutQuantity: cfg.Links.CheckoutQuantity,
		},
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline processor", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := events.NewConsumer(
		pubsubClient.EventsSubscription(),
		attributionRepo,
		processor,
		manager,
		cfg.Pipeline.EventTimeout,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create events consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting pipeline worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "pipeline worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "pipeline worker shutting down gracefully")
}
