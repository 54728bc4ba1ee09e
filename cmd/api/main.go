package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/replyflow/replyflow-backend/api/controllers"
	"github.com/replyflow/replyflow-backend/api/routes"
	"github.com/replyflow/replyflow-backend/internal/attribution"
	"github.com/replyflow/replyflow-backend/internal/catalog"
	"github.com/replyflow/replyflow-backend/internal/credentials"
	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/internal/mappings"
	"github.com/replyflow/replyflow-backend/internal/merchants"
	"github.com/replyflow/replyflow-backend/internal/settings"
	"github.com/replyflow/replyflow-backend/pkg/config"
	"github.com/replyflow/replyflow-backend/pkg/db"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
	"github.com/replyflow/replyflow-backend/pkg/migrate"
	"github.com/replyflow/replyflow-backend/pkg/outbox"
	"github.com/replyflow/replyflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	metaClient, err := meta.NewClient(context.Background(), cfg.Meta, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create meta client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

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

	normalizer, err := inbound.NewService(redisClient, cfg.Pipeline.DedupeTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inbound normalizer", err)
		os.Exit(1)
	}

	intake, err := inbound.NewIntake(normalizer, credentialsService, attributionService, pipelineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook intake", err)
		os.Exit(1)
	}

	linkResolver, err := links.NewResolver(attributionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create link resolver", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Registry:        registry,
			PipelineMetrics: pipelineMetrics,
			MetaClient:      metaClient,
			Intake:          intake,
			LinkResolver:    linkResolver,
			Attribution:     attributionService,
			Credentials:     credentialsService,
			Settings:        settingsService,
			Mappings:        mappingsService,
			Merchants:       merchantsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
