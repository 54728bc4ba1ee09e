package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/replyflow/replyflow-backend/api/controllers"
	webhookcontrollers "github.com/replyflow/replyflow-backend/api/controllers/webhooks"
	"github.com/replyflow/replyflow-backend/api/middleware"
	"github.com/replyflow/replyflow-backend/internal/attribution"
	"github.com/replyflow/replyflow-backend/internal/credentials"
	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/internal/mappings"
	"github.com/replyflow/replyflow-backend/internal/merchants"
	"github.com/replyflow/replyflow-backend/internal/settings"
	"github.com/replyflow/replyflow-backend/pkg/config"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
	"github.com/replyflow/replyflow-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config          *config.Config
	Logger          *logger.Logger
	Redis           *redis.Client
	Pingers         map[string]controllers.Pinger
	Registry        *prometheus.Registry
	PipelineMetrics *metrics.PipelineMetrics
	MetaClient      *meta.Client
	Intake          *inbound.Intake
	LinkResolver    *links.Resolver
	Attribution     attribution.Service
	Credentials     credentials.Service
	Settings        settings.Service
	Mappings        mappings.Service
	Merchants       merchants.Service
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/l/{linkID}", controllers.LinkRedirect(deps.LinkResolver, deps.Attribution, deps.PipelineMetrics, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/meta", webhookcontrollers.MetaWebhookVerify(cfg.Meta.VerifyToken, logg))
		r.Post("/meta", webhookcontrollers.MetaWebhook(deps.Intake, deps.MetaClient, logg))
		r.Post("/orders", webhookcontrollers.OrdersWebhook(deps.Attribution, cfg.Storefront.WebhookSecret, logg))
		r.Post("/app", webhookcontrollers.AppLifecycleWebhook(deps.Merchants, cfg.Storefront.WebhookSecret, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/connect/status", controllers.ConnectStatus(deps.Credentials, logg))
		r.Post("/connect", controllers.Connect(deps.Credentials, logg))
		r.Delete("/connect", controllers.Disconnect(deps.Credentials, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetSettings(deps.Settings, logg))
			r.Put("/", controllers.UpdateSettings(deps.Settings, logg))
			r.Get("/posts", controllers.ListPostOverrides(deps.Settings, logg))
			r.Put("/posts/{mediaID}", controllers.SetPostOverride(deps.Settings, logg))
			r.Delete("/posts/{mediaID}", controllers.ClearPostOverride(deps.Settings, logg))
		})

		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", controllers.ListMappings(deps.Mappings, logg))
			r.Get("/{mediaID}", controllers.GetMapping(deps.Mappings, logg))
			r.Put("/{mediaID}", controllers.UpsertMapping(deps.Mappings, logg))
			r.Delete("/{mediaID}", controllers.DeleteMapping(deps.Mappings, logg))
		})

		r.Get("/messages", controllers.ListMessages(deps.Attribution, logg))
		r.Get("/plan", controllers.GetPlan(deps.Merchants, logg))
	})

	return r
}
