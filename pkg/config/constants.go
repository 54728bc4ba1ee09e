package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "REPLYFLOW"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (startup
// validation messages and tests).
const (
	EnvAppEnv     = "REPLYFLOW_APP_ENV"
	EnvPort       = "REPLYFLOW_APP_PORT"
	EnvAppBaseURL = "REPLYFLOW_APP_BASE_URL"

	EnvDBDSN  = "REPLYFLOW_DB_DSN"
	EnvDBHost = "REPLYFLOW_DB_HOST"
	EnvDBUser = "REPLYFLOW_DB_USER"
	EnvDBName = "REPLYFLOW_DB_NAME"

	EnvRedisURL = "REPLYFLOW_REDIS_URL"

	EnvJWTSecret = "REPLYFLOW_JWT_SECRET"
	EnvJWTIssuer = "REPLYFLOW_JWT_ISSUER"

	EnvStorefrontWebhookSecret = "REPLYFLOW_STOREFRONT_WEBHOOK_SECRET"

	EnvMetaAppID       = "REPLYFLOW_META_APP_ID"
	EnvMetaAppSecret   = "REPLYFLOW_META_APP_SECRET"
	EnvMetaAPIVersion  = "REPLYFLOW_META_API_VERSION"
	EnvMetaVerifyToken = "REPLYFLOW_META_VERIFY_TOKEN"

	EnvGCPProjectID = "REPLYFLOW_GCP_PROJECT_ID"

	EnvPubSubEventsTopic        = "REPLYFLOW_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSubscription = "REPLYFLOW_PUBSUB_EVENTS_SUBSCRIPTION"
	EnvPubSubFactsTopic         = "REPLYFLOW_PUBSUB_FACTS_TOPIC"
	EnvPubSubFactsSubscription  = "REPLYFLOW_PUBSUB_FACTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
