package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Meta         MetaConfig
	Storefront   StorefrontConfig
	Classifier   ClassifierConfig
	Links        LinksConfig
	Pipeline     PipelineConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REPLYFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"REPLYFLOW_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"REPLYFLOW_APP_BASE_URL" required:"true"`
	LogLevel     string   `envconfig:"REPLYFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"REPLYFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"REPLYFLOW_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"REPLYFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"REPLYFLOW_DB_DSN"`
	Driver string `envconfig:"REPLYFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REPLYFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"REPLYFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REPLYFLOW_DB_USER"`
	LegacyPassword string `envconfig:"REPLYFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"REPLYFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"REPLYFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REPLYFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REPLYFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REPLYFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REPLYFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REPLYFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REPLYFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"REPLYFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"REPLYFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REPLYFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REPLYFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REPLYFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REPLYFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REPLYFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"REPLYFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REPLYFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REPLYFLOW_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// MetaConfig carries the Graph API application identity. App id, secret, API
// version, and verify token must be present at boot; a missing value fails
// startup instead of surfacing on the first webhook.
type MetaConfig struct {
	AppID              string        `envconfig:"REPLYFLOW_META_APP_ID" required:"true"`
	AppSecret          string        `envconfig:"REPLYFLOW_META_APP_SECRET" required:"true"`
	APIVersion         string        `envconfig:"REPLYFLOW_META_API_VERSION" required:"true"`
	GraphBaseURL       string        `envconfig:"REPLYFLOW_META_GRAPH_BASE_URL" default:"https://graph.facebook.com"`
	VerifyToken        string        `envconfig:"REPLYFLOW_META_VERIFY_TOKEN" required:"true"`
	RequestTimeout     time.Duration `envconfig:"REPLYFLOW_META_REQUEST_TIMEOUT" default:"10s"`
	TokenRefreshWindow time.Duration `envconfig:"REPLYFLOW_META_TOKEN_REFRESH_WINDOW" default:"72h"`
}

type StorefrontConfig struct {
	WebhookSecret  string        `envconfig:"REPLYFLOW_STOREFRONT_WEBHOOK_SECRET" required:"true"`
	CatalogTimeout time.Duration `envconfig:"REPLYFLOW_STOREFRONT_CATALOG_TIMEOUT" default:"5s"`
}

type ClassifierConfig struct {
	BaseURL        string        `envconfig:"REPLYFLOW_CLASSIFIER_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey         string        `envconfig:"REPLYFLOW_CLASSIFIER_API_KEY"`
	Model          string        `envconfig:"REPLYFLOW_CLASSIFIER_MODEL" default:"gpt-4o-mini"`
	RequestTimeout time.Duration `envconfig:"REPLYFLOW_CLASSIFIER_TIMEOUT" default:"8s"`
}

type LinksConfig struct {
	CheckoutQuantity int `envconfig:"REPLYFLOW_LINKS_CHECKOUT_QUANTITY" default:"1"`
}

type PipelineConfig struct {
	EventTimeout  time.Duration `envconfig:"REPLYFLOW_PIPELINE_EVENT_TIMEOUT" default:"45s"`
	DedupeTTL     time.Duration `envconfig:"REPLYFLOW_PIPELINE_DEDUPE_TTL" default:"168h"`
	HistoryLimit  int           `envconfig:"REPLYFLOW_PIPELINE_HISTORY_LIMIT" default:"6"`
	MaxReplyChars int           `envconfig:"REPLYFLOW_PIPELINE_MAX_REPLY_CHARS" default:"900"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"REPLYFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"REPLYFLOW_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"REPLYFLOW_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"REPLYFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"REPLYFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"REPLYFLOW_PUBSUB_EVENTS_TOPIC" required:"true"`
	EventsSubscription string `envconfig:"REPLYFLOW_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
	FactsTopic         string `envconfig:"REPLYFLOW_PUBSUB_FACTS_TOPIC" required:"true"`
	FactsSubscription  string `envconfig:"REPLYFLOW_PUBSUB_FACTS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"REPLYFLOW_BIGQUERY_DATASET" default:"replyflow"`
	AttributionTable string `envconfig:"REPLYFLOW_BIGQUERY_ATTRIBUTION_TABLE" default:"attribution_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"REPLYFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"REPLYFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"REPLYFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"REPLYFLOW_OUTBOX_IDEMPOTENCY_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
