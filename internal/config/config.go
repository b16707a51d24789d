package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`

	// Supabase auth
	SupabaseURL     string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAnonKey string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	JWTSecret       string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Template file storage (Supabase S3-compatible endpoint)
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"drafts"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Stripe settings. StripeSecretName takes precedence over StripeSecretKey
	// and is resolved through Secret Manager at startup.
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeSecretName    string `envconfig:"STRIPE_SECRET_NAME"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	CheckoutSuccessURL  string `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:5173/dashboard?status=success"`
	CheckoutCancelURL   string `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:5173/plans?status=cancel"`
	Currency            string `envconfig:"PAYMENT_CURRENCY" default:"inr"`

	// GCP
	GCPProjectID         string `envconfig:"GCP_PROJECT_ID"`
	GCPCredentialsFile   string `envconfig:"GCP_CREDENTIALS_FILE"`
	PubSubAnalyticsTopic string `envconfig:"PUBSUB_ANALYTICS_TOPIC" default:"download-analytics"`
	PubSubEmulatorHost   string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Redis catalog cache
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	// Download analytics orchestrator settings
	DownloadQueueName      string `envconfig:"DOWNLOAD_QUEUE_NAME" default:"download_events"`
	DownloadPollTimeoutSec int    `envconfig:"DOWNLOAD_POLL_TIMEOUT_SEC" default:"30"`
	DownloadPollMaxMsg     int    `envconfig:"DOWNLOAD_POLL_MAX_MSG" default:"10"`
	DownloadVisibilitySec  int    `envconfig:"DOWNLOAD_VISIBILITY_SEC" default:"60"`

	// Messages read more often than this are archived instead of retried.
	DownloadMaxReads int `envconfig:"DOWNLOAD_MAX_READS" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs against local infrastructure.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
