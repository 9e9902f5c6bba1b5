package config

// EnvPrefix is passed to envconfig; every field tag already carries the full name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "STOREFRONT_APP_ENV"
	EnvMetricsPort = "STOREFRONT_METRICS_PORT"
	EnvLogLevel    = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBPort = "STOREFRONT_DB_PORT"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBPass = "STOREFRONT_DB_PASSWORD"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic         = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub     = "STOREFRONT_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvOrdersPaymentDeadline     = "STOREFRONT_ORDERS_PAYMENT_DEADLINE"
	EnvOrdersSweepInterval       = "STOREFRONT_ORDERS_SWEEP_INTERVAL"
	EnvOrdersPriceTolerancePct   = "STOREFRONT_ORDERS_PRICE_TOLERANCE_PCT"
	EnvOrdersWelcomeDiscountCode = "STOREFRONT_ORDERS_WELCOME_DISCOUNT_CODE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
