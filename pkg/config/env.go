package config

// EnvPrefix is passed to envconfig; every field carries an explicit tag so
// the prefix only matters for untagged additions.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                       = "STOREFRONT_APP_ENV"
	EnvPort                         = "STOREFRONT_APP_PORT"
	EnvLogLevel                     = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN                        = "STOREFRONT_DB_DSN"
	EnvDBHost                       = "STOREFRONT_DB_HOST"
	EnvDBUser                       = "STOREFRONT_DB_USER"
	EnvDBName                       = "STOREFRONT_DB_NAME"
	EnvRedisURL                     = "STOREFRONT_REDIS_URL"
	EnvJWTSecret                    = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer                    = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins                   = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes       = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite                    = "STOREFRONT_USE_SQLITE"
	EnvStripeAPIKey                 = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret                 = "STOREFRONT_STRIPE_SECRET"
	EnvStripeEnv                    = "STOREFRONT_STRIPE_ENV"
	EnvGCPProjectID                 = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic            = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvCheckoutAllowedOrigins       = "STOREFRONT_CHECKOUT_ALLOWED_ORIGINS"
	EnvCheckoutReconcileInterval    = "STOREFRONT_CHECKOUT_RECONCILE_INTERVAL"
	EnvCheckoutReconcileMaxAttempts = "STOREFRONT_CHECKOUT_RECONCILE_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
