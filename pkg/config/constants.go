package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvPort             = "STOREFRONT_APP_PORT"
	EnvCommerceBaseURL  = "STOREFRONT_COMMERCE_BASE_URL"
	EnvCommerceTimeout  = "STOREFRONT_COMMERCE_TIMEOUT"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvRedisAddr        = "STOREFRONT_REDIS_ADDR"
	EnvDBDSN            = "STOREFRONT_DB_DSN"
	EnvDBHost           = "STOREFRONT_DB_HOST"
	EnvDBUser           = "STOREFRONT_DB_USER"
	EnvDBName           = "STOREFRONT_DB_NAME"
	EnvUseSQLite        = "STOREFRONT_USE_SQLITE"
	EnvDistributedGuard = "STOREFRONT_DISTRIBUTED_CHECKOUT_GUARD"
	EnvCORSOrigins      = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvGuardTTL         = "STOREFRONT_CHECKOUT_GUARD_TTL"
	EnvPaymentWindow    = "STOREFRONT_CHECKOUT_PAYMENT_WINDOW"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
