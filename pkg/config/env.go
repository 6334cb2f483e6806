package config

const (
	EnvPrefix = "AUTOPOST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	defaultSQLiteDSN = "file:autopost.db?cache=shared"
)

const (
	EnvAppEnv   = "AUTOPOST_APP_ENV"
	EnvPort     = "AUTOPOST_APP_PORT"
	EnvDBDSN    = "AUTOPOST_DB_DSN"
	EnvDBHost   = "AUTOPOST_DB_HOST"
	EnvDBUser   = "AUTOPOST_DB_USER"
	EnvDBName   = "AUTOPOST_DB_NAME"
	EnvRedisURL = "AUTOPOST_REDIS_URL"
	EnvSQLite   = "AUTOPOST_USE_SQLITE"

	EnvGenerationImageTimeout = "AUTOPOST_GENERATION_IMAGE_TIMEOUT"
	EnvGenerationMaxRetries   = "AUTOPOST_GENERATION_MAX_RETRIES"
	EnvCronPublishInterval    = "AUTOPOST_CRON_PUBLISH_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
