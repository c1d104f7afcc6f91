package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "TREADLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TREADLINE_APP_ENV"
	EnvPort     = "TREADLINE_APP_PORT"
	EnvRedisURL = "TREADLINE_REDIS_URL"

	EnvDBDSN  = "TREADLINE_DB_DSN"
	EnvDBHost = "TREADLINE_DB_HOST"
	EnvDBUser = "TREADLINE_DB_USER"
	EnvDBName = "TREADLINE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
