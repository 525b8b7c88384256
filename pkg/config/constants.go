package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry explicit
	// STYLEHUB_ names so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "STYLEHUB_APP_ENV"

	EnvDBDSN  = "STYLEHUB_DB_DSN"
	EnvDBHost = "STYLEHUB_DB_HOST"
	EnvDBUser = "STYLEHUB_DB_USER"
	EnvDBName = "STYLEHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
