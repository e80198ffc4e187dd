package config

const (
	EnvPrefix = "BULKBUDDY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "BULKBUDDY_APP_ENV"
	EnvPort            = "BULKBUDDY_APP_PORT"
	EnvAirtableAPIKey  = "BULKBUDDY_AIRTABLE_API_KEY"
	EnvAirtableBaseID  = "BULKBUDDY_AIRTABLE_BASE_ID"
	EnvAirtableView    = "BULKBUDDY_AIRTABLE_VIEW"
	EnvDBDSN           = "BULKBUDDY_DB_DSN"
	EnvDBHost          = "BULKBUDDY_DB_HOST"
	EnvDBUser          = "BULKBUDDY_DB_USER"
	EnvDBName          = "BULKBUDDY_DB_NAME"
	EnvDBPassword      = "BULKBUDDY_DB_PASSWORD"
	EnvUseSQLite       = "BULKBUDDY_USE_SQLITE"
	EnvRedisURL        = "BULKBUDDY_REDIS_URL"
	EnvOrderIDMax      = "BULKBUDDY_ORDER_ID_MAX"
	EnvAllowedOrigins  = "BULKBUDDY_HTTP_ALLOWED_ORIGINS"
	EnvTelegramToken   = "BULKBUDDY_TELEGRAM_TOKEN"
	EnvSessionTTL      = "BULKBUDDY_SESSION_TTL"
	EnvReconcileGrace  = "BULKBUDDY_JOURNAL_RECONCILE_GRACE"
	EnvJournalDisabled = "BULKBUDDY_ORDER_JOURNAL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
