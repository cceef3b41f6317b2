package config

// EnvPrefix is empty because every field tag already carries the DATAVEND_ prefix.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DATAVEND_APP_ENV"
	EnvPort     = "DATAVEND_APP_PORT"
	EnvLogLevel = "DATAVEND_LOG_LEVEL"

	EnvDBDSN  = "DATAVEND_DB_DSN"
	EnvDBHost = "DATAVEND_DB_HOST"
	EnvDBUser = "DATAVEND_DB_USER"
	EnvDBName = "DATAVEND_DB_NAME"

	EnvRedisURL = "DATAVEND_REDIS_URL"

	EnvJWTSecret  = "DATAVEND_JWT_SECRET"
	EnvJWTIssuer  = "DATAVEND_JWT_ISSUER"
	EnvJWTExpMins = "DATAVEND_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "DATAVEND_GCP_PROJECT_ID"

	EnvPubSubDomainTopic       = "DATAVEND_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub   = "DATAVEND_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvBigQuerySummaryTable = "DATAVEND_BIGQUERY_SUMMARY_TABLE"

	EnvWalletMinTopUp     = "DATAVEND_WALLET_MIN_TOP_UP"
	EnvCommissionRates    = "DATAVEND_COMMISSION_RATES"
	EnvCommissionDefault  = "DATAVEND_COMMISSION_DEFAULT_RATE"
	EnvCommissionExpiry   = "DATAVEND_COMMISSION_EXPIRY_DAYS"
	EnvCronJobTimeout     = "DATAVEND_CRON_JOB_TIMEOUT"
	EnvCronMetricsAddress = "DATAVEND_CRON_METRICS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
