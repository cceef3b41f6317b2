package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Wallet       WalletConfig
	Orders       OrdersConfig
	Commission   CommissionConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Wallet.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"DATAVEND_APP_ENV" required:"true"`
	Port         string   `envconfig:"DATAVEND_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"DATAVEND_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DATAVEND_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"DATAVEND_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"DATAVEND_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DATAVEND_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DATAVEND_DB_DSN"`
	Driver string `envconfig:"DATAVEND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DATAVEND_DB_HOST"`
	LegacyPort     int    `envconfig:"DATAVEND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DATAVEND_DB_USER"`
	LegacyPassword string `envconfig:"DATAVEND_DB_PASSWORD"`
	LegacyName     string `envconfig:"DATAVEND_DB_NAME"`
	LegacySSLMode  string `envconfig:"DATAVEND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DATAVEND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DATAVEND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DATAVEND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DATAVEND_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold marks statements logged as slow; LogSQL adds their text.
	SlowQueryThreshold time.Duration `envconfig:"DATAVEND_DB_SLOW_QUERY" default:"500ms"`
	LogSQL             bool          `envconfig:"DATAVEND_DB_LOG_SQL" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DATAVEND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DATAVEND_REDIS_ADDR"`
	Password     string        `envconfig:"DATAVEND_REDIS_PASSWORD"`
	DB           int           `envconfig:"DATAVEND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DATAVEND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DATAVEND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DATAVEND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DATAVEND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DATAVEND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DATAVEND_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DATAVEND_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DATAVEND_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DATAVEND_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DATAVEND_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"DATAVEND_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"DATAVEND_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DATAVEND_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DATAVEND_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DATAVEND_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"DATAVEND_PUBSUB_DOMAIN_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"DATAVEND_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset      string `envconfig:"DATAVEND_BIGQUERY_DATASET" default:"datavend"`
	SummaryTable string `envconfig:"DATAVEND_BIGQUERY_SUMMARY_TABLE"`
}

// Enabled reports whether archived commission summaries should be exported.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.SummaryTable) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DATAVEND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DATAVEND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DATAVEND_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type WalletConfig struct {
	MinTopUp        decimal.Decimal `envconfig:"DATAVEND_WALLET_MIN_TOP_UP" default:"10.00"`
	ConflictRetries int             `envconfig:"DATAVEND_WALLET_CONFLICT_RETRIES" default:"3"`
	RetryBaseDelay  time.Duration   `envconfig:"DATAVEND_WALLET_RETRY_BASE_DELAY" default:"20ms"`
}

func (w WalletConfig) validate() error {
	if w.MinTopUp.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvWalletMinTopUp)
	}
	if w.ConflictRetries < 0 {
		return fmt.Errorf("DATAVEND_WALLET_CONFLICT_RETRIES must not be negative")
	}
	return nil
}

type OrdersConfig struct {
	ReportAutoResolveAfter time.Duration `envconfig:"DATAVEND_ORDERS_REPORT_AUTO_RESOLVE_AFTER" default:"24h"`
	ResolvedFlagClearAfter time.Duration `envconfig:"DATAVEND_ORDERS_RESOLVED_FLAG_CLEAR_AFTER" default:"10m"`

	// PhoneRegion is the ISO country used to read customer numbers written
	// without a leading "+".
	PhoneRegion string `envconfig:"DATAVEND_ORDERS_PHONE_REGION" default:"GH"`
}

type CommissionConfig struct {
	// Rates is a comma separated tier=rate list, e.g. "agent=0.02,dealer=0.04".
	Rates       string          `envconfig:"DATAVEND_COMMISSION_RATES" default:"agent=0.02,super_agent=0.03,dealer=0.04,super_dealer=0.05"`
	DefaultRate decimal.Decimal `envconfig:"DATAVEND_COMMISSION_DEFAULT_RATE" default:"0.02"`
	ExpiryDays  int             `envconfig:"DATAVEND_COMMISSION_EXPIRY_DAYS" default:"30"`
}

func (c CommissionConfig) validate() error {
	if c.ExpiryDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvCommissionExpiry)
	}
	if c.DefaultRate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCommissionDefault)
	}
	return nil
}

// RateLimitConfig throttles per-user write surfaces. A zero limit disables a policy.
type RateLimitConfig struct {
	TopUpWindow time.Duration `envconfig:"DATAVEND_RATE_LIMIT_TOP_UP_WINDOW" default:"1h"`
	TopUpLimit  int           `envconfig:"DATAVEND_RATE_LIMIT_TOP_UP_LIMIT" default:"5"`
	OrderWindow time.Duration `envconfig:"DATAVEND_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
	OrderLimit  int           `envconfig:"DATAVEND_RATE_LIMIT_ORDER_LIMIT" default:"30"`
}

type CronConfig struct {
	JobTimeout            time.Duration `envconfig:"DATAVEND_CRON_JOB_TIMEOUT" default:"10m"`
	LockTTL               time.Duration `envconfig:"DATAVEND_CRON_LOCK_TTL" default:"15m"`
	TickInterval          time.Duration `envconfig:"DATAVEND_CRON_TICK_INTERVAL" default:"30s"`
	NotificationRetention time.Duration `envconfig:"DATAVEND_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"DATAVEND_CRON_OUTBOX_RETENTION" default:"720h"`
	MetricsAddress        string        `envconfig:"DATAVEND_CRON_METRICS_ADDR" default:":9102"`
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
