package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	HTTP         HTTPConfig
	Airtable     AirtableConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Bot          BotConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BULKBUDDY_APP_ENV" required:"true"`
	Port         string `envconfig:"BULKBUDDY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BULKBUDDY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BULKBUDDY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BULKBUDDY_SERVICE_KIND" default:"api"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `envconfig:"BULKBUDDY_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout    time.Duration `envconfig:"BULKBUDDY_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"BULKBUDDY_HTTP_WRITE_TIMEOUT" default:"30s"`
	WriteRateLimit int           `envconfig:"BULKBUDDY_HTTP_WRITE_RATE_LIMIT" default:"30"`
	WriteWindow    time.Duration `envconfig:"BULKBUDDY_HTTP_WRITE_WINDOW" default:"1m"`
}

// AirtableConfig points the service at the hosted base holding the four workflow tables.
type AirtableConfig struct {
	APIKey            string        `envconfig:"BULKBUDDY_AIRTABLE_API_KEY" required:"true"`
	BaseID            string        `envconfig:"BULKBUDDY_AIRTABLE_BASE_ID" required:"true"`
	BaseURL           string        `envconfig:"BULKBUDDY_AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0"`
	View              string        `envconfig:"BULKBUDDY_AIRTABLE_VIEW" default:"Grid view"`
	ProductsTable     string        `envconfig:"BULKBUDDY_AIRTABLE_PRODUCTS_TABLE" default:"Products"`
	OrdersTable       string        `envconfig:"BULKBUDDY_AIRTABLE_ORDERS_TABLE" default:"Orders"`
	OrderItemsTable   string        `envconfig:"BULKBUDDY_AIRTABLE_ORDER_ITEMS_TABLE" default:"OrderItem"`
	PoolsTable        string        `envconfig:"BULKBUDDY_AIRTABLE_POOLS_TABLE" default:"Pooled Orders"`
	RequestsPerSecond float64       `envconfig:"BULKBUDDY_AIRTABLE_RPS" default:"5"`
	Burst             int           `envconfig:"BULKBUDDY_AIRTABLE_BURST" default:"5"`
	Timeout           time.Duration `envconfig:"BULKBUDDY_AIRTABLE_TIMEOUT" default:"15s"`
}

type DBConfig struct {
	DSN    string `envconfig:"BULKBUDDY_DB_DSN"`
	Driver string `envconfig:"BULKBUDDY_DB_DRIVER" default:"postgres"`

	Host       string `envconfig:"BULKBUDDY_DB_HOST"`
	Port       int    `envconfig:"BULKBUDDY_DB_PORT" default:"5432"`
	User       string `envconfig:"BULKBUDDY_DB_USER"`
	Password   string `envconfig:"BULKBUDDY_DB_PASSWORD"`
	Name       string `envconfig:"BULKBUDDY_DB_NAME"`
	SSLMode    string `envconfig:"BULKBUDDY_DB_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"BULKBUDDY_DB_SQLITE_PATH" default:"bulkbuddy.db"`

	MaxOpenConns    int           `envconfig:"BULKBUDDY_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"BULKBUDDY_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"BULKBUDDY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BULKBUDDY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BULKBUDDY_REDIS_URL"`
	Address      string        `envconfig:"BULKBUDDY_REDIS_ADDR"`
	Password     string        `envconfig:"BULKBUDDY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BULKBUDDY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BULKBUDDY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BULKBUDDY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BULKBUDDY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BULKBUDDY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BULKBUDDY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BULKBUDDY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BULKBUDDY_AUTO_MIGRATE" default:"false"`
	Journal     bool `envconfig:"BULKBUDDY_ORDER_JOURNAL" default:"true"`
}

// OrdersConfig tunes identifier minting and store fan-out for the order workflow.
type OrdersConfig struct {
	OrderIDMax     int `envconfig:"BULKBUDDY_ORDER_ID_MAX" default:"100000"`
	PoolIDMax      int `envconfig:"BULKBUDDY_POOL_ID_MAX" default:"10000"`
	IDMaxAttempts  int `envconfig:"BULKBUDDY_ID_MAX_ATTEMPTS" default:"5"`
	FanOutLimit    int `envconfig:"BULKBUDDY_FAN_OUT_LIMIT" default:"5"`
	MaxCartLines   int `envconfig:"BULKBUDDY_MAX_CART_LINES" default:"50"`
	MaxLineQty     int `envconfig:"BULKBUDDY_MAX_LINE_QTY" default:"999"`
	MaxCustomerLen int `envconfig:"BULKBUDDY_MAX_CUSTOMER_LEN" default:"120"`
}

type BotConfig struct {
	Token       string        `envconfig:"BULKBUDDY_TELEGRAM_TOKEN"`
	WebAppURL   string        `envconfig:"BULKBUDDY_WEBAPP_URL" default:"https://tgbot.alazargetachew.com/"`
	SessionTTL  time.Duration `envconfig:"BULKBUDDY_SESSION_TTL" default:"720h"`
	PollTimeout int           `envconfig:"BULKBUDDY_TELEGRAM_POLL_TIMEOUT" default:"60"`
	Debug       bool          `envconfig:"BULKBUDDY_TELEGRAM_DEBUG" default:"false"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"BULKBUDDY_CRON_INTERVAL" default:"5m"`
	ReconcileGrace   time.Duration `envconfig:"BULKBUDDY_JOURNAL_RECONCILE_GRACE" default:"10m"`
	ReconcileBatch   int           `envconfig:"BULKBUDDY_JOURNAL_RECONCILE_BATCH" default:"100"`
	JournalRetention time.Duration `envconfig:"BULKBUDDY_JOURNAL_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
