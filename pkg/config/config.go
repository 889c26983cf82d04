package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SHOPBOT"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Stock     StockConfig
	Inventory InventoryConfig
	RateLimit RateLimitConfig
	Reminder  ReminderConfig
	Gateway   GatewayConfig
	Payment   PaymentConfig
	Webhook   WebhookConfig
	Transport TransportConfig
	Cron      CronConfig
	Admin     AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPBOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPBOT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPBOT_DB_DSN"`
	Driver string `envconfig:"SHOPBOT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPBOT_DB_HOST"`
	Port     int    `envconfig:"SHOPBOT_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPBOT_DB_USER"`
	Password string `envconfig:"SHOPBOT_DB_PASSWORD"`
	Name     string `envconfig:"SHOPBOT_DB_NAME"`
	SSLMode  string `envconfig:"SHOPBOT_DB_SSLMODE" default:"disable"`

	UseSQLite  bool   `envconfig:"SHOPBOT_USE_SQLITE" default:"false"`
	SQLitePath string `envconfig:"SHOPBOT_SQLITE_PATH" default:"shopbot.db"`

	AutoMigrate bool `envconfig:"SHOPBOT_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"SHOPBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.UseSQLite || db.DSN != "" {
		return nil
	}
	if db.Host == "" || db.User == "" || db.Name == "" {
		return fmt.Errorf("database DSN or host/user/name parts are required")
	}
	db.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.User),
		url.QueryEscape(db.Password),
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPBOT_REDIS_URL"`
	Address      string        `envconfig:"SHOPBOT_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	TTLSeconds    int           `envconfig:"SHOPBOT_SESSION_TTL_SECONDS" default:"1800"`
	SweepInterval time.Duration `envconfig:"SHOPBOT_SESSION_SWEEP_INTERVAL" default:"10m"`
}

// TTL returns the session expiry as a duration.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLSeconds <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.TTLSeconds) * time.Second
}

type StockConfig struct {
	Baseline     int64 `envconfig:"SHOPBOT_STOCK_BASELINE" default:"0"`
	HistoryLimit int64 `envconfig:"SHOPBOT_STOCK_HISTORY_LIMIT" default:"20"`
}

type InventoryConfig struct {
	Dir string `envconfig:"SHOPBOT_INVENTORY_DIR" default:"./credentials"`
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"SHOPBOT_RATE_LIMIT_WINDOW" default:"1m"`
	MaxPerWindow  int64         `envconfig:"SHOPBOT_RATE_LIMIT_MAX" default:"20"`
	SweepInterval time.Duration `envconfig:"SHOPBOT_RATE_LIMIT_SWEEP_INTERVAL" default:"5m"`
}

type ReminderConfig struct {
	Stage1After time.Duration `envconfig:"SHOPBOT_REMINDER_STAGE1_AFTER" default:"30m"`
	Stage2After time.Duration `envconfig:"SHOPBOT_REMINDER_STAGE2_AFTER" default:"2h"`
	MarkerTTL   time.Duration `envconfig:"SHOPBOT_REMINDER_MARKER_TTL" default:"24h"`
}

type GatewayConfig struct {
	BaseURL       string        `envconfig:"SHOPBOT_GATEWAY_BASE_URL"`
	APIKey        string        `envconfig:"SHOPBOT_GATEWAY_API_KEY"`
	InvoiceExpiry time.Duration `envconfig:"SHOPBOT_GATEWAY_INVOICE_EXPIRY" default:"24h"`
	Timeout       time.Duration `envconfig:"SHOPBOT_GATEWAY_TIMEOUT" default:"15s"`
}

type PaymentConfig struct {
	EnabledMethods []string `envconfig:"SHOPBOT_PAYMENT_METHODS" default:"gateway,ewallet,bank,qris"`
	EwalletName    string   `envconfig:"SHOPBOT_PAYMENT_EWALLET_NAME" default:"DANA"`
	EwalletAccount string   `envconfig:"SHOPBOT_PAYMENT_EWALLET_ACCOUNT"`
	BankName       string   `envconfig:"SHOPBOT_PAYMENT_BANK_NAME" default:"BCA"`
	BankAccount    string   `envconfig:"SHOPBOT_PAYMENT_BANK_ACCOUNT"`
	BankHolder     string   `envconfig:"SHOPBOT_PAYMENT_BANK_HOLDER"`
	QRContent      string   `envconfig:"SHOPBOT_PAYMENT_QR_CONTENT"`
}

type WebhookConfig struct {
	Token string `envconfig:"SHOPBOT_WEBHOOK_TOKEN"`
}

type TransportConfig struct {
	BaseURL string        `envconfig:"SHOPBOT_TRANSPORT_BASE_URL"`
	Token   string        `envconfig:"SHOPBOT_TRANSPORT_TOKEN"`
	AdminID string        `envconfig:"SHOPBOT_TRANSPORT_ADMIN_ID"`
	Timeout time.Duration `envconfig:"SHOPBOT_TRANSPORT_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SHOPBOT_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"SHOPBOT_CRON_LOCK_TTL" default:"14m"`
}

type AdminConfig struct {
	APIToken string `envconfig:"SHOPBOT_ADMIN_API_TOKEN"`
}
