package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every Soukly environment variable.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOUKLY_DB_DSN"
	EnvDBHost = "SOUKLY_DB_HOST"
	EnvDBUser = "SOUKLY_DB_USER"
	EnvDBName = "SOUKLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Escrow       EscrowConfig
	Carriers     CarriersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SOUKLY_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUKLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUKLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUKLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SOUKLY_DB_DSN"`
	Driver string `envconfig:"SOUKLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUKLY_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUKLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUKLY_DB_USER"`
	LegacyPassword string `envconfig:"SOUKLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUKLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUKLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUKLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUKLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUKLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUKLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUKLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUKLY_REDIS_ADDR"`
	Password     string        `envconfig:"SOUKLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUKLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUKLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUKLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUKLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUKLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUKLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUKLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUKLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOUKLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOUKLY_AUTO_MIGRATE" default:"false"`
}

// EscrowConfig drives fee computation and the buyer-protection settlement sweep.
type EscrowConfig struct {
	FeeRateBps           int           `envconfig:"SOUKLY_ESCROW_FEE_RATE_BPS" default:"500"`
	ProtectionWindow     time.Duration `envconfig:"SOUKLY_ESCROW_PROTECTION_WINDOW" default:"48h"`
	SweepInterval        time.Duration `envconfig:"SOUKLY_ESCROW_SWEEP_INTERVAL" default:"10m"`
	SweepBatchSize       int           `envconfig:"SOUKLY_ESCROW_SWEEP_BATCH_SIZE" default:"100"`
	WebhookDedupeTTL     time.Duration `envconfig:"SOUKLY_WEBHOOK_DEDUPE_TTL" default:"168h"`
	WebhookGuardConsumer string        `envconfig:"SOUKLY_WEBHOOK_GUARD_CONSUMER" default:"carrier-webhook"`
}

// FeeRate converts the configured basis points to a decimal rate string, e.g. "0.05".
func (e EscrowConfig) FeeRate() float64 {
	return float64(e.FeeRateBps) / 10000
}

type CarriersConfig struct {
	AmanaBaseURL    string        `envconfig:"SOUKLY_CARRIER_AMANA_BASE_URL" default:"https://api.amana.ma/v1"`
	AmanaAPIKey     string        `envconfig:"SOUKLY_CARRIER_AMANA_API_KEY"`
	CTMBaseURL      string        `envconfig:"SOUKLY_CARRIER_CTM_BASE_URL" default:"https://api.ctm.ma/messagerie"`
	CTMAPIKey       string        `envconfig:"SOUKLY_CARRIER_CTM_API_KEY"`
	CathedisBaseURL string        `envconfig:"SOUKLY_CARRIER_CATHEDIS_BASE_URL" default:"https://api.cathedis.delivery/v2"`
	CathedisAPIKey  string        `envconfig:"SOUKLY_CARRIER_CATHEDIS_API_KEY"`
	HTTPTimeout     time.Duration `envconfig:"SOUKLY_CARRIER_HTTP_TIMEOUT" default:"10s"`
	MaxRetries      uint64        `envconfig:"SOUKLY_CARRIER_MAX_RETRIES" default:"3"`
	RetryBackoff    time.Duration `envconfig:"SOUKLY_CARRIER_RETRY_BACKOFF" default:"250ms"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SOUKLY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SOUKLY_PUBSUB_DOMAIN_TOPIC" default:"soukly-domain-events"`
	DomainSubscription string `envconfig:"SOUKLY_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOUKLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOUKLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOUKLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
