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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Otp          OtpConfig
	Referral     ReferralConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"SABZICO_APP_ENV" required:"true"`
	Port         string `envconfig:"SABZICO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SABZICO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SABZICO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SABZICO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SABZICO_DB_DSN"`
	Driver string `envconfig:"SABZICO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SABZICO_DB_HOST"`
	LegacyPort     int    `envconfig:"SABZICO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SABZICO_DB_USER"`
	LegacyPassword string `envconfig:"SABZICO_DB_PASSWORD"`
	LegacyName     string `envconfig:"SABZICO_DB_NAME"`
	LegacySSLMode  string `envconfig:"SABZICO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SABZICO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SABZICO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SABZICO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SABZICO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SABZICO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SABZICO_REDIS_ADDR"`
	Password     string        `envconfig:"SABZICO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SABZICO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SABZICO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SABZICO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SABZICO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SABZICO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SABZICO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SABZICO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SABZICO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SABZICO_JWT_EXPIRATION_MINUTES" default:"60"`
}

// OtpConfig bounds OTP verification attempts per delivery or return.
type OtpConfig struct {
	AttemptLimit  int64         `envconfig:"SABZICO_OTP_ATTEMPT_LIMIT" default:"10"`
	AttemptWindow time.Duration `envconfig:"SABZICO_OTP_ATTEMPT_WINDOW" default:"1m"`
}

// ReferralConfig parameterizes cashback and referral reward math. Percent
// values are decimal strings so fractional rates survive env parsing.
type ReferralConfig struct {
	CashbackPercent    string `envconfig:"SABZICO_REFERRAL_CASHBACK_PERCENT" default:"5"`
	RewardPercent      string `envconfig:"SABZICO_REFERRAL_REWARD_PERCENT" default:"10"`
	RewardCapPaise     int64  `envconfig:"SABZICO_REFERRAL_REWARD_CAP_PAISE" default:"50000"`
	MinOrderValuePaise int64  `envconfig:"SABZICO_REFERRAL_MIN_ORDER_VALUE_PAISE" default:"0"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SABZICO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SABZICO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SABZICO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SABZICO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SABZICO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	FulfillmentTopic         string `envconfig:"SABZICO_PUBSUB_FULFILLMENT_TOPIC" required:"true"`
	FulfillmentSubscription  string `envconfig:"SABZICO_PUBSUB_FULFILLMENT_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"SABZICO_PUBSUB_NOTIFICATION_TOPIC" default:"sbz-notification-events"`
	NotificationSubscription string `envconfig:"SABZICO_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SABZICO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SABZICO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SABZICO_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
