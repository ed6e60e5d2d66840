package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config aggregates every tunable the service reads from the environment.
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Escrow        EscrowConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

// Load parses the environment into a Config and derives the DB DSN when needed.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Escrow.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRYPTOMART_APP_ENV" required:"true"`
	Port         string `envconfig:"CRYPTOMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRYPTOMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRYPTOMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CRYPTOMART_DB_DSN"`
	Driver string `envconfig:"CRYPTOMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRYPTOMART_DB_HOST"`
	LegacyPort     int    `envconfig:"CRYPTOMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRYPTOMART_DB_USER"`
	LegacyPassword string `envconfig:"CRYPTOMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRYPTOMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRYPTOMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRYPTOMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRYPTOMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRYPTOMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRYPTOMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRYPTOMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRYPTOMART_REDIS_ADDR"`
	Password     string        `envconfig:"CRYPTOMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRYPTOMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRYPTOMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRYPTOMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRYPTOMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRYPTOMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRYPTOMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CRYPTOMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CRYPTOMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CRYPTOMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CRYPTOMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CRYPTOMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CRYPTOMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CRYPTOMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CRYPTOMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CRYPTOMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRYPTOMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRYPTOMART_AUTO_MIGRATE" default:"false"`
}

// EscrowConfig controls escrow fees and payment windows.
type EscrowConfig struct {
	FeeRate        string        `envconfig:"CRYPTOMART_ESCROW_FEE_RATE" default:"0.01"`
	PaymentWindow  time.Duration `envconfig:"CRYPTOMART_ESCROW_PAYMENT_WINDOW" default:"24h"`
	ExpirySweep    time.Duration `envconfig:"CRYPTOMART_ESCROW_EXPIRY_SWEEP_INTERVAL" default:"5m"`
	ExpirySweepMax int           `envconfig:"CRYPTOMART_ESCROW_EXPIRY_SWEEP_BATCH" default:"200"`
}

// FeeRateDecimal parses the configured escrow fee rate.
func (e EscrowConfig) FeeRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.FeeRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (e EscrowConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.FeeRate))
	if err != nil {
		return fmt.Errorf("invalid escrow fee rate %q: %w", e.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("escrow fee rate %q must be in [0,1)", e.FeeRate)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRYPTOMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CRYPTOMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRYPTOMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic            string `envconfig:"CRYPTOMART_PUBSUB_ORDERS_TOPIC" default:"cm-order-events"`
	OrdersSubscription     string `envconfig:"CRYPTOMART_PUBSUB_ORDERS_SUBSCRIPTION"`
	ModerationTopic        string `envconfig:"CRYPTOMART_PUBSUB_MODERATION_TOPIC" default:"cm-moderation-events"`
	ModerationSubscription string `envconfig:"CRYPTOMART_PUBSUB_MODERATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CRYPTOMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CRYPTOMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CRYPTOMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
