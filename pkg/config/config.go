package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	OTP           OTPConfig
	SellAuth      SellAuthConfig
	Mail          MailConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// OTPConfig controls the emailed one-time login codes.
type OTPConfig struct {
	CodeTTL          time.Duration `envconfig:"STOREFRONT_OTP_CODE_TTL" default:"10m"`
	MaxAttempts      int           `envconfig:"STOREFRONT_OTP_MAX_ATTEMPTS" default:"5"`
	ArgonMemoryKB    int           `envconfig:"STOREFRONT_OTP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"STOREFRONT_OTP_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"STOREFRONT_OTP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"STOREFRONT_OTP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"STOREFRONT_OTP_ARGON_KEY_LEN" default:"32"`
}

// SellAuthConfig wires the hosted checkout embed.
type SellAuthConfig struct {
	ShopID                int64         `envconfig:"STOREFRONT_SELLAUTH_SHOP_ID" default:"0"`
	ScriptURL             string        `envconfig:"STOREFRONT_SELLAUTH_SCRIPT_URL" default:"https://cdn.sellauth.com/assets/js/embed-2.js"`
	APIBaseURL            string        `envconfig:"STOREFRONT_SELLAUTH_API_BASE_URL" default:"https://api.sellauth.com"`
	PollInterval          time.Duration `envconfig:"STOREFRONT_SELLAUTH_POLL_INTERVAL" default:"100ms"`
	ScriptTimeout         time.Duration `envconfig:"STOREFRONT_SELLAUTH_SCRIPT_TIMEOUT" default:"5s"`
	ExistingScriptTimeout time.Duration `envconfig:"STOREFRONT_SELLAUTH_EXISTING_SCRIPT_TIMEOUT" default:"10s"`
	SettleDelay           time.Duration `envconfig:"STOREFRONT_SELLAUTH_SETTLE_DELAY" default:"1s"`
	FallbackURL           string        `envconfig:"STOREFRONT_SELLAUTH_FALLBACK_URL"`
}

// Configured reports whether checkout can be attempted at all.
func (s SellAuthConfig) Configured() bool {
	return s.ShopID > 0
}

type MailConfig struct {
	APIKey      string `envconfig:"STOREFRONT_MAIL_API_KEY"`
	BaseURL     string `envconfig:"STOREFRONT_MAIL_BASE_URL" default:"https://api.sendgrid.com"`
	DefaultFrom string `envconfig:"STOREFRONT_MAIL_FROM_EMAIL" default:"login@acctbay.io"`
}

type AuthRateLimitConfig struct {
	OTPWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_WINDOW" default:"1m"`
	OTPEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_EMAIL_LIMIT" default:"5"`
	OTPIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
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
