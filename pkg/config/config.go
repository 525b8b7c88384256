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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	S3           S3Config
	LightX       LightXConfig
	Vton         VtonConfig
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
	Env          string `envconfig:"STYLEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"STYLEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STYLEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STYLEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STYLEHUB_DB_DSN"`
	Driver string `envconfig:"STYLEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STYLEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"STYLEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STYLEHUB_DB_USER"`
	LegacyPassword string `envconfig:"STYLEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"STYLEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"STYLEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STYLEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STYLEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STYLEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STYLEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STYLEHUB_REDIS_URL"`
	Address      string        `envconfig:"STYLEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"STYLEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"STYLEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STYLEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STYLEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STYLEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STYLEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STYLEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STYLEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STYLEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STYLEHUB_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STYLEHUB_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"STYLEHUB_STRIPE_API_KEY"`
	Env      string `envconfig:"STYLEHUB_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"STYLEHUB_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type S3Config struct {
	Region            string        `envconfig:"STYLEHUB_S3_REGION" required:"true"`
	BucketName        string        `envconfig:"STYLEHUB_S3_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"STYLEHUB_S3_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"STYLEHUB_S3_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type LightXConfig struct {
	APIKey  string        `envconfig:"STYLEHUB_LIGHTX_API_KEY"`
	BaseURL string        `envconfig:"STYLEHUB_LIGHTX_BASE_URL" default:"https://api.lightxeditor.com/external/api/v2"`
	Timeout time.Duration `envconfig:"STYLEHUB_LIGHTX_TIMEOUT" default:"30s"`
}

type VtonConfig struct {
	PollInterval     time.Duration `envconfig:"STYLEHUB_VTON_POLL_INTERVAL" default:"3s"`
	MaxAttempts      int           `envconfig:"STYLEHUB_VTON_MAX_ATTEMPTS" default:"20"`
	GenerateLimit    int64         `envconfig:"STYLEHUB_VTON_GENERATE_LIMIT" default:"5"`
	GenerateLimitWin time.Duration `envconfig:"STYLEHUB_VTON_GENERATE_LIMIT_WINDOW" default:"1m"`
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
