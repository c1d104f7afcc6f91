package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Square   SquareConfig
	Checkout CheckoutConfig
	Account  AccountConfig
	CORS     CORSConfig
	Flags    FeatureFlagsConfig
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
	Env          string `envconfig:"TREADLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"TREADLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TREADLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TREADLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TREADLINE_DB_DSN"`
	Driver string `envconfig:"TREADLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TREADLINE_DB_HOST"`
	Port     int    `envconfig:"TREADLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"TREADLINE_DB_USER"`
	Password string `envconfig:"TREADLINE_DB_PASSWORD"`
	Name     string `envconfig:"TREADLINE_DB_NAME"`
	SSLMode  string `envconfig:"TREADLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TREADLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TREADLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TREADLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TREADLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TREADLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TREADLINE_REDIS_ADDR"`
	Password     string        `envconfig:"TREADLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TREADLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TREADLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TREADLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TREADLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TREADLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TREADLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TREADLINE_JWT_SECRET"`
	Issuer            string `envconfig:"TREADLINE_JWT_ISSUER" default:"treadline"`
	ExpirationMinutes int    `envconfig:"TREADLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"TREADLINE_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"TREADLINE_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"TREADLINE_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	SessionTTL         time.Duration `envconfig:"TREADLINE_CHECKOUT_SESSION_TTL" default:"2h"`
	IntentLockTTL      time.Duration `envconfig:"TREADLINE_CHECKOUT_INTENT_LOCK_TTL" default:"30s"`
	IntentMaxAttempts  int           `envconfig:"TREADLINE_CHECKOUT_INTENT_MAX_ATTEMPTS" default:"3"`
	IntentRetryBackoff time.Duration `envconfig:"TREADLINE_CHECKOUT_INTENT_RETRY_BACKOFF" default:"250ms"`
	OrderMaxAttempts   int           `envconfig:"TREADLINE_CHECKOUT_ORDER_MAX_ATTEMPTS" default:"2"`
}

type AccountConfig struct {
	BaseURL string        `envconfig:"TREADLINE_ACCOUNT_API_URL"`
	Timeout time.Duration `envconfig:"TREADLINE_ACCOUNT_API_TIMEOUT" default:"5s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TREADLINE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TREADLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TREADLINE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
