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
	Commerce     CommerceConfig
	Redis        RedisConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.DistributedCheckoutGuard && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s requires %s or %s", EnvDistributedGuard, EnvRedisURL, EnvRedisAddr)
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points the storefront at the remote commerce REST API.
type CommerceConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_COMMERCE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_COMMERCE_TIMEOUT" default:"10s"`

	BreakerMaxFailures uint32        `envconfig:"STOREFRONT_COMMERCE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"STOREFRONT_COMMERCE_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

func (c CommerceConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCommerceBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvCommerceBaseURL)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	// DistributedCheckoutGuard keeps checkout single-flight across replicas via redis.
	DistributedCheckoutGuard bool `envconfig:"STOREFRONT_DISTRIBUTED_CHECKOUT_GUARD" default:"false"`
}

type CheckoutConfig struct {
	GuardTTL        time.Duration `envconfig:"STOREFRONT_CHECKOUT_GUARD_TTL" default:"30m"`
	SessionIdleTTL  time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"2h"`
	DefaultCurrency string        `envconfig:"STOREFRONT_DEFAULT_CURRENCY" default:"INR"`

	// PaymentWindow is how long an attempt may wait on the payment collector.
	// It must end before the guard TTL so a waiting attempt never outlives its claim.
	PaymentWindow time.Duration `envconfig:"STOREFRONT_CHECKOUT_PAYMENT_WINDOW" default:"20m"`

	// AttemptRetention is how long settled attempts stay readable in memory.
	AttemptRetention     time.Duration `envconfig:"STOREFRONT_CHECKOUT_ATTEMPT_RETENTION" default:"24h"`
	HousekeepingInterval time.Duration `envconfig:"STOREFRONT_HOUSEKEEPING_INTERVAL" default:"5m"`
}

func (c CheckoutConfig) validate() error {
	if c.PaymentWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentWindow)
	}
	if c.PaymentWindow >= c.GuardTTL {
		return fmt.Errorf("%s (%s) must be shorter than %s (%s)", EnvPaymentWindow, c.PaymentWindow, EnvGuardTTL, c.GuardTTL)
	}
	return nil
}

// GatewayConfig carries the public values the UI needs to open the payment collector.
type GatewayConfig struct {
	KeyID        string `envconfig:"STOREFRONT_GATEWAY_KEY_ID"`
	MerchantName string `envconfig:"STOREFRONT_GATEWAY_MERCHANT_NAME" default:"Bookstore"`
}

// AuthConfig controls how bearer credentials issued by the commerce backend are read.
// With an empty secret only the expiry is checked; signatures are left to the backend.
type AuthConfig struct {
	JWTSecret string        `envconfig:"STOREFRONT_AUTH_JWT_SECRET"`
	JWTIssuer string        `envconfig:"STOREFRONT_AUTH_JWT_ISSUER"`
	ClockSkew time.Duration `envconfig:"STOREFRONT_AUTH_CLOCK_SKEW" default:"30s"`
}

// VerifiesSignature reports whether credentials are checked against a shared secret.
func (a AuthConfig) VerifiesSignature() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

// RateLimitConfig throttles checkout starts. Limits apply only when redis is configured.
type RateLimitConfig struct {
	CheckoutWindow       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutSessionLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_SESSION" default:"10"`
	CheckoutIPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
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
