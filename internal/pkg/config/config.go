package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	CORS       CORSConfig
	Log        LogConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Capacity   CapacityConfig
	Allocation AllocationConfig
	Pricing    PricingConfig
	Sweeper    SweeperConfig
	Payment    PaymentConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"placements"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

// Tokens are issued by the platform's identity service; this service only validates them.
type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"` // postgres | memory
}

type CapacityConfig struct {
	// kind=max or kind:scope=max, comma separated
	Pools string `envconfig:"CAPACITY_POOLS" default:"banner=4,promotion=12"`
}

type AllocationConfig struct {
	AllowedDurations   []int         `envconfig:"ALLOWED_DURATION_DAYS" default:"7,14,30"`
	Currency           string        `envconfig:"CURRENCY" default:"USD"`
	StaleRetries       int           `envconfig:"STALE_STATE_RETRIES" default:"3"`
	ReserveMaxAttempts int           `envconfig:"RESERVE_MAX_ATTEMPTS" default:"5"`
	ReserveBaseBackoff time.Duration `envconfig:"RESERVE_BASE_BACKOFF" default:"20ms"`
	LockTimeout        time.Duration `envconfig:"LOCK_TIMEOUT" default:"2s"` // 0 waits forever
	IdempotencyTTL     time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type PricingConfig struct {
	BannerDailyRate    string `envconfig:"PRICE_BANNER_DAILY" default:"9.99"`
	PromotionDailyRate string `envconfig:"PRICE_PROMOTION_DAILY" default:"6.43"`
}

type SweeperConfig struct {
	Interval        time.Duration `envconfig:"SWEEP_INTERVAL" default:"2m"`
	CheckoutGrace   time.Duration `envconfig:"CHECKOUT_GRACE" default:"30m"`
	AssignmentGrace time.Duration `envconfig:"ASSIGNMENT_GRACE" default:"0s"` // 0 disables
	BatchSize       int           `envconfig:"SWEEP_BATCH_SIZE" default:"100"`
}

type PaymentConfig struct {
	Driver        string        `envconfig:"PAYMENT_DRIVER" default:"sandbox"` // http | sandbox
	BaseURL       string        `envconfig:"PAYMENT_BASE_URL"`
	APIKey        string        `envconfig:"PAYMENT_API_KEY"`
	WebhookSecret string        `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`
	Timeout       time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	RatePerSecond float64       `envconfig:"PAYMENT_RATE_PER_SECOND" default:"20"`
	Burst         int           `envconfig:"PAYMENT_RATE_BURST" default:"40"`
	MaxAttempts   int           `envconfig:"PAYMENT_MAX_ATTEMPTS" default:"3"`
	BaseBackoff   time.Duration `envconfig:"PAYMENT_BASE_BACKOFF" default:"200ms"`
}

type PoolSpec struct {
	Kind      string
	Scope     string
	MaxActive int
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// ParsePools reads "banner=4,promotion=12,banner:vehicle=2".
func (c CapacityConfig) ParsePools() ([]PoolSpec, error) {
	var specs []PoolSpec
	seen := make(map[string]bool)
	for _, raw := range strings.Split(c.Pools, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid pool entry %q: expected kind[:scope]=max", raw)
		}
		max, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || max < 0 {
			return nil, fmt.Errorf("invalid max for pool %q", raw)
		}
		kind, scope, _ := strings.Cut(strings.TrimSpace(key), ":")
		if kind == "" {
			return nil, fmt.Errorf("invalid pool entry %q: empty kind", raw)
		}
		id := kind + ":" + scope
		if seen[id] {
			return nil, fmt.Errorf("duplicate pool %q", id)
		}
		seen[id] = true
		specs = append(specs, PoolSpec{Kind: kind, Scope: scope, MaxActive: max})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no capacity pools configured")
	}
	return specs, nil
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "UTC",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Capacity: CapacityConfig{
			Pools: "banner=4,promotion=12",
		},
		Allocation: AllocationConfig{
			AllowedDurations:   []int{7, 14, 30},
			Currency:           "USD",
			StaleRetries:       3,
			ReserveMaxAttempts: 5,
			ReserveBaseBackoff: 20 * time.Millisecond,
			LockTimeout:        2 * time.Second,
			IdempotencyTTL:     24 * time.Hour,
		},
		Pricing: PricingConfig{
			BannerDailyRate:    "9.99",
			PromotionDailyRate: "6.43",
		},
		Sweeper: SweeperConfig{
			Interval:      time.Minute,
			CheckoutGrace: 30 * time.Minute,
			BatchSize:     100,
		},
		Payment: PaymentConfig{
			Driver:        "sandbox",
			WebhookSecret: "whsec_test",
			Timeout:       time.Second,
			RatePerSecond: 100,
			Burst:         100,
			MaxAttempts:   3,
			BaseBackoff:   time.Millisecond,
		},
	}
}
