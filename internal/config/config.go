package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPPort           string
	PublicBaseURL      string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	JWTSecret string
	JWTIssuer string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrationsPath string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartCacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	StripeSecretKey    string
	Currency           string
	PaymentTimeout     time.Duration
	CheckoutSessionTTL time.Duration
	// CheckoutReturnURL is the storefront page the processor sends the browser back to.
	// Empty means the API's own unauthenticated return endpoints.
	CheckoutReturnURL string

	CatalogBaseURL string
	CatalogAPIKey  string
	CatalogTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		MaxRequestBodySize: 1 << 20, // 1MB

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", "bookshop"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "bookshop"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "bookshop"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "bookshop.orders"),

		StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
		Currency:          strings.ToLower(getEnv("CURRENCY", "inr")),
		CheckoutReturnURL: getEnv("CHECKOUT_RETURN_URL", ""),

		CatalogBaseURL: getEnv("CATALOG_BASE_URL", "https://www.googleapis.com/books/v1"),
		CatalogAPIKey:  getEnv("CATALOG_API_KEY", ""),
	}

	var err error
	if cfg.DBPort, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", 30 * time.Second, &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
		{"CART_CACHE_TTL", 15 * time.Minute, &cfg.CartCacheTTL},
		{"PAYMENT_TIMEOUT", 10 * time.Second, &cfg.PaymentTimeout},
		{"CHECKOUT_SESSION_TTL", 24 * time.Hour, &cfg.CheckoutSessionTTL},
		{"CATALOG_TIMEOUT", 5 * time.Second, &cfg.CatalogTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.DBPassword == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY must be a 3-letter ISO code, got %q", c.Currency))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.CheckoutReturnURL != "" {
		u, err := url.ParseRequestURI(c.CheckoutReturnURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("CHECKOUT_RETURN_URL must be an absolute http(s) URL, got %q", c.CheckoutReturnURL))
		}
	}
	return errors.Join(errs...)
}

// CheckoutURLs returns the processor's success and cancel redirect targets.
// sessionPlaceholder is substituted by the processor with the session id.
func (c *Config) CheckoutURLs(sessionPlaceholder string) (success, cancel string) {
	if c.CheckoutReturnURL == "" {
		base := c.PublicBaseURL + "/api/v1/checkout"
		return base + "/return?session_id=" + sessionPlaceholder, base + "/cancel"
	}
	sep := "?"
	if strings.Contains(c.CheckoutReturnURL, "?") {
		sep = "&"
	}
	return c.CheckoutReturnURL + sep + "session_id=" + sessionPlaceholder,
		c.CheckoutReturnURL + sep + "cancelled=true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
