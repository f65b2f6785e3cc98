package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	HTTPPort    string
	DatabaseURL string
	RedisURL    string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Business configuration, constructed once here and threaded down into
	// the rate resolver, fee calculator and wizard as parameters.
	ReferenceCurrency string
	ViewedCountry     string
	FeeRate           float64
	RateMarkup        float64
	BrandPrefix       string

	RateRefreshInterval time.Duration
	PendingWindow       time.Duration
	SecuringDelay       time.Duration
	CompleteStagger     time.Duration
	AutoPrintReceipts   bool

	PublicRateLimitRPS int
	AuthRateLimitRPS   int
	LogLevel           string
	IdempotencyTTL     time.Duration
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	bindEnv(v, "port", "PORT", "RJB_PORT")
	bindEnv(v, "database_url", "DATABASE_URL", "RJB_DATABASE_URL")
	bindEnv(v, "redis_url", "REDIS_URL", "RJB_REDIS_URL")
	bindEnv(v, "jwt_secret", "JWT_SECRET", "RJB_JWT_SECRET")
	bindEnv(v, "jwt_issuer", "JWT_ISSUER", "RJB_JWT_ISSUER")
	bindEnv(v, "jwt_audience", "JWT_AUDIENCE", "RJB_JWT_AUDIENCE")
	bindEnv(v, "reference_currency", "REFERENCE_CURRENCY", "RJB_REFERENCE_CURRENCY")
	bindEnv(v, "viewed_country", "VIEWED_COUNTRY", "RJB_VIEWED_COUNTRY")
	bindEnv(v, "fee_rate", "FEE_RATE", "RJB_FEE_RATE")
	bindEnv(v, "rate_markup", "RATE_MARKUP", "RJB_RATE_MARKUP")
	bindEnv(v, "brand_prefix", "BRAND_PREFIX", "RJB_BRAND_PREFIX")
	bindEnv(v, "rate_refresh_interval", "RATE_REFRESH_INTERVAL", "RJB_RATE_REFRESH_INTERVAL")
	bindEnv(v, "pending_window", "PENDING_WINDOW", "RJB_PENDING_WINDOW")
	bindEnv(v, "securing_delay", "SECURING_DELAY", "RJB_SECURING_DELAY")
	bindEnv(v, "complete_stagger", "COMPLETE_STAGGER", "RJB_COMPLETE_STAGGER")
	bindEnv(v, "auto_print_receipts", "AUTO_PRINT_RECEIPTS", "RJB_AUTO_PRINT_RECEIPTS")
	bindEnv(v, "public_rate_limit_rps", "PUBLIC_RATE_LIMIT_RPS", "RJB_PUBLIC_RATE_LIMIT_RPS")
	bindEnv(v, "auth_rate_limit_rps", "AUTH_RATE_LIMIT_RPS", "RJB_AUTH_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "RJB_LOG_LEVEL")
	bindEnv(v, "idempotency_ttl", "IDEMPOTENCY_TTL", "RJB_IDEMPOTENCY_TTL")

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "rjbtranz")
	v.SetDefault("jwt_audience", "rjbtranz-console")
	v.SetDefault("reference_currency", "USD")
	v.SetDefault("viewed_country", "Ghana")
	v.SetDefault("fee_rate", 0.05)
	v.SetDefault("rate_markup", 0.05)
	v.SetDefault("brand_prefix", "RJB")
	v.SetDefault("rate_refresh_interval", "45s")
	v.SetDefault("pending_window", "72h")
	v.SetDefault("securing_delay", "2s")
	v.SetDefault("complete_stagger", "400ms")
	v.SetDefault("auto_print_receipts", true)
	v.SetDefault("public_rate_limit_rps", 10)
	v.SetDefault("auth_rate_limit_rps", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("idempotency_ttl", "24h")

	refreshInterval, err := time.ParseDuration(v.GetString("rate_refresh_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_REFRESH_INTERVAL: %w", err)
	}
	pendingWindow, err := time.ParseDuration(v.GetString("pending_window"))
	if err != nil {
		return nil, fmt.Errorf("invalid PENDING_WINDOW: %w", err)
	}
	securingDelay, err := time.ParseDuration(v.GetString("securing_delay"))
	if err != nil {
		return nil, fmt.Errorf("invalid SECURING_DELAY: %w", err)
	}
	stagger, err := time.ParseDuration(v.GetString("complete_stagger"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETE_STAGGER: %w", err)
	}
	ttl, err := time.ParseDuration(v.GetString("idempotency_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	cfg := &Config{
		HTTPPort:            v.GetString("port"),
		DatabaseURL:         v.GetString("database_url"),
		RedisURL:            v.GetString("redis_url"),
		JWTSecret:           v.GetString("jwt_secret"),
		JWTIssuer:           v.GetString("jwt_issuer"),
		JWTAudience:         v.GetString("jwt_audience"),
		ReferenceCurrency:   strings.ToUpper(v.GetString("reference_currency")),
		ViewedCountry:       v.GetString("viewed_country"),
		FeeRate:             v.GetFloat64("fee_rate"),
		RateMarkup:          v.GetFloat64("rate_markup"),
		BrandPrefix:         strings.ToUpper(v.GetString("brand_prefix")),
		RateRefreshInterval: refreshInterval,
		PendingWindow:       pendingWindow,
		SecuringDelay:       securingDelay,
		CompleteStagger:     stagger,
		AutoPrintReceipts:   v.GetBool("auto_print_receipts"),
		PublicRateLimitRPS:  max(v.GetInt("public_rate_limit_rps"), 1),
		AuthRateLimitRPS:    max(v.GetInt("auth_rate_limit_rps"), 1),
		LogLevel:            v.GetString("log_level"),
		IdempotencyTTL:      ttl,
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		return nil, fmt.Errorf("FEE_RATE must be in [0, 1)")
	}
	if cfg.RateMarkup < 0 || cfg.RateMarkup >= 1 {
		return nil, fmt.Errorf("RATE_MARKUP must be in [0, 1)")
	}
	if len(cfg.BrandPrefix) != 3 {
		return nil, fmt.Errorf("BRAND_PREFIX must be exactly 3 letters")
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
