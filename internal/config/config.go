package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	HealthAdminKey      string
	FrontendURLEndsWith string
	DevPassword         string

	// Certificate classification window: certificates expiring within this
	// many days read as "expiring".
	CertExpiryWindowDays int

	// Fit scorer thresholds. Zero values fall back to the scorer defaults.
	FitVolumeComfortRatio decimal.Decimal
	FitGHGMarginPts       decimal.Decimal

	// Bid approval rules. Zero thresholds disable the corresponding rule.
	ApprovalMode             string // "sequential" or "parallel"
	ApprovalMinUnitPrice     decimal.Decimal
	ApprovalMaxContractValue decimal.Decimal

	// Default delivery tolerance applied to materialized contracts.
	DefaultTolerancePct decimal.Decimal
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	expiryWindow := viper.GetInt("CERT_EXPIRY_WINDOW_DAYS")
	if expiryWindow == 0 {
		expiryWindow = 30
	}

	tolerance := decimalFromEnv("DEFAULT_TOLERANCE_PCT")
	if tolerance.IsZero() {
		tolerance = decimal.NewFromInt(10)
	}

	mode := strings.ToLower(viper.GetString("APPROVAL_MODE"))
	if mode == "" {
		mode = "sequential"
	}

	return &Config{
		Env:                      env,
		Port:                     port,
		DatabaseURL:              dbURL,
		RedisURL:                 viper.GetString("REDIS_URL"),
		HealthAdminKey:           viper.GetString("HEALTH_ADMIN_KEY"),
		FrontendURLEndsWith:      viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:              viper.GetString("DEV_PASSWORD"),
		CertExpiryWindowDays:     expiryWindow,
		FitVolumeComfortRatio:    decimalFromEnv("FIT_VOLUME_COMFORT_RATIO"),
		FitGHGMarginPts:          decimalFromEnv("FIT_GHG_MARGIN_PTS"),
		ApprovalMode:             mode,
		ApprovalMinUnitPrice:     decimalFromEnv("APPROVAL_MIN_UNIT_PRICE"),
		ApprovalMaxContractValue: decimalFromEnv("APPROVAL_MAX_CONTRACT_VALUE"),
		DefaultTolerancePct:      tolerance,
	}, nil
}

// decimalFromEnv parses a decimal env value, returning zero on empty or
// malformed input.
func decimalFromEnv(key string) decimal.Decimal {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
