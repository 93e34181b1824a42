// Package config loads all runtime configuration from environment
// variables. main() calls MustLoad once; everything downstream receives
// the resulting *Config by injection.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig covers both HTTP listeners.
type ServerConfig struct {
	Port                 string
	BackofficePort       string
	Env                  string // "development" | "production"
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	BackofficeAllowedIPs string // comma-separated; "" = allow all
}

// DBConfig holds the PostgreSQL connection and pool settings.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds the token signing secrets and lifetimes. Both secrets
// are required; Validate rejects a config without them.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// MarketConfig holds settlement scheduling and policy settings.
type MarketConfig struct {
	SettleInterval    time.Duration // how often due listings are scanned, default 5s
	BroadcastInterval time.Duration // active-listing summary push period, default 5s

	// Settlement policy. See domain.Policy for semantics.
	MaxPriceDrops         int  // default 2
	SellOnPriceClear      bool // default true
	ExpireBidlessAuctions bool // default true
	AllowUnlistWithBids   bool // default false
}

// FeedbackConfig holds rating/report limits.
type FeedbackConfig struct {
	MinReportDescription int // default 20 characters
	MaxEvidenceURLs      int // default 5
}

// RedisConfig holds the optional pub/sub fan-out settings. An empty Addr
// disables Redis; realtime events then go straight to the local WS hub.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"; "" = disabled
	Password string
	DB       int
	Channel  string // pub/sub channel name, default "mealmarket:events"
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration record shared by both servers.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	Market   MarketConfig
	Feedback FeedbackConfig
	Redis    RedisConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate reports every missing or out-of-range value at once, joined,
// so a misconfigured deploy shows the full list instead of failing one
// variable at a time.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Market.MaxPriceDrops < 0 {
		errs = append(errs, fmt.Errorf(
			"MARKET_MAX_PRICE_DROPS must be >= 0, got %d", c.Market.MaxPriceDrops))
	}
	if c.Market.SettleInterval <= 0 {
		errs = append(errs, fmt.Errorf(
			"MARKET_SETTLE_INTERVAL must be positive, got %s", c.Market.SettleInterval))
	}

	if c.Feedback.MinReportDescription < 0 {
		errs = append(errs, fmt.Errorf(
			"FEEDBACK_MIN_REPORT_DESCRIPTION must be >= 0, got %d", c.Feedback.MinReportDescription))
	}
	if c.Feedback.MaxEvidenceURLs < 0 {
		errs = append(errs, fmt.Errorf(
			"FEEDBACK_MAX_EVIDENCE_URLS must be >= 0, got %d", c.Feedback.MaxEvidenceURLs))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton, loading from the environment on first use.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates, panicking on any error so a bad deploy
// dies at boot rather than limping along.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Assemble from DB_* parts when no full DSN is given.
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "mealmarket"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Market / settlement policy ────────────────────────────────────────────
	maxDrops, err := getInt("MARKET_MAX_PRICE_DROPS", 2)
	if err != nil {
		return nil, fmt.Errorf("MARKET_MAX_PRICE_DROPS: %w", err)
	}

	cfg.Market = MarketConfig{
		SettleInterval:        getDuration("MARKET_SETTLE_INTERVAL", 5*time.Second),
		BroadcastInterval:     getDuration("MARKET_BROADCAST_INTERVAL", 5*time.Second),
		MaxPriceDrops:         maxDrops,
		SellOnPriceClear:      getBool("MARKET_SELL_ON_PRICE_CLEAR", true),
		ExpireBidlessAuctions: getBool("MARKET_EXPIRE_BIDLESS_AUCTIONS", true),
		AllowUnlistWithBids:   getBool("MARKET_ALLOW_UNLIST_WITH_BIDS", false),
	}

	// ── Feedback ──────────────────────────────────────────────────────────────
	minDesc, err := getInt("FEEDBACK_MIN_REPORT_DESCRIPTION", 20)
	if err != nil {
		return nil, fmt.Errorf("FEEDBACK_MIN_REPORT_DESCRIPTION: %w", err)
	}
	maxEvidence, err := getInt("FEEDBACK_MAX_EVIDENCE_URLS", 5)
	if err != nil {
		return nil, fmt.Errorf("FEEDBACK_MAX_EVIDENCE_URLS: %w", err)
	}

	cfg.Feedback = FeedbackConfig{
		MinReportDescription: minDesc,
		MaxEvidenceURLs:      maxEvidence,
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		Channel:  getEnv("REDIS_CHANNEL", "mealmarket:events"),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getBool parses "true"/"false"/"1"/"0". Falls back to defaultVal on anything
// unparseable so a typo cannot flip a policy silently at boot.
func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// Policy helpers — translate MarketConfig to the domain policy record.

// PolicyFields returns the settlement policy values as a plain tuple so the
// caller can build a domain.Policy without importing config into domain.
func (m MarketConfig) PolicyFields() (maxDrops int, sellOnClear, expireBidless, allowUnlist bool) {
	return m.MaxPriceDrops, m.SellOnPriceClear, m.ExpireBidlessAuctions, m.AllowUnlistWithBids
}

// LimitFields returns the report content limits as a plain tuple so the
// caller can build a domain.ReportLimits without importing config into domain.
func (f FeedbackConfig) LimitFields() (minDescription, maxEvidenceURLs int) {
	return f.MinReportDescription, f.MaxEvidenceURLs
}
