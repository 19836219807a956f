package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
	Inventory InventoryConfig
	Alerts    AlertsConfig
	Events    EventsConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Store           string // postgres or memory
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
	// Continuous profiling
	ProfilingEnabled  bool
	PyroscopeEndpoint string
}

// InventoryConfig holds defaults applied to records created implicitly
type InventoryConfig struct {
	DefaultReorderPoint  int64
	DefaultMaxStockLevel int64
}

// AlertsConfig holds the severity assigned to each alert rule and notification routing
type AlertsConfig struct {
	OutOfStockSeverity string
	LowStockSeverity   string
	OverstockSeverity  string
	NotifyMinSeverity  string
	NotifyChannels     []string
}

// EventsConfig holds event handler settings
type EventsConfig struct {
	IdempotencyStore string // memory or redis
	IdempotencyTTL   time.Duration
}

// CacheConfig holds read cache settings
type CacheConfig struct {
	StockLevelsEnabled bool
	StockLevelsTTL     time.Duration
}

// ReconcileConfig holds the background ledger reconciliation sweep settings
type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
	PageSize int
	Timeout  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCKLEDGER_ prefix (e.g., STOCKLEDGER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stockledger")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOCKLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Store:           v.GetString("database.store"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled: v.GetBool("swagger.enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeEndpoint: v.GetString("telemetry.pyroscope_endpoint"),
		},
		Inventory: InventoryConfig{
			DefaultReorderPoint:  v.GetInt64("inventory.default_reorder_point"),
			DefaultMaxStockLevel: v.GetInt64("inventory.default_max_stock_level"),
		},
		Alerts: AlertsConfig{
			OutOfStockSeverity: v.GetString("alerts.out_of_stock_severity"),
			LowStockSeverity:   v.GetString("alerts.low_stock_severity"),
			OverstockSeverity:  v.GetString("alerts.overstock_severity"),
			NotifyMinSeverity:  v.GetString("alerts.notify_min_severity"),
			NotifyChannels:     v.GetStringSlice("alerts.notify_channels"),
		},
		Events: EventsConfig{
			IdempotencyStore: v.GetString("events.idempotency_store"),
			IdempotencyTTL:   v.GetDuration("events.idempotency_ttl"),
		},
		Cache: CacheConfig{
			StockLevelsEnabled: v.GetBool("cache.stock_levels_enabled"),
			StockLevelsTTL:     v.GetDuration("cache.stock_levels_ttl"),
		},
		Reconcile: ReconcileConfig{
			Enabled:  v.GetBool("reconcile.enabled"),
			Interval: v.GetDuration("reconcile.interval"),
			PageSize: v.GetInt("reconcile.page_size"),
			Timeout:  v.GetDuration("reconcile.timeout"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stockledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Store == "" {
		cfg.Database.Store = StorePostgres
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "stockledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// CORS origins have no wildcard fallback: an empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Actor"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeEndpoint == "" {
		cfg.Telemetry.PyroscopeEndpoint = "http://localhost:4040"
	}
	if cfg.Inventory.DefaultReorderPoint == 0 {
		cfg.Inventory.DefaultReorderPoint = 10
	}
	if cfg.Inventory.DefaultMaxStockLevel == 0 {
		cfg.Inventory.DefaultMaxStockLevel = 1000
	}
	if cfg.Alerts.OutOfStockSeverity == "" {
		cfg.Alerts.OutOfStockSeverity = "high"
	}
	if cfg.Alerts.LowStockSeverity == "" {
		cfg.Alerts.LowStockSeverity = "medium"
	}
	if cfg.Alerts.OverstockSeverity == "" {
		cfg.Alerts.OverstockSeverity = "low"
	}
	if cfg.Alerts.NotifyMinSeverity == "" {
		cfg.Alerts.NotifyMinSeverity = "low"
	}
	if len(cfg.Alerts.NotifyChannels) == 0 {
		cfg.Alerts.NotifyChannels = []string{"in_app"}
	}
	if cfg.Events.IdempotencyStore == "" {
		cfg.Events.IdempotencyStore = "memory"
	}
	if cfg.Events.IdempotencyTTL == 0 {
		cfg.Events.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Cache.StockLevelsTTL == 0 {
		cfg.Cache.StockLevelsTTL = 30 * time.Second
	}
	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = time.Hour
	}
	if cfg.Reconcile.PageSize == 0 {
		cfg.Reconcile.PageSize = 100
	}
	if cfg.Reconcile.Timeout == 0 {
		cfg.Reconcile.Timeout = 10 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("database.store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Database.Store)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Inventory.DefaultReorderPoint < 0 || c.Inventory.DefaultMaxStockLevel < 0 {
		return fmt.Errorf("inventory default thresholds cannot be negative")
	}

	for key, s := range map[string]string{
		"alerts.out_of_stock_severity": c.Alerts.OutOfStockSeverity,
		"alerts.low_stock_severity":    c.Alerts.LowStockSeverity,
		"alerts.overstock_severity":    c.Alerts.OverstockSeverity,
		"alerts.notify_min_severity":   c.Alerts.NotifyMinSeverity,
	} {
		if !validSeverity(s) {
			return fmt.Errorf("%s must be one of low, medium, high, critical, got %q", key, s)
		}
	}

	switch c.Events.IdempotencyStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("events.idempotency_store must be memory or redis, got %q", c.Events.IdempotencyStore)
	}

	if c.App.Env == "production" {
		if c.Database.Store == StoreMemory {
			return fmt.Errorf("database.store cannot be memory in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

func validSeverity(s string) bool {
	switch s {
	case "low", "medium", "high", "critical":
		return true
	}
	return false
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
