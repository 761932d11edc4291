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
	Log       LogConfig
	HTTP      HTTPConfig
	Backend   BackendConfig
	Auth      AuthConfig
	Purchases PurchasesConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Scheduler SchedulerConfig
	Telegram  TelegramConfig
	Telemetry TelemetryConfig
	Mock      MockConfig
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

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// BackendConfig describes the origin the proxy routes forward to
type BackendConfig struct {
	Origin  string // e.g. http://localhost:3011
	Timeout time.Duration
}

// AuthConfig holds the single dashboard credential pair and token settings
type AuthConfig struct {
	Username        string
	Password        string
	PasswordHash    string // bcrypt; takes precedence over Password when set
	Role            string
	JWTSecret       string
	TokenExpiration time.Duration
	Issuer          string
}

// PurchasesConfig selects the purchase store backend
type PurchasesConfig struct {
	Store string // memory, postgres, redis
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
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
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RabbitMQConfig holds RabbitMQ settings for purchase events.
// An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// SchedulerConfig holds the analytics refresh scheduler configuration
type SchedulerConfig struct {
	AnalyticsURL        string
	RefreshPath         string
	HealthPath          string
	Timezone            string
	DailyRefreshCron    string
	PeriodicRefreshCron string
	HealthCheckCron     string
	TickInterval        time.Duration
	RequestTimeout      time.Duration
	RunOnStart          bool
}

// TelegramConfig holds Telegram Bot API settings
type TelegramConfig struct {
	BotToken    string
	APIBaseURL  string
	WebhookURL  string
	SecretToken string
	Timeout     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool    // Expose Prometheus metrics on /metrics
	LogsEnabled       bool    // Bridge zap logs to the OTLP collector
}

// MockConfig holds settings for the mock backend server
type MockConfig struct {
	Port string
	DSN  string // sqlite DSN
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRM_ prefix (e.g., CRM_BACKEND_ORIGIN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

// fromViper builds, defaults and validates a Config from a prepared viper instance
func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("telemetry.metrics_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Backend: BackendConfig{
			Origin:  v.GetString("backend.origin"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Auth: AuthConfig{
			Username:        v.GetString("auth.username"),
			Password:        v.GetString("auth.password"),
			PasswordHash:    v.GetString("auth.password_hash"),
			Role:            v.GetString("auth.role"),
			JWTSecret:       v.GetString("auth.jwt_secret"),
			TokenExpiration: v.GetDuration("auth.token_expiration"),
			Issuer:          v.GetString("auth.issuer"),
		},
		Purchases: PurchasesConfig{
			Store: v.GetString("purchases.store"),
		},
		Database: DatabaseConfig{
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
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
		Scheduler: SchedulerConfig{
			AnalyticsURL:        v.GetString("scheduler.analytics_url"),
			RefreshPath:         v.GetString("scheduler.refresh_path"),
			HealthPath:          v.GetString("scheduler.health_path"),
			Timezone:            v.GetString("scheduler.timezone"),
			DailyRefreshCron:    v.GetString("scheduler.daily_refresh_cron"),
			PeriodicRefreshCron: v.GetString("scheduler.periodic_refresh_cron"),
			HealthCheckCron:     v.GetString("scheduler.health_check_cron"),
			TickInterval:        v.GetDuration("scheduler.tick_interval"),
			RequestTimeout:      v.GetDuration("scheduler.request_timeout"),
			RunOnStart:          v.GetBool("scheduler.run_on_start"),
		},
		Telegram: TelegramConfig{
			BotToken:    v.GetString("telegram.bot_token"),
			APIBaseURL:  v.GetString("telegram.api_base_url"),
			WebhookURL:  v.GetString("telegram.webhook_url"),
			SecretToken: v.GetString("telegram.secret_token"),
			Timeout:     v.GetDuration("telegram.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Mock: MockConfig{
			Port: v.GetString("mock.port"),
			DSN:  v.GetString("mock.dsn"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crm-dashboard"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Accept-Language"}
	}
	if cfg.Backend.Origin == "" {
		cfg.Backend.Origin = "http://localhost:3011"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "admin"
	}
	if cfg.Auth.Password == "" && cfg.Auth.PasswordHash == "" {
		cfg.Auth.Password = "admin123"
	}
	if cfg.Auth.Role == "" {
		cfg.Auth.Role = "admin"
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "crm-dashboard-development-secret"
	}
	if cfg.Auth.TokenExpiration == 0 {
		cfg.Auth.TokenExpiration = 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "crm-dashboard"
	}
	if cfg.Purchases.Store == "" {
		cfg.Purchases.Store = "memory"
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
		cfg.Database.DBName = "crm"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
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
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "crm.events"
	}
	if cfg.Scheduler.AnalyticsURL == "" {
		cfg.Scheduler.AnalyticsURL = "http://localhost:3011"
	}
	if cfg.Scheduler.RefreshPath == "" {
		cfg.Scheduler.RefreshPath = "/api/analytics/refresh"
	}
	if cfg.Scheduler.HealthPath == "" {
		cfg.Scheduler.HealthPath = "/api/analytics/health"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Europe/Moscow"
	}
	if cfg.Scheduler.DailyRefreshCron == "" {
		cfg.Scheduler.DailyRefreshCron = "0 2 * * *"
	}
	if cfg.Scheduler.PeriodicRefreshCron == "" {
		cfg.Scheduler.PeriodicRefreshCron = "0 */4 * * *"
	}
	if cfg.Scheduler.HealthCheckCron == "" {
		cfg.Scheduler.HealthCheckCron = "*/30 * * * *"
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = 15 * time.Second
	}
	if cfg.Scheduler.RequestTimeout == 0 {
		cfg.Scheduler.RequestTimeout = 2 * time.Minute
	}
	if cfg.Telegram.APIBaseURL == "" {
		cfg.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
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
	if cfg.Mock.Port == "" {
		cfg.Mock.Port = "3011"
	}
	if cfg.Mock.DSN == "" {
		cfg.Mock.DSN = "file::memory:?cache=shared"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.Backend.Origin); err != nil {
		return fmt.Errorf("backend.origin is not a valid URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Scheduler.AnalyticsURL); err != nil {
		return fmt.Errorf("scheduler.analytics_url is not a valid URL: %w", err)
	}

	switch c.Purchases.Store {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("purchases.store must be one of memory, postgres, redis; got %q", c.Purchases.Store)
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Scheduler.TickInterval > time.Minute {
		return fmt.Errorf("scheduler.tick_interval must not exceed 1m, got %s", c.Scheduler.TickInterval)
	}

	if c.App.Env == "production" {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Auth.PasswordHash == "" {
			return fmt.Errorf("auth.password_hash is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
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

// Addr returns host:port for the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
