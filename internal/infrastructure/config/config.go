package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Clinic    ClinicConfig
	Finance   FinanceConfig
	Printing  PrintingConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	File       string // when set, logs are also written here with rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name           string
	Env            string
	Port           string
	SessionTimeout time.Duration
	SecretKey      string // reserved for authentication
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string   // full connection string; takes precedence over discrete fields
	PlatformEnv     []string // env vars whose presence marks a hosted (remote) database
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
	AcquireTimeout  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
	IdempotencyTTL time.Duration
	CORSOrigins    []string
}

// ClinicConfig holds the practice's schedule and document details
type ClinicConfig struct {
	Name              string
	Address           string
	Phone             string
	Timezone          string
	OpenTime          string // HH:MM
	CloseTime         string // HH:MM
	SlotMinutes       int
	DebtDueMonths     int
	BankName          string
	BankAccount       string
	BankAccountHolder string
}

// FinanceConfig holds payment engine options
type FinanceConfig struct {
	PessimisticLocking bool // lock pending debts and credit rows while allocating
}

// PrintingConfig holds budget PDF rendering settings
type PrintingConfig struct {
	Enabled   bool
	RemoteURL string // DevTools websocket of a running Chrome; empty launches a local one
	Timeout   time.Duration
	PaperSize string // A4 or LETTER
	MarginMM  int
}

// StorageConfig holds S3-compatible archive settings for generated documents
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled       bool
	QuoteExpiry   string // "minute hour * * *" in the clinic time zone
	Workers       int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to enable OpenTelemetry
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        // Service name for traces
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration // How often metrics are pushed to the collector
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CLINIC_ prefix (e.g., CLINIC_DATABASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("printing.margin_mm", 15)

	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	databaseURL := v.GetString("database.url")
	if databaseURL == "" {
		databaseURL = v.GetString("database_url")
	}

	cfg := &Config{
		App: AppConfig{
			Name:           v.GetString("app.name"),
			Env:            v.GetString("app.env"),
			Port:           v.GetString("app.port"),
			SessionTimeout: v.GetDuration("app.session_timeout"),
			SecretKey:      v.GetString("app.secret_key"),
		},
		Database: DatabaseConfig{
			URL:             databaseURL,
			PlatformEnv:     v.GetStringSlice("database.platform_env"),
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
			AcquireTimeout:  v.GetDuration("database.acquire_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			IdempotencyTTL: v.GetDuration("http.idempotency_ttl"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
		},
		Clinic: ClinicConfig{
			Name:              v.GetString("clinic.name"),
			Address:           v.GetString("clinic.address"),
			Phone:             v.GetString("clinic.phone"),
			Timezone:          v.GetString("clinic.timezone"),
			OpenTime:          v.GetString("clinic.open_time"),
			CloseTime:         v.GetString("clinic.close_time"),
			SlotMinutes:       v.GetInt("clinic.slot_minutes"),
			DebtDueMonths:     v.GetInt("clinic.debt_due_months"),
			BankName:          v.GetString("clinic.bank_name"),
			BankAccount:       v.GetString("clinic.bank_account"),
			BankAccountHolder: v.GetString("clinic.bank_account_holder"),
		},
		Finance: FinanceConfig{
			PessimisticLocking: v.GetBool("finance.pessimistic_locking"),
		},
		Printing: PrintingConfig{
			Enabled:   v.GetBool("printing.enabled"),
			RemoteURL: v.GetString("printing.remote_url"),
			Timeout:   v.GetDuration("printing.timeout"),
			PaperSize: v.GetString("printing.paper_size"),
			MarginMM:  v.GetInt("printing.margin_mm"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			QuoteExpiry:   v.GetString("scheduler.quote_expiry"),
			Workers:       v.GetInt("scheduler.workers"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
			RetryAttempts: v.GetInt("scheduler.retry_attempts"),
			RetryDelay:    v.GetDuration("scheduler.retry_delay"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
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
		cfg.App.Name = "dental-clinic"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.SessionTimeout == 0 {
		cfg.App.SessionTimeout = 30 * time.Minute
	}
	if len(cfg.Database.PlatformEnv) == 0 {
		cfg.Database.PlatformEnv = []string{"DYNO", "RENDER", "RAILWAY_ENVIRONMENT"}
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
		cfg.Database.DBName = "clinic"
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
	if cfg.Database.AcquireTimeout == 0 {
		cfg.Database.AcquireTimeout = 5 * time.Second
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
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
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
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Clinic.Name == "" {
		cfg.Clinic.Name = "Dental Clinic"
	}
	if cfg.Clinic.Timezone == "" {
		cfg.Clinic.Timezone = "Local"
	}
	if cfg.Clinic.OpenTime == "" {
		cfg.Clinic.OpenTime = "07:30"
	}
	if cfg.Clinic.CloseTime == "" {
		cfg.Clinic.CloseTime = "19:30"
	}
	if cfg.Clinic.SlotMinutes == 0 {
		cfg.Clinic.SlotMinutes = 30
	}
	if cfg.Clinic.DebtDueMonths == 0 {
		cfg.Clinic.DebtDueMonths = 1
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Scheduler.QuoteExpiry == "" {
		cfg.Scheduler.QuoteExpiry = "5 0 * * *"
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 1
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsInterval <= 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "dental-clinic"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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
	if c.Database.AcquireTimeout < 0 {
		return fmt.Errorf("database.acquire_timeout cannot be negative")
	}
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			return fmt.Errorf("database.url is not a valid URL: %w", err)
		}
	}

	for key, value := range map[string]string{
		"clinic.open_time":  c.Clinic.OpenTime,
		"clinic.close_time": c.Clinic.CloseTime,
	} {
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("%s must be HH:MM, got %q", key, value)
		}
	}
	if c.Clinic.SlotMinutes <= 0 {
		return fmt.Errorf("clinic.slot_minutes must be positive")
	}
	if c.Clinic.DebtDueMonths < 0 {
		return fmt.Errorf("clinic.debt_due_months cannot be negative")
	}
	if _, err := c.Clinic.Location(); err != nil {
		return fmt.Errorf("clinic.timezone: %w", err)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.URL == "" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.HTTP.TrustedProxies != nil {
			for _, p := range c.HTTP.TrustedProxies {
				if p == "0.0.0.0/0" {
					return fmt.Errorf("http.trusted_proxies cannot trust every address in production")
				}
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Location resolves the clinic's time zone
func (c *ClinicConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// IsRemote reports whether a hosting platform marker is present in the environment
func (d *DatabaseConfig) IsRemote() bool {
	for _, name := range d.PlatformEnv {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// DSN returns the database connection string with properly escaped values.
// A hosted database always gets sslmode=require; a local one defaults to disable.
func (d *DatabaseConfig) DSN() string {
	remote := d.IsRemote()

	if d.URL != "" {
		u, err := url.Parse(d.URL)
		if err == nil {
			q := u.Query()
			switch {
			case remote:
				q.Set("sslmode", "require")
			case q.Get("sslmode") == "":
				q.Set("sslmode", "disable")
			}
			u.RawQuery = q.Encode()
			return u.String()
		}
		return d.URL
	}

	sslMode := d.SSLMode
	if remote {
		sslMode = "require"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}
