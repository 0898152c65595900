package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Workflow  WorkflowConfig
	Alerts    AlertsConfig
	Notifier  NotifierConfig
	Dashboard DashboardConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SMTPConfig configures the outbound mail transport.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkflowConfig governs step generation.
type WorkflowConfig struct {
	// DefaultAssigneeID receives steps whose department has no PPR on file.
	DefaultAssigneeID int64
}

// AlertsConfig carries escalation thresholds and the batch sweep shape.
type AlertsConfig struct {
	WarningDays    int
	CriticalDays   int
	UrgentDays     int
	EscalationDays int

	EvaluationInterval time.Duration
	ETAWindowDays      int
	BatchSize          int
	SweepSLA           time.Duration
	SweepSLACount      int
}

// NotifierConfig bounds notification delivery retries.
type NotifierConfig struct {
	Workers       int
	MaxRetries    int
	RetryDelay    time.Duration
	SendTimeout   time.Duration
	SweepInterval time.Duration
}

// DashboardConfig tunes the cached summary endpoint.
type DashboardConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		User:     v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Workflow = WorkflowConfig{
		DefaultAssigneeID: v.GetInt64("WORKFLOW_DEFAULT_ASSIGNEE_ID"),
	}

	cfg.Alerts = AlertsConfig{
		WarningDays:        v.GetInt("ALERT_WARNING_DAYS"),
		CriticalDays:       v.GetInt("ALERT_CRITICAL_DAYS"),
		UrgentDays:         v.GetInt("ALERT_URGENT_DAYS"),
		EscalationDays:     v.GetInt("ALERT_ESCALATION_DAYS"),
		EvaluationInterval: parseDuration(v.GetString("ALERT_EVALUATION_INTERVAL"), 24*time.Hour),
		ETAWindowDays:      v.GetInt("ALERT_ETA_WINDOW_DAYS"),
		BatchSize:          v.GetInt("ALERT_BATCH_SIZE"),
		SweepSLA:           parseDuration(v.GetString("ALERT_SWEEP_SLA"), 5*time.Minute),
		SweepSLACount:      v.GetInt("ALERT_SWEEP_SLA_COUNT"),
	}

	cfg.Notifier = NotifierConfig{
		Workers:       v.GetInt("NOTIFIER_WORKERS"),
		MaxRetries:    v.GetInt("NOTIFIER_MAX_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("NOTIFIER_RETRY_DELAY"), 5*time.Minute),
		SendTimeout:   parseDuration(v.GetString("NOTIFIER_SEND_TIMEOUT"), 30*time.Second),
		SweepInterval: parseDuration(v.GetString("NOTIFIER_SWEEP_INTERVAL"), 5*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ccas")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "alerts@ccas.local")

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKFLOW_DEFAULT_ASSIGNEE_ID", 1)

	v.SetDefault("ALERT_WARNING_DAYS", 4)
	v.SetDefault("ALERT_CRITICAL_DAYS", 5)
	v.SetDefault("ALERT_URGENT_DAYS", 7)
	v.SetDefault("ALERT_ESCALATION_DAYS", 6)
	v.SetDefault("ALERT_EVALUATION_INTERVAL", "24h")
	v.SetDefault("ALERT_ETA_WINDOW_DAYS", 30)
	v.SetDefault("ALERT_BATCH_SIZE", 100)
	v.SetDefault("ALERT_SWEEP_SLA", "5m")
	v.SetDefault("ALERT_SWEEP_SLA_COUNT", 1000)

	v.SetDefault("NOTIFIER_WORKERS", 2)
	v.SetDefault("NOTIFIER_MAX_RETRIES", 3)
	v.SetDefault("NOTIFIER_RETRY_DELAY", "5m")
	v.SetDefault("NOTIFIER_SEND_TIMEOUT", "30s")
	v.SetDefault("NOTIFIER_SWEEP_INTERVAL", "5m")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
