package config

import (
	"errors"
	"io/fs"
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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Audit         AuditConfig
	Sync          SyncConfig
	Effects       EffectsConfig
	Notifications NotificationsConfig
	Reports       ReportsConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuditConfig holds the comment limits enforced on audited mutations.
type AuditConfig struct {
	MaintenanceMinComment int
	RecordMinComment      int
	LoggedCommentMax      int
}

// SyncConfig configures the scheduled DVLA/MOT vehicle sync.
type SyncConfig struct {
	CronSecret      string
	StaleAfter      time.Duration
	Pacing          time.Duration
	Budget          time.Duration
	DVLABaseURL     string
	DVLAAPIKey      string
	MOTBaseURL      string
	MOTAPIKey       string
	MOTTokenURL     string
	MOTClientID     string
	MOTClientSecret string
	MOTScope        string
	HTTPTimeout     time.Duration
}

// EffectsConfig tunes the post-commit effect queue.
type EffectsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationsConfig configures outbound email.
type NotificationsConfig struct {
	Enabled bool
	APIURL  string
	APIKey  string
	From    string
}

// ReportsConfig governs report exposure and cache tuning.
type ReportsConfig struct {
	CacheTTL        time.Duration
	DueWithinDays   int
	ServiceMarginMi int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 15*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Audit = AuditConfig{
		MaintenanceMinComment: positiveOr(v.GetInt("AUDIT_MAINTENANCE_MIN_COMMENT"), 10),
		RecordMinComment:      positiveOr(v.GetInt("AUDIT_RECORD_MIN_COMMENT"), 10),
		LoggedCommentMax:      positiveOr(v.GetInt("ACTION_LOGGED_COMMENT_MAX"), 40),
	}

	cfg.Sync = SyncConfig{
		CronSecret:      v.GetString("SYNC_CRON_SECRET"),
		StaleAfter:      parseDuration(v.GetString("SYNC_STALE_AFTER"), 6*24*time.Hour),
		Pacing:          parseDuration(v.GetString("SYNC_PACING"), time.Second),
		Budget:          parseDuration(v.GetString("SYNC_BUDGET"), 5*time.Minute),
		DVLABaseURL:     v.GetString("DVLA_API_URL"),
		DVLAAPIKey:      v.GetString("DVLA_API_KEY"),
		MOTBaseURL:      v.GetString("MOT_API_URL"),
		MOTAPIKey:       v.GetString("MOT_API_KEY"),
		MOTTokenURL:     v.GetString("MOT_TOKEN_URL"),
		MOTClientID:     v.GetString("MOT_CLIENT_ID"),
		MOTClientSecret: v.GetString("MOT_CLIENT_SECRET"),
		MOTScope:        v.GetString("MOT_SCOPE"),
		HTTPTimeout:     parseDuration(v.GetString("SYNC_HTTP_TIMEOUT"), 15*time.Second),
	}

	cfg.Effects = EffectsConfig{
		Workers:    v.GetInt("EFFECTS_WORKERS"),
		BufferSize: v.GetInt("EFFECTS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("EFFECTS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("EFFECTS_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled: v.GetBool("ENABLE_NOTIFICATIONS"),
		APIURL:  v.GetString("MAIL_API_URL"),
		APIKey:  v.GetString("MAIL_API_KEY"),
		From:    v.GetString("MAIL_FROM"),
	}

	cfg.Reports = ReportsConfig{
		CacheTTL:        parseDuration(v.GetString("REPORTS_CACHE_TTL"), 5*time.Minute),
		DueWithinDays:   positiveOr(v.GetInt("REPORTS_DUE_WITHIN_DAYS"), 30),
		ServiceMarginMi: positiveOr(v.GetInt("REPORTS_SERVICE_MARGIN_MILES"), 1000),
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
	v.SetDefault("DB_NAME", "fleet")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_START", false)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "fleet-api")
	v.SetDefault("JWT_EXPIRATION", "15m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUDIT_MAINTENANCE_MIN_COMMENT", 10)
	v.SetDefault("AUDIT_RECORD_MIN_COMMENT", 10)
	v.SetDefault("ACTION_LOGGED_COMMENT_MAX", 40)

	v.SetDefault("SYNC_CRON_SECRET", "")
	v.SetDefault("SYNC_STALE_AFTER", "144h")
	v.SetDefault("SYNC_PACING", "1s")
	v.SetDefault("SYNC_BUDGET", "5m")
	v.SetDefault("SYNC_HTTP_TIMEOUT", "15s")
	v.SetDefault("DVLA_API_URL", "https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1")
	v.SetDefault("DVLA_API_KEY", "")
	v.SetDefault("MOT_API_URL", "https://history.mot.api.gov.uk/v1/trade")
	v.SetDefault("MOT_API_KEY", "")
	v.SetDefault("MOT_TOKEN_URL", "")
	v.SetDefault("MOT_CLIENT_ID", "")
	v.SetDefault("MOT_CLIENT_SECRET", "")
	v.SetDefault("MOT_SCOPE", "https://tapi.dvsa.gov.uk/.default")

	v.SetDefault("EFFECTS_WORKERS", 2)
	v.SetDefault("EFFECTS_BUFFER_SIZE", 64)
	v.SetDefault("EFFECTS_MAX_RETRIES", 3)
	v.SetDefault("EFFECTS_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("MAIL_API_URL", "https://api.resend.com")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_FROM", "fleet@localhost")

	v.SetDefault("REPORTS_CACHE_TTL", "5m")
	v.SetDefault("REPORTS_DUE_WITHIN_DAYS", 30)
	v.SetDefault("REPORTS_SERVICE_MARGIN_MILES", 1000)
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
