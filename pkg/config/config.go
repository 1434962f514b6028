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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Scheduling    SchedulingConfig
	Policy        PolicyConfig
	Notifications NotificationsConfig
	Materials     MaterialsConfig
	Dashboard     DashboardConfig
	Cron          CronConfig
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

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	ResetExpiration   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig governs class generation and reminder dispatch.
type SchedulingConfig struct {
	HorizonDays    int
	MinHorizonDays int
	MaxHorizonDays int
	ReminderLead   time.Duration
}

// PolicyConfig holds the time-gate rules for joining and cancelling classes.
type PolicyConfig struct {
	JoinEarlyWindow   time.Duration
	JoinLateGrace     time.Duration
	CancelNoticeHours int
	LowHoursThreshold float64
}

// NotificationsConfig configures the outbound email/SMS dispatcher.
type NotificationsConfig struct {
	EmailEnabled      bool
	SendgridAPIKey    string
	FromEmail         string
	FromName          string
	SMSEnabled        bool
	SMSGatewayURL     string
	SMSGatewayToken   string
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// MaterialsConfig controls student material storage & validation.
type MaterialsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// CronConfig protects the time-triggered endpoints.
type CronConfig struct {
	Secret string
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		ResetExpiration:   parseDuration(v.GetString("RESET_TOKEN_EXPIRATION"), time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		HorizonDays:    v.GetInt("GENERATION_HORIZON_DAYS"),
		MinHorizonDays: v.GetInt("GENERATION_MIN_HORIZON_DAYS"),
		MaxHorizonDays: v.GetInt("GENERATION_MAX_HORIZON_DAYS"),
		ReminderLead:   parseDuration(v.GetString("REMINDER_LEAD"), 24*time.Hour),
	}

	cfg.Policy = PolicyConfig{
		JoinEarlyWindow:   parseDuration(v.GetString("JOIN_EARLY_WINDOW"), 30*time.Minute),
		JoinLateGrace:     parseDuration(v.GetString("JOIN_LATE_GRACE"), 15*time.Minute),
		CancelNoticeHours: v.GetInt("CANCEL_NOTICE_HOURS"),
		LowHoursThreshold: v.GetFloat64("LOW_HOURS_THRESHOLD"),
	}

	cfg.Notifications = NotificationsConfig{
		EmailEnabled:      v.GetBool("EMAIL_ENABLED"),
		SendgridAPIKey:    v.GetString("SENDGRID_API_KEY"),
		FromEmail:         v.GetString("EMAIL_FROM_ADDRESS"),
		FromName:          v.GetString("EMAIL_FROM_NAME"),
		SMSEnabled:        v.GetBool("SMS_ENABLED"),
		SMSGatewayURL:     v.GetString("SMS_GATEWAY_URL"),
		SMSGatewayToken:   v.GetString("SMS_GATEWAY_TOKEN"),
		WorkerConcurrency: v.GetInt("NOTIFY_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("NOTIFY_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 30*time.Second),
	}

	maxMaterialSize := v.GetInt64("MATERIALS_MAX_FILE_SIZE")
	if maxMaterialSize <= 0 {
		maxMaterialSize = 10 * 1024 * 1024
	}
	cfg.Materials = MaterialsConfig{
		StorageDir:       v.GetString("MATERIALS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("MATERIALS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("MATERIALS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxMaterialSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("MATERIALS_ALLOWED_MIME_TYPES")),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Cron = CronConfig{Secret: v.GetString("CRON_SECRET")}

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
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("RESET_TOKEN_EXPIRATION", "1h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GENERATION_HORIZON_DAYS", 14)
	v.SetDefault("GENERATION_MIN_HORIZON_DAYS", 7)
	v.SetDefault("GENERATION_MAX_HORIZON_DAYS", 30)
	v.SetDefault("REMINDER_LEAD", "24h")

	v.SetDefault("JOIN_EARLY_WINDOW", "30m")
	v.SetDefault("JOIN_LATE_GRACE", "15m")
	v.SetDefault("CANCEL_NOTICE_HOURS", 24)
	v.SetDefault("LOW_HOURS_THRESHOLD", 5)

	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@brightpath.example")
	v.SetDefault("EMAIL_FROM_NAME", "BrightPath English")
	v.SetDefault("SMS_ENABLED", false)
	v.SetDefault("SMS_GATEWAY_URL", "")
	v.SetDefault("SMS_GATEWAY_TOKEN", "")
	v.SetDefault("NOTIFY_WORKER_CONCURRENCY", 2)
	v.SetDefault("NOTIFY_WORKER_RETRIES", 2)
	v.SetDefault("NOTIFY_RETRY_DELAY", "30s")

	v.SetDefault("MATERIALS_STORAGE_DIR", "./materials")
	v.SetDefault("MATERIALS_SIGNED_URL_SECRET", "dev_materials_secret")
	v.SetDefault("MATERIALS_SIGNED_URL_TTL", "30m")
	v.SetDefault("MATERIALS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("MATERIALS_ALLOWED_MIME_TYPES", "application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,audio/mpeg,image/png,image/jpeg")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("CRON_SECRET", "dev_cron_secret")
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
