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

// Lock backends supported by the timetable write path.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig only carries the verification secret; tokens are issued by the identity service.
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

// TimetableConfig tunes generation, locking, caching and post-edit auditing.
type TimetableConfig struct {
	DefaultPeriodMinutes int
	LockBackend          string
	// LockTTL is the Redis lock expiry. Holders extend it while they run, so
	// it only bounds how long a crashed instance blocks the school.
	LockTTL              time.Duration
	LockWait             time.Duration
	LockRetry            time.Duration
	CacheEnabled         bool
	CacheTTL             time.Duration
	AuditAfterEdit       bool
	AuditWorkers         int
	AuditRetries         int
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
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	periodMinutes := v.GetInt("TIMETABLE_DEFAULT_PERIOD_MINUTES")
	if periodMinutes <= 0 {
		periodMinutes = 45
	}
	cfg.Timetable = TimetableConfig{
		DefaultPeriodMinutes: periodMinutes,
		LockBackend:          normalizeLockBackend(v.GetString("TIMETABLE_LOCK_BACKEND")),
		LockTTL:              parseDuration(v.GetString("TIMETABLE_LOCK_TTL"), 2*time.Minute),
		LockWait:             parseDuration(v.GetString("TIMETABLE_LOCK_WAIT"), 10*time.Second),
		LockRetry:            parseDuration(v.GetString("TIMETABLE_LOCK_RETRY"), 50*time.Millisecond),
		CacheEnabled:         v.GetBool("TIMETABLE_CACHE_ENABLED"),
		CacheTTL:             parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 10*time.Minute),
		AuditAfterEdit:       v.GetBool("TIMETABLE_AUDIT_AFTER_EDIT"),
		AuditWorkers:         v.GetInt("TIMETABLE_AUDIT_WORKERS"),
		AuditRetries:         v.GetInt("TIMETABLE_AUDIT_RETRIES"),
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
	v.SetDefault("DB_NAME", "school_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_DEFAULT_PERIOD_MINUTES", 45)
	v.SetDefault("TIMETABLE_LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("TIMETABLE_LOCK_TTL", "2m")
	v.SetDefault("TIMETABLE_LOCK_WAIT", "10s")
	v.SetDefault("TIMETABLE_LOCK_RETRY", "50ms")
	v.SetDefault("TIMETABLE_CACHE_ENABLED", false)
	v.SetDefault("TIMETABLE_CACHE_TTL", "10m")
	v.SetDefault("TIMETABLE_AUDIT_AFTER_EDIT", true)
	v.SetDefault("TIMETABLE_AUDIT_WORKERS", 1)
	v.SetDefault("TIMETABLE_AUDIT_RETRIES", 3)
}

func normalizeLockBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LockBackendRedis:
		return LockBackendRedis
	default:
		return LockBackendMemory
	}
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
