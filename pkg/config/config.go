package config

import (
	"errors"
	"strconv"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Engine     EngineConfig
	Timetables TimetablesConfig
	Audit      AuditConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig carries the slot grid, the rule parameters and the search
// budget. The rule numbers changed between iterations of the legacy system,
// so none of them are hard-coded in the engine itself.
type EngineConfig struct {
	DaysPerWeek          int
	PeriodsPerDay        int
	MorningSpan          int
	LabBlockLength       int
	TeacherDailyCap      int
	RestrictedLabStarts  []int
	TeacherDailyCapBonus int
	GenerationBudget     time.Duration
	DeadlineCheckEvery   int
}

// TimetablesConfig tunes the read side of the timetable API.
type TimetablesConfig struct {
	CacheTTL time.Duration
}

// AuditConfig gates the background sweep that revalidates active timetables.
type AuditConfig struct {
	Enabled  bool
	Interval time.Duration
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		DaysPerWeek:          v.GetInt("DAYS_PER_WEEK"),
		PeriodsPerDay:        v.GetInt("PERIODS_PER_DAY"),
		MorningSpan:          v.GetInt("MORNING_SPAN"),
		LabBlockLength:       v.GetInt("LAB_BLOCK_LENGTH"),
		TeacherDailyCap:      v.GetInt("TEACHER_DAILY_CAP"),
		RestrictedLabStarts:  splitInts(v.GetString("RESTRICTED_LAB_STARTS")),
		TeacherDailyCapBonus: v.GetInt("TEACHER_DAILY_CAP_BONUS"),
		GenerationBudget:     parseDuration(v.GetString("GENERATION_BUDGET"), 60*time.Second),
		DeadlineCheckEvery:   v.GetInt("DEADLINE_CHECK_EVERY"),
	}

	cfg.Timetables = TimetablesConfig{
		CacheTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Audit = AuditConfig{
		Enabled:  v.GetBool("ENABLE_AUDIT_SWEEP"),
		Interval: parseDuration(v.GetString("AUDIT_SWEEP_INTERVAL"), time.Hour),
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
	v.SetDefault("DB_NAME", "dept_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DAYS_PER_WEEK", 5)
	v.SetDefault("PERIODS_PER_DAY", 8)
	v.SetDefault("MORNING_SPAN", 4)
	v.SetDefault("LAB_BLOCK_LENGTH", 3)
	v.SetDefault("TEACHER_DAILY_CAP", 2)
	v.SetDefault("RESTRICTED_LAB_STARTS", "0,4")
	v.SetDefault("TEACHER_DAILY_CAP_BONUS", 1)
	v.SetDefault("GENERATION_BUDGET", "60s")
	v.SetDefault("DEADLINE_CHECK_EVERY", 256)

	v.SetDefault("TIMETABLE_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_AUDIT_SWEEP", false)
	v.SetDefault("AUDIT_SWEEP_INTERVAL", "1h")
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

func splitInts(raw string) []int {
	var result []int
	for _, part := range splitAndTrim(raw) {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		result = append(result, n)
	}

	return result
}
