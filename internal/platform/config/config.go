package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                      string
	DatabaseURL               string
	DBMaxConns                int
	JWTSecret                 string
	Environment               string
	MigrationsDir             string
	RunMigrations             bool
	RunSeed                   bool
	MaxBodyBytes              int64
	CORSAllowedOrigins        []string
	MetricsEnabled            bool
	EscalationSchedule        string
	AccrualSchedule           string
	CarryOverSchedule         string
	EscalationDefaultHours    int
	EscalationExhaustedPolicy string
	EscalationMaxLevel        int
	LeaveNoticeDays           int
	LeavePostGraceDays        int
	LeaveSickCapDays          int
	LeaveSickWindowYears      int
	DefaultApprovalCode       string
	EmailEnabled              bool
	EmailFrom                 string
	SMTPHost                  string
	SMTPPort                  int
	SMTPUser                  string
	SMTPPassword              string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	return Config{
		Addr:                      getEnv("APP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		DBMaxConns:                getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:                 getEnv("JWT_SECRET", ""),
		Environment:               getEnv("APP_ENV", "development"),
		MigrationsDir:             getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:             getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                   getEnvBool("RUN_SEED", true),
		MaxBodyBytes:              int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		CORSAllowedOrigins:        getEnvList("CORS_ALLOWED_ORIGINS", nil),
		MetricsEnabled:            getEnvBool("METRICS_ENABLED", true),
		EscalationSchedule:        getEnv("ESCALATION_SCHEDULE", "@hourly"),
		AccrualSchedule:           getEnv("ACCRUAL_SCHEDULE", "0 2 1 * *"),
		CarryOverSchedule:         getEnv("CARRY_OVER_SCHEDULE", "0 3 1 * *"),
		EscalationDefaultHours:    getEnvInt("ESCALATION_DEFAULT_HOURS", 24),
		EscalationExhaustedPolicy: getEnv("ESCALATION_EXHAUSTED_POLICY", "escalate_to_hr"),
		EscalationMaxLevel:        getEnvInt("ESCALATION_MAX_LEVEL", 0),
		LeaveNoticeDays:           getEnvInt("LEAVE_NOTICE_DAYS", 7),
		LeavePostGraceDays:        getEnvInt("LEAVE_POST_GRACE_DAYS", 3),
		LeaveSickCapDays:          getEnvInt("LEAVE_SICK_CAP_DAYS", 360),
		LeaveSickWindowYears:      getEnvInt("LEAVE_SICK_WINDOW_YEARS", 3),
		DefaultApprovalCode:       getEnv("DEFAULT_APPROVAL_CODE", "STANDARD"),
		EmailEnabled:              getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:                 getEnv("EMAIL_FROM", "no-reply@example.com"),
		SMTPHost:                  getEnv("SMTP_HOST", ""),
		SMTPPort:                  getEnvInt("SMTP_PORT", 587),
		SMTPUser:                  getEnv("SMTP_USER", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ReadinessTimeout bounds the database ping behind /readyz.
func ReadinessTimeout() time.Duration {
	return getEnvDuration("READINESS_TIMEOUT", 2*time.Second)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.EscalationDefaultHours <= 0 {
		return fmt.Errorf("ESCALATION_DEFAULT_HOURS must be positive")
	}
	switch c.EscalationExhaustedPolicy {
	case "escalate_to_hr", "hold", "reject":
	default:
		return fmt.Errorf("ESCALATION_EXHAUSTED_POLICY must be one of escalate_to_hr, hold, reject")
	}
	if c.EscalationExhaustedPolicy == "reject" && c.EscalationMaxLevel <= 0 {
		return fmt.Errorf("ESCALATION_MAX_LEVEL must be positive when ESCALATION_EXHAUSTED_POLICY is reject")
	}
	if c.LeaveNoticeDays < 0 || c.LeavePostGraceDays < 0 {
		return fmt.Errorf("LEAVE_NOTICE_DAYS and LEAVE_POST_GRACE_DAYS must not be negative")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
