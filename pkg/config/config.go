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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Leave      LeaveConfig
	Invoice    InvoiceConfig
	Referral   ReferralConfig
	Mail       MailConfig
	Mailbox    MailboxConfig
	FaceAuth   FaceAuthConfig
	Dashboard  DashboardConfig
	Game       GameConfig
	Documents  DocumentsConfig
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
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig governs check-in classification rules.
type AttendanceConfig struct {
	LateDeadline   string // "HH:MM" local time
	LateStrikes    int    // strikes within a calendar month before ABSENT
	MinimumHours   float64
	StrikeRemark   string
	EarlyOutRemark string
}

// LeaveConfig holds monthly accrual rates.
type LeaveConfig struct {
	CasualRate float64
	SickRate   float64
}

// InvoiceConfig tunes numbering and the duplicate guard.
type InvoiceConfig struct {
	NumberPrefix     string
	ImportedPrefix   string
	DuplicateWindow  time.Duration
	NumberPadding    int
}

// ReferralConfig carries default payout amounts.
type ReferralConfig struct {
	EnrollmentPayout float64
}

// MailConfig configures the external mail relay.
type MailConfig struct {
	Backend     string // "sendgrid" or "console"
	SendgridKey string
	FromName    string
	FromAddress string
}

// MailboxConfig scopes internal webmail behaviour.
type MailboxConfig struct {
	Domain          string
	SyncWorkers     int
	SyncBatchLimit  int
}

// FaceAuthConfig tunes the biometric matcher.
type FaceAuthConfig struct {
	Threshold       float64
	MaxFailures     int
	LockoutDuration time.Duration
}

// DashboardConfig governs stats caching.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// GameConfig tunes the racing session API.
type GameConfig struct {
	LeaderboardTTL   time.Duration
	LeaderboardLimit int
}

// DocumentsConfig controls generated document storage.
type DocumentsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attendance = AttendanceConfig{
		LateDeadline:   v.GetString("ATTENDANCE_LATE_DEADLINE"),
		LateStrikes:    v.GetInt("ATTENDANCE_LATE_STRIKES"),
		MinimumHours:   v.GetFloat64("ATTENDANCE_MINIMUM_HOURS"),
		StrikeRemark:   v.GetString("ATTENDANCE_STRIKE_REMARK"),
		EarlyOutRemark: v.GetString("ATTENDANCE_EARLY_OUT_REMARK"),
	}

	cfg.Leave = LeaveConfig{
		CasualRate: v.GetFloat64("LEAVE_CASUAL_RATE"),
		SickRate:   v.GetFloat64("LEAVE_SICK_RATE"),
	}

	cfg.Invoice = InvoiceConfig{
		NumberPrefix:    v.GetString("INVOICE_NUMBER_PREFIX"),
		ImportedPrefix:  v.GetString("INVOICE_IMPORTED_PREFIX"),
		DuplicateWindow: parseDuration(v.GetString("INVOICE_DUPLICATE_WINDOW"), 15*time.Second),
		NumberPadding:   v.GetInt("INVOICE_NUMBER_PADDING"),
	}

	cfg.Referral = ReferralConfig{
		EnrollmentPayout: v.GetFloat64("REFERRAL_ENROLLMENT_PAYOUT"),
	}

	cfg.Mail = MailConfig{
		Backend:     v.GetString("MAIL_BACKEND"),
		SendgridKey: v.GetString("SENDGRID_API_KEY"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
		FromAddress: v.GetString("MAIL_FROM_ADDRESS"),
	}

	cfg.Mailbox = MailboxConfig{
		Domain:         v.GetString("MAILBOX_DOMAIN"),
		SyncWorkers:    v.GetInt("MAILBOX_SYNC_WORKERS"),
		SyncBatchLimit: v.GetInt("MAILBOX_SYNC_BATCH_LIMIT"),
	}

	cfg.FaceAuth = FaceAuthConfig{
		Threshold:       v.GetFloat64("FACE_MATCH_THRESHOLD"),
		MaxFailures:     v.GetInt("FACE_MAX_FAILURES"),
		LockoutDuration: parseDuration(v.GetString("FACE_LOCKOUT_DURATION"), 24*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Game = GameConfig{
		LeaderboardTTL:   parseDuration(v.GetString("GAME_LEADERBOARD_TTL"), 30*time.Second),
		LeaderboardLimit: v.GetInt("GAME_LEADERBOARD_LIMIT"),
	}

	cfg.Documents = DocumentsConfig{
		StorageDir:      v.GetString("DOCUMENTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 24*time.Hour),
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
	v.SetDefault("DB_NAME", "portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTENDANCE_LATE_DEADLINE", "10:45")
	v.SetDefault("ATTENDANCE_LATE_STRIKES", 3)
	v.SetDefault("ATTENDANCE_MINIMUM_HOURS", 4.0)
	v.SetDefault("ATTENDANCE_STRIKE_REMARK", "Multiple Late Arrivals (3rd Strike)")
	v.SetDefault("ATTENDANCE_EARLY_OUT_REMARK", "Early Leave (<4h)")

	v.SetDefault("LEAVE_CASUAL_RATE", 1.0)
	v.SetDefault("LEAVE_SICK_RATE", 0.5)

	v.SetDefault("INVOICE_NUMBER_PREFIX", "INV-")
	v.SetDefault("INVOICE_IMPORTED_PREFIX", "INV-IMP")
	v.SetDefault("INVOICE_DUPLICATE_WINDOW", "15s")
	v.SetDefault("INVOICE_NUMBER_PADDING", 4)

	v.SetDefault("REFERRAL_ENROLLMENT_PAYOUT", 50.0)

	v.SetDefault("MAIL_BACKEND", "console")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Portal")
	v.SetDefault("MAIL_FROM_ADDRESS", "noreply@portal.local")

	v.SetDefault("MAILBOX_DOMAIN", "portal.local")
	v.SetDefault("MAILBOX_SYNC_WORKERS", 1)
	v.SetDefault("MAILBOX_SYNC_BATCH_LIMIT", 10)

	v.SetDefault("FACE_MATCH_THRESHOLD", 0.6)
	v.SetDefault("FACE_MAX_FAILURES", 3)
	v.SetDefault("FACE_LOCKOUT_DURATION", "24h")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("GAME_LEADERBOARD_TTL", "30s")
	v.SetDefault("GAME_LEADERBOARD_LIMIT", 20)

	v.SetDefault("DOCUMENTS_STORAGE_DIR", "./documents")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", "dev_documents_secret")
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "24h")
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
