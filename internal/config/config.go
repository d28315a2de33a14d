package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// defaultSessionMaxAge はSESSION_MAX_AGE未設定時の有効期限（秒、30日）。
	defaultSessionMaxAge = 2592000
	// maxSessionMaxAge はSESSION_MAX_AGEの上限（秒、10年）。
	// time.Durationへの変換でオーバーフローしない範囲に収める。
	maxSessionMaxAge = 10 * 365 * 24 * 60 * 60
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string
	AutoMigrate bool

	// Recognition
	RecognitionURL         string
	RecognitionAPIKey      string
	RecognitionTimeout     time.Duration
	RecognitionMaxAttempts int

	// Image URL
	ImageProbeEnabled bool
	ImageProbeTimeout time.Duration

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral      int
	RateLimitMealLog      int
	RateLimitSessionIssue int // req/min/IP

	// Server
	ServerPort string
	APIPrefix  string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// ENV_FILE（デフォルト: .env）が存在する場合は先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RecognitionURL = os.Getenv("RECOGNITION_URL")
	if cfg.RecognitionURL == "" {
		missing = append(missing, "RECOGNITION_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", false)
	cfg.RecognitionAPIKey = getEnvString("RECOGNITION_API_KEY", "")
	cfg.RecognitionTimeout = getEnvDuration("RECOGNITION_TIMEOUT", 15*time.Second)
	cfg.RecognitionMaxAttempts = getEnvInt("RECOGNITION_MAX_ATTEMPTS", 3)
	cfg.ImageProbeEnabled = getEnvBool("IMAGE_PROBE_ENABLED", false)
	cfg.ImageProbeTimeout = getEnvDuration("IMAGE_PROBE_TIMEOUT", 5*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", defaultSessionMaxAge)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMealLog = getEnvInt("RATE_LIMIT_MEAL_LOG", 20)
	cfg.RateLimitSessionIssue = getEnvInt("RATE_LIMIT_SESSION_ISSUE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8001")
	cfg.APIPrefix = NormalizePrefix(getEnvString("API_PREFIX", "/api"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if cfg.RecognitionMaxAttempts < 1 {
		cfg.RecognitionMaxAttempts = 1
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = defaultSessionMaxAge
	}
	if cfg.SessionMaxAge > maxSessionMaxAge {
		cfg.SessionMaxAge = maxSessionMaxAge
	}
	if cfg.SessionCleanupInterval <= 0 {
		cfg.SessionCleanupInterval = time.Hour
	}

	return cfg, nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// NormalizePrefix はAPIプレフィックスを "/api" 形式に正規化する。
// "/" または空文字はプレフィックスなしとして扱う。
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
