// Package config は環境変数ベースの設定管理を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Telegram
	TelegramBotToken      string
	TelegramWebhookSecret string
	TelegramAPIBaseURL    string
	TelegramTimeout       time.Duration
	TelegramFileMaxSize   int64

	// Blob storage
	BlobEndpoint string
	BlobToken    string
	BlobTimeout  time.Duration

	// Vision analysis
	VisionAPIKey  string
	VisionBaseURL string
	VisionModel   string
	VisionTimeout time.Duration

	// Link tokens
	LinkTokenTTL time.Duration

	// Internal API (dashboard → this service)
	InternalAPISecret string

	// Rate limit
	WebhookRatePerMin int

	// Server
	ServerPort   string
	DashboardURL string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（未配置は無視、Klickk等と同様の慣行）。
// 必須環境変数が未設定の場合はエラーを返す。
// Telegram・Blob・Visionの資格情報は意図的に必須としない:
// 未設定の場合、各クライアントはハンドラーをクラッシュさせず呼び出し単位で失敗する。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.InternalAPISecret = os.Getenv("INTERNAL_API_SECRET")
	if cfg.InternalAPISecret == "" {
		missing = append(missing, "INTERNAL_API_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramWebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	cfg.TelegramAPIBaseURL = getEnvString("TELEGRAM_API_BASE_URL", "https://api.telegram.org")
	cfg.TelegramTimeout = getEnvDuration("TELEGRAM_TIMEOUT", 30*time.Second)
	cfg.TelegramFileMaxSize = getEnvInt64("TELEGRAM_FILE_MAX_SIZE", 20*1024*1024)

	cfg.BlobEndpoint = getEnvString("BLOB_ENDPOINT", "https://blob.vercel-storage.com")
	cfg.BlobToken = os.Getenv("BLOB_READ_WRITE_TOKEN")
	cfg.BlobTimeout = getEnvDuration("BLOB_TIMEOUT", 60*time.Second)

	cfg.VisionAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.VisionBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com")
	cfg.VisionModel = getEnvString("VISION_MODEL", "gpt-4.1-mini")
	cfg.VisionTimeout = getEnvDuration("VISION_TIMEOUT", 90*time.Second)

	cfg.LinkTokenTTL = getEnvDuration("LINK_TOKEN_TTL", 10*time.Minute)
	cfg.WebhookRatePerMin = getEnvInt("WEBHOOK_RATE_PER_MIN", 30)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.DashboardURL = getEnvString("DASHBOARD_URL", "https://photolectic.com")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
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
