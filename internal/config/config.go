// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Secret
	Salt     string // トークン導出用のプロセス全体ソルト
	BotToken string // Telegram Bot APIトークン

	// Database
	DatabaseURL string

	// Upstream
	SportBaseURL    string        // スポーツサイトのベースURL
	UpstreamTimeout time.Duration // 上流API呼び出しのタイムアウト

	// Calendar
	CalendarTimezone    string        // カレンダーの基準タイムゾーン
	CalendarWindowDays  int           // スケジュール取得ウィンドウ（日数）
	EventCacheTTL       time.Duration // イベント詳細キャッシュのTTL
	DetailMaxConcurrent int           // イベント詳細取得の最大並列数

	// Rate Limit
	RateLimitCalendar int // カレンダー配信のレート制限（req/min/IP）

	// Bot
	BotPollTimeout time.Duration // getUpdatesロングポーリングのタイムアウト

	// Server
	ServerPort string
	BaseURL    string // カレンダーURL生成に使用する公開ベースURL
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数（SALT、BOT_TOKEN、DATABASE_URL）が未設定の場合はエラーを返す。
// この失敗は起動時の致命的エラーであり、実行時エラーとして扱ってはならない。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.Salt = os.Getenv("SALT")
	if cfg.Salt == "" {
		missing = append(missing, "SALT")
	}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SportBaseURL = getEnvString("SPORT_BASE_URL", "https://sport.innopolis.university")
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.CalendarTimezone = getEnvString("CALENDAR_TIMEZONE", "Europe/Moscow")
	cfg.CalendarWindowDays = getEnvInt("CALENDAR_WINDOW_DAYS", 14)
	cfg.EventCacheTTL = getEnvDuration("EVENT_CACHE_TTL", time.Hour)
	cfg.DetailMaxConcurrent = getEnvInt("DETAIL_MAX_CONCURRENT", 4)
	cfg.RateLimitCalendar = getEnvInt("RATE_LIMIT_CALENDAR", 60)
	cfg.BotPollTimeout = getEnvDuration("BOT_POLL_TIMEOUT", 50*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")

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
