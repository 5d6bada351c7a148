// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/sportcal/internal/bot"
	"github.com/hitoshi/sportcal/internal/calendar"
	"github.com/hitoshi/sportcal/internal/config"
	"github.com/hitoshi/sportcal/internal/database"
	"github.com/hitoshi/sportcal/internal/handler"
	"github.com/hitoshi/sportcal/internal/logger"
	"github.com/hitoshi/sportcal/internal/metrics"
	"github.com/hitoshi/sportcal/internal/middleware"
	"github.com/hitoshi/sportcal/internal/registration"
	"github.com/hitoshi/sportcal/internal/repository"
	"github.com/hitoshi/sportcal/internal/security"
	"github.com/hitoshi/sportcal/internal/sport"
	"github.com/hitoshi/sportcal/internal/telegram"
	"github.com/hitoshi/sportcal/internal/token"
	"github.com/hitoshi/sportcal/internal/worker"
)

// cacheCleanupSchedule は期限切れイベントキャッシュ削除のcronスケジュール。
const cacheCleanupSchedule = "@hourly"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("sport_base_url", cfg.SportBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandBot:
		return runBot(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はカレンダー配信サーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと
// キャッシュ清掃ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	credRepo := repository.NewPostgresCredentialRepo(db)
	cacheRepo := repository.NewPostgresEventCacheRepo(db)

	// 3. セキュリティサービスと上流クライアントの初期化
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.SportBaseURL); err != nil {
		return fmt.Errorf("invalid SPORT_BASE_URL: %w", err)
	}
	sportClient := sport.NewClient(
		cfg.SportBaseURL,
		ssrfGuard.NewSafeClient(cfg.UpstreamTimeout),
		slog.Default(),
	)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. カレンダービルダーの初期化
	builder, err := calendar.NewBuilder(
		sportClient, cacheRepo, security.NewDescriptionSanitizer(),
		collector, slog.Default(),
		calendar.Config{
			Timezone:      cfg.CalendarTimezone,
			WindowDays:    cfg.CalendarWindowDays,
			CacheTTL:      cfg.EventCacheTTL,
			MaxConcurrent: cfg.DetailMaxConcurrent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to build calendar builder: %w", err)
	}

	// 6. キャッシュ清掃ジョブの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	janitor := worker.NewCacheJanitor(cacheRepo, slog.Default())
	cronScheduler, err := janitor.Start(ctx, cacheCleanupSchedule)
	if err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	defer cronScheduler.Stop()

	// 7. ルーターの構築
	// configのRateLimitCalendarはreq/min単位なのでreq/secに変換する
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		CalendarRate:    rate.Limit(float64(cfg.RateLimitCalendar) / 60.0),
		CalendarBurst:   cfg.RateLimitCalendar,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Credentials:   credRepo,
		Builder:       builder,
		HealthChecker: db,
		RateLimiter:   rateLimiter,
		Metrics:       collector,
		Gatherer:      registry,
		Logger:        slog.Default(),
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("calendar server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down calendar server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("calendar server stopped gracefully")
	return nil
}

// runBot はTelegramボットモードで起動する。
// DB接続を開き、登録フローの依存関係をワイヤリングし、
// ロングポーリングの更新ループを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runBot(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (bot)")

	// 2. リポジトリの初期化
	credRepo := repository.NewPostgresCredentialRepo(db)

	// 3. セキュリティサービスと上流クライアントの初期化
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.SportBaseURL); err != nil {
		return fmt.Errorf("invalid SPORT_BASE_URL: %w", err)
	}
	sportClient := sport.NewClient(
		cfg.SportBaseURL,
		ssrfGuard.NewSafeClient(cfg.UpstreamTimeout),
		slog.Default(),
	)

	// 4. 登録サービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	regService := registration.NewService(
		token.NewDeriver(cfg.Salt),
		sportClient,
		credRepo,
		collector,
		slog.Default(),
	)

	// 5. 運用エンドポイントの起動
	// botモードでも登録関連カウンターをスクレイプできるよう、
	// /healthと/metricsだけの縮小ルーターを公開する
	opsServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewOpsRouter(db, registry, slog.Default()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ops server starting (bot)",
			slog.String("addr", opsServer.Addr),
		)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server listen error", slog.String("error", err.Error()))
		}
	}()

	// 6. Telegramクライアントとディスパッチャーの初期化
	// ロングポーリングがサーバー側で待機するため、HTTPタイムアウトは
	// ポーリング待機時間より長く取る
	tgClient := telegram.NewClient(
		cfg.BotToken,
		&http.Client{Timeout: cfg.BotPollTimeout + 10*time.Second},
		slog.Default(),
	)

	dispatcher := bot.NewDispatcher(tgClient, regService, slog.Default(), bot.Config{
		BaseURL:     cfg.BaseURL,
		PollTimeout: cfg.BotPollTimeout,
	})

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down bot...")
		cancel()
	}()

	runErr := dispatcher.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("ops server shutdown failed", slog.String("error", err.Error()))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("bot loop failed: %w", runErr)
	}

	slog.Info("bot stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
