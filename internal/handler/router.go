package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sportcal/internal/metrics"
	"github.com/hitoshi/sportcal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// カレンダー配信
	Credentials CredentialFinder
	Builder     CalendarBuilder

	// ヘルスチェック
	HealthChecker Pinger

	// ミドルウェア依存
	RateLimiter *middleware.RateLimiter

	// 観測
	Metrics  MetricsRecorder
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware
//
// カレンダー配信のみIP単位のレート制限を追加する。
// /healthと/metricsは運用系エンドポイントのためレート制限の外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	calendarHandler := NewCalendarHandler(deps.Credentials, deps.Builder, deps.Metrics, deps.Logger)

	r.Route("/iu/sport", func(r chi.Router) {
		r.With(deps.RateLimiter.CalendarMiddleware()).Get("/{token}", calendarHandler.ServeCalendar)
	})

	r.Get("/health", NewHealthHandler(deps.HealthChecker).Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}

// NewOpsRouter は運用エンドポイント（/health, /metrics）のみのルーターを返す。
// botモードはカレンダー配信を持たないが、登録数や検証失敗数のカウンターを
// 記録するため、スクレイプ用にこの縮小ルーターを公開する。
func NewOpsRouter(health Pinger, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.Get("/health", NewHealthHandler(health).Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	return r
}
