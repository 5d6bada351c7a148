// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sportcal/internal/model"
)

// CredentialFinder はトークンから資格情報を解決するインターフェース。
type CredentialFinder interface {
	Get(ctx context.Context, token string) (*model.Credential, error)
}

// CalendarBuilder はカレンダードキュメント構築のインターフェース。
type CalendarBuilder interface {
	Build(ctx context.Context, credential string) ([]byte, error)
}

// MetricsRecorder はハンドラーが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordCalendarServed()
	RecordUnauthorizedRequest()
}

// カレンダー配信レスポンスの固定値。
const (
	calendarContentType = "text/calendar; charset=utf-8"
	calendarDisposition = "attachment; filename=sport_in_iu.ics"
	unauthorizedBody    = "You are not authorized"
)

// CalendarHandler はカレンダー配信のHTTPハンドラー。
type CalendarHandler struct {
	creds   CredentialFinder
	builder CalendarBuilder
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(creds CredentialFinder, builder CalendarBuilder, metrics MetricsRecorder, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		creds:   creds,
		builder: builder,
		metrics: metrics,
		logger:  logger,
	}
}

// ServeCalendar はトークンに紐づくカレンダーをiCalendar形式で配信する。
// GET /iu/sport/{token}
//
// トークンが未登録の場合は上流への問い合わせを一切行わずに403を返す。
// これによりトークンの有効性以外の情報（上流の状態など）が漏れない。
func (h *CalendarHandler) ServeCalendar(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	cred, err := h.creds.Get(r.Context(), token)
	if err != nil {
		h.logger.Error("資格情報の参照に失敗しました",
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if cred == nil {
		h.metrics.RecordUnauthorizedRequest()
		h.logger.Info("未登録トークンへのアクセスを拒否しました",
			slog.String("error", model.NewTokenNotFoundError().Error()),
		)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(unauthorizedBody))
		return
	}

	document, err := h.builder.Build(r.Context(), cred.Credential)
	if err != nil {
		if model.IsUpstreamUnavailable(err) {
			http.Error(w, "upstream schedule service unavailable", http.StatusBadGateway)
			return
		}
		h.logger.Error("カレンダー構築に失敗しました",
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordCalendarServed()
	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("Content-Disposition", calendarDisposition)
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

// Pinger はヘルスチェックが必要とするDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health はDB疎通を含むヘルスチェックエンドポイント。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
