// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// カレンダービルダー、ハンドラー、ボットの各層から利用する。
type MetricsCollector interface {
	RecordBuildSuccess()
	RecordBuildFailure()
	RecordCacheHit()
	RecordCacheMiss()
	RecordDetailFetchFailure()
	RecordBuildLatency(duration time.Duration)
	RecordCalendarServed()
	RecordUnauthorizedRequest()
	RecordRegistration()
	RecordValidationFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	buildSuccess    prometheus.Counter
	buildFail       prometheus.Counter
	cacheHit        prometheus.Counter
	cacheMiss       prometheus.Counter
	detailFetchFail prometheus.Counter
	buildLatency    prometheus.Histogram
	calendarServed  prometheus.Counter
	unauthorized    prometheus.Counter
	registrations   prometheus.Counter
	validationFail  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		buildSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_build_success_total",
			Help: "カレンダー構築成功の合計数",
		}),
		buildFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_build_fail_total",
			Help: "カレンダー構築失敗の合計数",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_event_cache_hit_total",
			Help: "イベント詳細キャッシュヒットの合計数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_event_cache_miss_total",
			Help: "イベント詳細キャッシュミスの合計数",
		}),
		detailFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_detail_fetch_fail_total",
			Help: "イベント詳細取得失敗の合計数",
		}),
		buildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sportcal_build_latency_seconds",
			Help:    "カレンダー構築のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		calendarServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_calendar_served_total",
			Help: "配信されたカレンダードキュメントの合計数",
		}),
		unauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_unauthorized_total",
			Help: "未登録トークンによるリクエストの合計数",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_registrations_total",
			Help: "資格情報登録成功の合計数",
		}),
		validationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportcal_validation_fail_total",
			Help: "資格情報検証失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.buildSuccess,
		c.buildFail,
		c.cacheHit,
		c.cacheMiss,
		c.detailFetchFail,
		c.buildLatency,
		c.calendarServed,
		c.unauthorized,
		c.registrations,
		c.validationFail,
	)

	return c
}

// RecordBuildSuccess はカレンダー構築成功を記録する。
func (c *Collector) RecordBuildSuccess() {
	c.buildSuccess.Inc()
}

// RecordBuildFailure はカレンダー構築失敗を記録する。
func (c *Collector) RecordBuildFailure() {
	c.buildFail.Inc()
}

// RecordCacheHit はイベント詳細キャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHit.Inc()
}

// RecordCacheMiss はイベント詳細キャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordDetailFetchFailure はイベント詳細取得失敗を記録する。
func (c *Collector) RecordDetailFetchFailure() {
	c.detailFetchFail.Inc()
}

// RecordBuildLatency はカレンダー構築のレイテンシを記録する。
func (c *Collector) RecordBuildLatency(duration time.Duration) {
	c.buildLatency.Observe(duration.Seconds())
}

// RecordCalendarServed はカレンダードキュメントの配信を記録する。
func (c *Collector) RecordCalendarServed() {
	c.calendarServed.Inc()
}

// RecordUnauthorizedRequest は未登録トークンによるリクエストを記録する。
func (c *Collector) RecordUnauthorizedRequest() {
	c.unauthorized.Inc()
}

// RecordRegistration は資格情報登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordValidationFailure は資格情報検証失敗を記録する。
func (c *Collector) RecordValidationFailure() {
	c.validationFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
