// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordGateRedirect(reason string)
	RecordJobCreated()
	RecordJobDeleted()
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus    *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	gateRedirects *prometheus.CounterVec
	jobsCreated   prometheus.Counter
	jobsDeleted   prometheus.Counter
	sessionsSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobboard_http_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		gateRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_gate_redirect_total",
			Help: "ゲートによるリダイレクトの合計数（理由別）",
		}, []string{"reason"}),
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_jobs_created_total",
			Help: "作成された求人の合計数",
		}),
		jobsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_jobs_deleted_total",
			Help: "削除された求人の合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_sessions_swept_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.gateRedirects,
		c.jobsCreated,
		c.jobsDeleted,
		c.sessionsSwept,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordGateRedirect はゲートによるリダイレクトを理由別に記録する。
func (c *Collector) RecordGateRedirect(reason string) {
	c.gateRedirects.WithLabelValues(reason).Inc()
}

// RecordJobCreated は求人の作成を記録する。
func (c *Collector) RecordJobCreated() {
	c.jobsCreated.Inc()
}

// RecordJobDeleted は求人の削除を記録する。
func (c *Collector) RecordJobDeleted() {
	c.jobsDeleted.Inc()
}

// RecordSessionsSwept はクリーンアップで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
