// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 利用側（取り込みパイプライン・ミドルウェア・Webhookハンドラー）は
// それぞれ必要なメソッドだけを切り出した狭いインターフェースを宣言する。
type Collector struct {
	ingestOutcome   *prometheus.CounterVec
	ingestLatency   prometheus.Histogram
	visionFallback  prometheus.Counter
	webhookRejected *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photolectic_ingest_outcome_total",
			Help: "写真取り込みの結果別の合計数",
		}, []string{"outcome"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photolectic_ingest_latency_seconds",
			Help:    "写真取り込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		visionFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photolectic_vision_fallback_total",
			Help: "写真解析がフォールバック値に退避した合計数",
		}),
		webhookRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photolectic_webhook_rejected_total",
			Help: "Webhook受信を拒否またはスキップした理由別の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photolectic_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.ingestOutcome,
		c.ingestLatency,
		c.visionFallback,
		c.webhookRejected,
		c.httpStatus,
	)

	return c
}

// RecordIngestOutcome は取り込み結果を記録する。
func (c *Collector) RecordIngestOutcome(kind string) {
	c.ingestOutcome.WithLabelValues(kind).Inc()
}

// RecordIngestLatency は取り込みのレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// RecordVisionFallback は解析フォールバックの発生を記録する。
func (c *Collector) RecordVisionFallback() {
	c.visionFallback.Inc()
}

// RecordWebhookRejected はWebhook拒否・スキップを理由付きで記録する。
func (c *Collector) RecordWebhookRejected(reason string) {
	c.webhookRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// /metricsへのマウントはapp側のServeMuxが行う。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
