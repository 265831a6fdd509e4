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
// 貸出サービスと延滞スキャナから利用する。
type Collector struct {
	borrows      prometheus.Counter
	returns      prometheus.Counter
	conflicts    prometheus.Counter
	openLoans    prometheus.Gauge
	overdueLoans prometheus.Gauge
	httpStatus   *prometheus.CounterVec
	httpLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		borrows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_borrows_total",
			Help: "貸出成功の合計数",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_returns_total",
			Help: "返却成功の合計数",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_loan_conflicts_total",
			Help: "貸出中の蔵書への貸出要求が拒否された合計数",
		}),
		openLoans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lendman_open_loans",
			Help: "現在オープンな貸出記録の件数",
		}),
		overdueLoans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lendman_overdue_loans",
			Help: "現在延滞中の貸出記録の件数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lendman_http_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.borrows,
		c.returns,
		c.conflicts,
		c.openLoans,
		c.overdueLoans,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordBorrow は貸出成功を記録する。
func (c *Collector) RecordBorrow() {
	c.borrows.Inc()
}

// RecordReturn は返却成功を記録する。
func (c *Collector) RecordReturn() {
	c.returns.Inc()
}

// RecordLoanConflict は貸出競合による拒否を記録する。
func (c *Collector) RecordLoanConflict() {
	c.conflicts.Inc()
}

// SetOpenLoans は現在のオープンな貸出件数を設定する。
func (c *Collector) SetOpenLoans(count int) {
	c.openLoans.Set(float64(count))
}

// SetOverdueLoans は現在の延滞中の貸出件数を設定する。
func (c *Collector) SetOverdueLoans(count int) {
	c.overdueLoans.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
