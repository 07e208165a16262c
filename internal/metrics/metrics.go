// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AppMetrics はメトリクス収集のインターフェース。
// ハンドラー・ミドルウェア・サービス層から利用する。
type AppMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordClockIn(result string)
	RecordClockOut(result string)
	RecordTokenExchange(duration time.Duration, success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus           *prometheus.CounterVec
	clockIn              *prometheus.CounterVec
	clockOut             *prometheus.CounterVec
	tokenExchangeLatency prometheus.Histogram
	tokenExchangeFail    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shifter_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		clockIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shifter_clock_in_total",
			Help: "出勤打刻の結果別の合計数",
		}, []string{"result"}),
		clockOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shifter_clock_out_total",
			Help: "退勤打刻の結果別の合計数",
		}, []string{"result"}),
		tokenExchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shifter_token_exchange_latency_seconds",
			Help:    "IdPトークン交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokenExchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shifter_token_exchange_fail_total",
			Help: "IdPトークン交換失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.clockIn,
		c.clockOut,
		c.tokenExchangeLatency,
		c.tokenExchangeFail,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordClockIn は出勤打刻の結果を記録する。
// resultは "accepted" または拒否理由（"office_closed" 等）。
func (c *Collector) RecordClockIn(result string) {
	c.clockIn.WithLabelValues(result).Inc()
}

// RecordClockOut は退勤打刻の結果を記録する。
func (c *Collector) RecordClockOut(result string) {
	c.clockOut.WithLabelValues(result).Inc()
}

// RecordTokenExchange はトークン交換のレイテンシと成否を記録する。
func (c *Collector) RecordTokenExchange(duration time.Duration, success bool) {
	c.tokenExchangeLatency.Observe(duration.Seconds())
	if !success {
		c.tokenExchangeFail.Inc()
	}
}

// compile-time interface check
var _ AppMetrics = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
