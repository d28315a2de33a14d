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
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordMealLogged(source string, foodCount int)
	RecordRecognitionFailure(source string, reason string)
	RecordRecognitionLatency(source string, duration time.Duration)
	RecordSessionIssued(newUser bool)
	RecordSessionsReaped(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	mealsLogged        *prometheus.CounterVec
	foodItemsLogged    prometheus.Counter
	recognitionFail    *prometheus.CounterVec
	recognitionLatency *prometheus.HistogramVec
	sessionsIssued     *prometheus.CounterVec
	sessionsReaped     prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mealsLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neocal_meals_logged_total",
			Help: "入力元別の食事記録数",
		}, []string{"source"}),
		foodItemsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neocal_food_items_logged_total",
			Help: "記録された食品の合計数",
		}),
		recognitionFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neocal_recognition_fail_total",
			Help: "入力元・理由別の食品認識失敗数",
		}, []string{"source", "reason"}),
		recognitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neocal_recognition_latency_seconds",
			Help:    "食品認識サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neocal_sessions_issued_total",
			Help: "発行された匿名セッション数",
		}, []string{"user"}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neocal_sessions_reaped_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neocal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.mealsLogged,
		c.foodItemsLogged,
		c.recognitionFail,
		c.recognitionLatency,
		c.sessionsIssued,
		c.sessionsReaped,
		c.httpStatus,
	)

	return c
}

// RecordMealLogged は食事記録の保存を記録する。
func (c *Collector) RecordMealLogged(source string, foodCount int) {
	c.mealsLogged.WithLabelValues(source).Inc()
	c.foodItemsLogged.Add(float64(foodCount))
}

// RecordRecognitionFailure は食品認識の失敗を記録する。
func (c *Collector) RecordRecognitionFailure(source string, reason string) {
	c.recognitionFail.WithLabelValues(source, reason).Inc()
}

// RecordRecognitionLatency は認識サービス呼び出しのレイテンシを記録する。
func (c *Collector) RecordRecognitionLatency(source string, duration time.Duration) {
	c.recognitionLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSessionIssued は匿名セッションの発行を記録する。
func (c *Collector) RecordSessionIssued(newUser bool) {
	label := "existing"
	if newUser {
		label = "new"
	}
	c.sessionsIssued.WithLabelValues(label).Inc()
}

// RecordSessionsReaped は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsReaped(count int64) {
	c.sessionsReaped.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
