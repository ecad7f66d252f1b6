// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン・登録の結果ラベル
const (
	ResultSuccess            = "success"
	ResultMissingCredentials = "missing_credentials"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInvalidInput       = "invalid_input"
	ResultUserExists         = "user_exists"
	ResultError              = "error"
)

// ルートガードのリダイレクト先ラベル
const (
	RedirectLogin   = "login"
	RedirectLanding = "landing"
)

// AuthRecorder は認証イベントの記録インターフェース。
// ハンドラーやミドルウェアから利用する。
type AuthRecorder interface {
	RecordLogin(result string)
	RecordLogout()
	RecordRegister(result string)
	RecordGuardRedirect(target string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	login          *prometheus.CounterVec
	logout         prometheus.Counter
	register       *prometheus.CounterVec
	invalidSession *prometheus.CounterVec
	guardRedirect  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	purged         prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		logout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kakeibo_logout_total",
			Help: "ログアウトの合計数",
		}),
		register: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_register_total",
			Help: "ユーザー登録の結果別合計数",
		}, []string{"result"}),
		invalidSession: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_invalid_session_total",
			Help: "拒否したセッショントークンの理由別合計数",
		}, []string{"reason"}),
		guardRedirect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_guard_redirect_total",
			Help: "ルートガードによるリダイレクトの合計数",
		}, []string{"target"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kakeibo_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kakeibo_revocations_purged_total",
			Help: "掃除ジョブが削除した失効レコードの合計数",
		}),
	}

	reg.MustRegister(
		c.login,
		c.logout,
		c.register,
		c.invalidSession,
		c.guardRedirect,
		c.httpStatus,
		c.requestLatency,
		c.purged,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.login.WithLabelValues(result).Inc()
}

// RecordLogout はログアウトを記録する。
func (c *Collector) RecordLogout() {
	c.logout.Inc()
}

// RecordRegister はユーザー登録の結果を記録する。
func (c *Collector) RecordRegister(result string) {
	c.register.WithLabelValues(result).Inc()
}

// ObserveInvalidToken は拒否したセッショントークンを記録する。
func (c *Collector) ObserveInvalidToken(reason string) {
	c.invalidSession.WithLabelValues(reason).Inc()
}

// RecordGuardRedirect はルートガードのリダイレクトを記録する。
func (c *Collector) RecordGuardRedirect(target string) {
	c.guardRedirect.WithLabelValues(target).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// ObserveRevocationsPurged は掃除ジョブが削除した件数を記録する。
func (c *Collector) ObserveRevocationsPurged(n int64) {
	c.purged.Add(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopRecorder は何も記録しないAuthRecorder。
type NopRecorder struct{}

func (NopRecorder) RecordLogin(string)                 {}
func (NopRecorder) RecordLogout()                      {}
func (NopRecorder) RecordRegister(string)              {}
func (NopRecorder) RecordGuardRedirect(string)         {}
func (NopRecorder) RecordHTTPStatus(int)               {}
func (NopRecorder) RecordRequestLatency(time.Duration) {}

var (
	_ AuthRecorder = (*Collector)(nil)
	_ AuthRecorder = NopRecorder{}
)
