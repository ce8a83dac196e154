// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値。
const (
	LoginSuccess     = "success"
	LoginBadPassword = "bad_password"
	LoginUnconfirmed = "unconfirmed"
	LoginNotFound    = "not_found"
	LoginError       = "error"
)

// MetricsCollector はドメインイベントのメトリクス収集インターフェース。
// ハンドラー層とワーカーから利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordActivation()
	RecordLogin(outcome string)
	RecordFollow()
	RecordUnfollow()
	RecordPostCreated()
	RecordCommentCreated()
	RecordDeletion(kind string)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations  prometheus.Counter
	activations    prometheus.Counter
	logins         *prometheus.CounterVec
	follows        prometheus.Counter
	unfollows      prometheus.Counter
	posts          prometheus.Counter
	comments       prometheus.Counter
	deletions      *prometheus.CounterVec
	sessionsPurged prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_registrations_total",
			Help: "アカウント登録の合計数",
		}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_activations_total",
			Help: "アカウント確認完了の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitmeme_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		follows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_follows_total",
			Help: "フォローの合計数",
		}),
		unfollows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_unfollows_total",
			Help: "フォロー解除の合計数",
		}),
		posts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitmeme_deletions_total",
			Help: "種別ごとの削除数",
		}, []string{"kind"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitmeme_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitmeme_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bitmeme_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.registrations,
		c.activations,
		c.logins,
		c.follows,
		c.unfollows,
		c.posts,
		c.comments,
		c.deletions,
		c.sessionsPurged,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

func (c *Collector) RecordRegistration() { c.registrations.Inc() }

func (c *Collector) RecordActivation() { c.activations.Inc() }

// RecordLogin はログイン試行を結果ラベル付きで記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordFollow() { c.follows.Inc() }

func (c *Collector) RecordUnfollow() { c.unfollows.Inc() }

func (c *Collector) RecordPostCreated() { c.posts.Inc() }

func (c *Collector) RecordCommentCreated() { c.comments.Inc() }

// RecordDeletion は削除を種別（post, comment）ごとに記録する。
func (c *Collector) RecordDeletion(kind string) {
	c.deletions.WithLabelValues(kind).Inc()
}

// RecordSessionsPurged はクリーンアップで削除したセッション数を加算する。
func (c *Collector) RecordSessionsPurged(count int64) {
	if count > 0 {
		c.sessionsPurged.Add(float64(count))
	}
}

// ObserveHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// middleware.RequestObserverを満たす。
func (c *Collector) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを使わないテストやワーカー起動で使用する。
type NopCollector struct{}

func (NopCollector) RecordRegistration() {}
func (NopCollector) RecordActivation() {}
func (NopCollector) RecordLogin(string) {}
func (NopCollector) RecordFollow() {}
func (NopCollector) RecordUnfollow() {}
func (NopCollector) RecordPostCreated() {}
func (NopCollector) RecordCommentCreated() {}
func (NopCollector) RecordDeletion(string) {}
func (NopCollector) RecordSessionsPurged(int64) {}
