package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestObserver はHTTPリクエストの結果を受け取る。
// metrics.Collectorが実装する。
type RequestObserver interface {
	ObserveHTTPRequest(method string, status int, duration time.Duration)
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストごとのJSON構造化ログを出力するミドルウェアを返す。
// observerがnilでなければリクエスト結果をメトリクスにも記録する。
//
// アカウントIDは下流のセッションミドルウェアが注入するため、
// ハンドラーから共有されるholderを介して取得する。
func NewLoggingMiddleware(logger *slog.Logger, observer RequestObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			holder := &accountHolder{}
			next.ServeHTTP(rec, r.WithContext(withAccountHolder(r.Context(), holder)))

			duration := time.Since(start)
			if observer != nil {
				observer.ObserveHTTPRequest(r.Method, rec.statusCode, duration)
			}

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
			}
			if holder.accountID != "" {
				args = append(args, slog.String("account_id", holder.accountID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
