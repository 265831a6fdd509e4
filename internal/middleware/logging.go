package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// HTTPMetricsRecorder はリクエストログミドルウェアが発行するメトリクスのインターフェース。
type HTTPMetricsRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(duration time.Duration)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログとHTTPメトリクスを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_msを含む。metricsはnilを許容する。
func NewLoggingMiddleware(logger *slog.Logger, metrics HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			if metrics != nil {
				metrics.RecordHTTPStatus(rec.statusCode)
				metrics.RecordHTTPLatency(duration)
			}

			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			)
		})
	}
}
