package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	Rate            rate.Limit    // クライアントごとのレート（req/sec）
	Burst           int           // バーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig はreq/min単位の上限からレート制限設定を生成する。
func NewRateLimiterConfig(requestsPerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(requestsPerMinute) / 60.0),
		Burst:           requestsPerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware はクライアントIPごとのレート制限ミドルウェアを返す。
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIPFromRequest(r)

			if !rl.getOrCreateLimiter(clientIP).Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", clientIP),
				)
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getOrCreateLimiter はクライアントIPに対応するリミッターを取得または生成する。
func (rl *RateLimiter) getOrCreateLimiter(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[clientIP]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst),
		}
		rl.limiters[clientIP] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

// cleanupLoop は一定間隔で長時間アクセスのないエントリを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.CleanupInterval)
			rl.mu.Lock()
			for ip, cl := range rl.limiters {
				if cl.lastAccess.Before(cutoff) {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// clientIPFromRequest はリクエストからクライアントIPを取り出す。
// ポート部を除去できない場合はRemoteAddrをそのまま使用する。
func clientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429レスポンスを統一フォーマットで書き込む。
func writeRateLimitResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエスト数が上限に達しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
