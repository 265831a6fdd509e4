package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/middleware"
)

// HealthChecker はヘルスチェックが必要とするDB疎通確認のインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder

	// /metrics エンドポイント
	MetricsHandler http.Handler

	// サービス
	LoanService     LoanServiceInterface
	BookService     BookServiceInterface
	BorrowerService BorrowerServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware
//
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))

	loanHandler := NewLoanHandler(deps.LoanService)
	bookHandler := NewBookHandler(deps.BookService)
	borrowerHandler := NewBorrowerHandler(deps.BorrowerService)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/healthz", newHealthzHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// 貸出ライフサイクル
		r.Route("/api/loans", func(r chi.Router) {
			r.Post("/borrow", loanHandler.Borrow)
			r.Post("/return", loanHandler.Return)
			r.Get("/", loanHandler.ListAll)
			r.Get("/active", loanHandler.ListActive)
			r.Get("/overdue", loanHandler.ListOverdue)
		})

		// 蔵書管理
		r.Route("/api/books", func(r chi.Router) {
			r.Post("/", bookHandler.Create)
			r.Get("/", bookHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookHandler.Get)
				r.Put("/", bookHandler.Update)
				r.Delete("/", bookHandler.Delete)

				// GET /api/books/{id}/loans - 蔵書ごとの貸出履歴
				r.Get("/loans", loanHandler.ListByBook)
			})
		})

		// 利用者管理
		r.Route("/api/borrowers", func(r chi.Router) {
			r.Post("/", borrowerHandler.Create)
			r.Get("/", borrowerHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", borrowerHandler.Get)
				r.Put("/", borrowerHandler.Update)
				r.Delete("/", borrowerHandler.Delete)

				// GET /api/borrowers/{id}/loans - 利用者ごとの貸出履歴
				r.Get("/loans", loanHandler.ListByBorrower)
				r.Get("/loans/active", loanHandler.ListActiveByBorrower)
			})
		})
	})

	return r
}

// newHealthzHandler はDB疎通確認付きのヘルスチェックハンドラーを返す。
func newHealthzHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
