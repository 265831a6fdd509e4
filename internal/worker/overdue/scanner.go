// Package overdue はオープン・延滞中の貸出件数を定期的に集計するスキャナを提供する。
// 集計結果はメトリクスのゲージと構造化ログに反映する。通知の送信は行わない。
package overdue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/lendman/internal/repository"
)

// GaugeSetter はスキャナが更新するメトリクスのインターフェース。
type GaugeSetter interface {
	SetOpenLoans(count int)
	SetOverdueLoans(count int)
}

// Scanner は貸出状況の定期集計を行う。
type Scanner struct {
	loanRepo repository.LoanRepository
	metrics  GaugeSetter
	logger   *slog.Logger
	nowFn    func() time.Time
}

// NewScanner はScannerを生成する。metricsはnilを許容する。
func NewScanner(loanRepo repository.LoanRepository, metrics GaugeSetter, logger *slog.Logger) *Scanner {
	return &Scanner{
		loanRepo: loanRepo,
		metrics:  metrics,
		logger:   logger,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Run は1回の集計を実行する。
func (s *Scanner) Run(ctx context.Context) error {
	now := s.nowFn()

	open, err := s.loanRepo.CountOpen(ctx)
	if err != nil {
		return err
	}

	overdue, err := s.loanRepo.CountOverdue(ctx, now)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.SetOpenLoans(open)
		s.metrics.SetOverdueLoans(overdue)
	}

	s.logger.Info("loan scan completed",
		slog.Int("open_loans", open),
		slog.Int("overdue_loans", overdue),
	)

	return nil
}

// Start は指定間隔で集計を繰り返す。起動直後に1回実行し、
// コンテキストがキャンセルされるまでブロックする。
func (s *Scanner) Start(ctx context.Context, interval time.Duration) {
	if err := s.Run(ctx); err != nil {
		s.logger.Error("loan scan failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("loan scan failed", slog.String("error", err.Error()))
			}
		}
	}
}
