// Package loan は貸出ライフサイクルのドメインロジックを提供する。
//
// 貸出の状態機械は { 未作成, オープン, クローズ } の3状態を持つ。
// Borrowで未作成→オープン、Returnでオープン→クローズに遷移し、
// クローズは終端状態となる。同じ蔵書の再貸出は新しい記録の作成であり、
// クローズ済み記録の再オープンではない。
package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// LoanPeriodDays は貸出期間（暦日）。固定ポリシーであり設定化しない。
const LoanPeriodDays = 14

// unknownPlaceholder は参照先の利用者・蔵書が取得できない場合の表示値。
// 付帯情報の欠落が貸出記録本体の取得を妨げてはならない。
const unknownPlaceholder = "Unknown"

// LoanDetail は貸出記録に利用者と蔵書の付帯情報を結合したドメインオブジェクト。
type LoanDetail struct {
	model.LoanRecord
	BorrowerName  string
	BorrowerEmail string
	BookTitle     string
	BookAuthor    string
	BookISBN      string
}

// MetricsRecorder は貸出サービスが発行するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordBorrow()
	RecordReturn()
	RecordLoanConflict()
}

// Service は貸出ライフサイクルのサービス層。
// 同一蔵書のオープンな貸出を同時に1件以下に保つ不変条件の最終的な調停は、
// リポジトリ（ストレージ制約）に委ねる。プロセス内のチェックは高速経路であり、
// 安全性の根拠ではない。
type Service struct {
	loanRepo     repository.LoanRepository
	bookRepo     repository.BookRepository
	borrowerRepo repository.BorrowerRepository
	metrics      MetricsRecorder
	nowFn        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	loanRepo repository.LoanRepository,
	bookRepo repository.BookRepository,
	borrowerRepo repository.BorrowerRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		loanRepo:     loanRepo,
		bookRepo:     bookRepo,
		borrowerRepo: borrowerRepo,
		metrics:      metrics,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// Borrow は指定利用者への指定蔵書の貸出を行う。
// 利用者・蔵書の存在確認、オープンな貸出の楽観チェックを経て記録を挿入する。
// 同時実行のBorrowがチェックと挿入の間に割り込んだ場合、ストレージ制約が
// 片方の挿入を拒否し、どちらの経路で検出してもBOOK_ALREADY_BORROWEDとなる。
func (s *Service) Borrow(ctx context.Context, borrowerID, bookID string) (*LoanDetail, error) {
	borrowerExists, err := s.borrowerRepo.ExistsByID(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("利用者の存在確認に失敗しました: %w", err)
	}
	if !borrowerExists {
		return nil, model.NewBorrowerNotFoundError(borrowerID)
	}

	bookExists, err := s.bookRepo.ExistsByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の存在確認に失敗しました: %w", err)
	}
	if !bookExists {
		return nil, model.NewBookNotFoundError(bookID)
	}

	// 高速経路: 既知のオープンな貸出は挿入を試みずに拒否する
	open, err := s.loanRepo.FindOpenByBookID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("オープンな貸出の確認に失敗しました: %w", err)
	}
	if open != nil {
		if s.metrics != nil {
			s.metrics.RecordLoanConflict()
		}
		return nil, model.NewBookAlreadyBorrowedError(bookID)
	}

	now := s.nowFn()
	record := &model.LoanRecord{
		ID:         uuid.New().String(),
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowedAt: now,
		DueDate:    now.AddDate(0, 0, LoanPeriodDays),
		ReturnedAt: nil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.loanRepo.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrActiveLoanExists) {
			// 楽観チェック後に同時実行のBorrowが勝った場合。呼び出し側からは
			// 高速経路の拒否と区別がつかない同一のエラーとして見える。
			if s.metrics != nil {
				s.metrics.RecordLoanConflict()
			}
			return nil, model.NewBookAlreadyBorrowedError(bookID)
		}
		return nil, fmt.Errorf("貸出記録の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBorrow()
	}
	slog.Info("book borrowed",
		slog.String("record_id", record.ID),
		slog.String("borrower_id", borrowerID),
		slog.String("book_id", bookID),
		slog.Time("due_date", record.DueDate),
	)

	return s.enrich(ctx, record), nil
}

// Return は貸出中の蔵書の返却を行う。
// オープンな貸出が存在しない場合はBOOK_NOT_BORROWED、
// 貸出者本人以外からの返却はUNAUTHORIZED_BORROWERを返す。
// returned_atの設定は1回だけ行われ、以後その記録は変更されない。
func (s *Service) Return(ctx context.Context, borrowerID, bookID string) (*LoanDetail, error) {
	record, err := s.loanRepo.FindOpenByBookID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("オープンな貸出の取得に失敗しました: %w", err)
	}
	if record == nil {
		return nil, model.NewBookNotBorrowedError(bookID)
	}

	if record.BorrowerID != borrowerID {
		return nil, model.NewUnauthorizedBorrowerError()
	}

	now := s.nowFn()
	record.ReturnedAt = &now
	record.UpdatedAt = now

	if err := s.loanRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("貸出記録の更新に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReturn()
	}
	slog.Info("book returned",
		slog.String("record_id", record.ID),
		slog.String("borrower_id", borrowerID),
		slog.String("book_id", bookID),
	)

	return s.enrich(ctx, record), nil
}

// ListAll は全貸出記録を付帯情報付きで返す。
func (s *Service) ListAll(ctx context.Context) ([]*LoanDetail, error) {
	records, err := s.loanRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// ListActive はオープンな貸出記録を付帯情報付きで返す。
func (s *Service) ListActive(ctx context.Context) ([]*LoanDetail, error) {
	records, err := s.loanRepo.FindAllOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("オープンな貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// ListOverdue は評価時刻nowに対する延滞中の貸出記録を付帯情報付きで返す。
func (s *Service) ListOverdue(ctx context.Context, now time.Time) ([]*LoanDetail, error) {
	records, err := s.loanRepo.FindOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("延滞中の貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// ListByBorrower は指定利用者の全貸出記録を付帯情報付きで返す。
// 利用者が存在しない場合はBORROWER_NOT_FOUNDを返す。
func (s *Service) ListByBorrower(ctx context.Context, borrowerID string) ([]*LoanDetail, error) {
	if err := s.requireBorrower(ctx, borrowerID); err != nil {
		return nil, err
	}
	records, err := s.loanRepo.FindByBorrowerID(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("利用者の貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// ListActiveByBorrower は指定利用者のオープンな貸出記録を付帯情報付きで返す。
// 利用者が存在しない場合はBORROWER_NOT_FOUNDを返す。
func (s *Service) ListActiveByBorrower(ctx context.Context, borrowerID string) ([]*LoanDetail, error) {
	if err := s.requireBorrower(ctx, borrowerID); err != nil {
		return nil, err
	}
	records, err := s.loanRepo.FindOpenByBorrowerID(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("利用者のオープンな貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// ListByBook は指定蔵書の全貸出記録を付帯情報付きで返す。
// 蔵書が存在しない場合はBOOK_NOT_FOUNDを返す。
func (s *Service) ListByBook(ctx context.Context, bookID string) ([]*LoanDetail, error) {
	exists, err := s.bookRepo.ExistsByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return nil, model.NewBookNotFoundError(bookID)
	}
	records, err := s.loanRepo.FindByBookID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の貸出記録一覧の取得に失敗しました: %w", err)
	}
	return s.enrichAll(ctx, records), nil
}

// requireBorrower は利用者の存在を確認し、不在ならBORROWER_NOT_FOUNDを返す。
func (s *Service) requireBorrower(ctx context.Context, borrowerID string) error {
	exists, err := s.borrowerRepo.ExistsByID(ctx, borrowerID)
	if err != nil {
		return fmt.Errorf("利用者の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewBorrowerNotFoundError(borrowerID)
	}
	return nil
}

// enrich は貸出記録に利用者・蔵書の付帯情報を結合する。
// 参照先が取得できない場合（並行削除など）は"Unknown"に退避し、
// 警告ログのみ残して処理は継続する。付帯情報の欠落はエラーにしない。
func (s *Service) enrich(ctx context.Context, record *model.LoanRecord) *LoanDetail {
	detail := &LoanDetail{
		LoanRecord:    *record,
		BorrowerName:  unknownPlaceholder,
		BorrowerEmail: unknownPlaceholder,
		BookTitle:     unknownPlaceholder,
		BookAuthor:    unknownPlaceholder,
		BookISBN:      unknownPlaceholder,
	}

	borrower, err := s.borrowerRepo.FindByID(ctx, record.BorrowerID)
	if err != nil {
		slog.Warn("failed to enrich loan with borrower details",
			slog.String("record_id", record.ID),
			slog.String("borrower_id", record.BorrowerID),
			slog.String("error", err.Error()),
		)
	} else if borrower != nil {
		detail.BorrowerName = borrower.Name
		detail.BorrowerEmail = borrower.Email
	}

	book, err := s.bookRepo.FindByID(ctx, record.BookID)
	if err != nil {
		slog.Warn("failed to enrich loan with book details",
			slog.String("record_id", record.ID),
			slog.String("book_id", record.BookID),
			slog.String("error", err.Error()),
		)
	} else if book != nil {
		detail.BookTitle = book.Title
		detail.BookAuthor = book.Author
		detail.BookISBN = book.ISBN
	}

	return detail
}

// enrichAll は複数の貸出記録に付帯情報を結合する。
func (s *Service) enrichAll(ctx context.Context, records []*model.LoanRecord) []*LoanDetail {
	details := make([]*LoanDetail, len(records))
	for i, record := range records {
		details[i] = s.enrich(ctx, record)
	}
	return details
}
