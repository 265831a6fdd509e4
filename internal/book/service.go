// Package book は蔵書管理のドメインロジックを提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// BookInfo は蔵書に貸出可否を結合したドメインオブジェクト。
// Availableは保存された状態ではなく、オープンな貸出の不在から都度導出する。
type BookInfo struct {
	model.Book
	Available bool
}

// Service は蔵書管理のサービス層。
type Service struct {
	bookRepo repository.BookRepository
	loanRepo repository.LoanRepository
	nowFn    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(bookRepo repository.BookRepository, loanRepo repository.LoanRepository) *Service {
	return &Service{
		bookRepo: bookRepo,
		loanRepo: loanRepo,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Create は蔵書を登録する。ISBNはISBN-10またはISBN-13として検証する。
func (s *Service) Create(ctx context.Context, isbn, title, author string) (*BookInfo, error) {
	if !isValidISBN(isbn) {
		return nil, model.NewInvalidISBNError(isbn)
	}

	now := s.nowFn()
	book := &model.Book{
		ID:        uuid.New().String(),
		ISBN:      normalizeISBN(isbn),
		Title:     title,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("蔵書の登録に失敗しました: %w", err)
	}

	slog.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("isbn", book.ISBN),
	)

	// 登録直後の蔵書は必ず貸出可能
	return &BookInfo{Book: *book, Available: true}, nil
}

// Get は指定IDの蔵書を貸出可否付きで取得する。
// 蔵書が存在しない場合はBOOK_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*BookInfo, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return s.withAvailability(ctx, book)
}

// List は全蔵書を貸出可否付きで返す。
func (s *Service) List(ctx context.Context) ([]*BookInfo, error) {
	books, err := s.bookRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("蔵書一覧の取得に失敗しました: %w", err)
	}
	return s.withAvailabilityAll(ctx, books)
}

// ListAvailable は貸出可能な蔵書のみを返す。
func (s *Service) ListAvailable(ctx context.Context) ([]*BookInfo, error) {
	books, err := s.bookRepo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("貸出可能な蔵書一覧の取得に失敗しました: %w", err)
	}

	infos := make([]*BookInfo, len(books))
	for i, book := range books {
		infos[i] = &BookInfo{Book: *book, Available: true}
	}
	return infos, nil
}

// SearchByTitle はタイトルの部分一致で蔵書を検索する。
func (s *Service) SearchByTitle(ctx context.Context, title string) ([]*BookInfo, error) {
	books, err := s.bookRepo.SearchByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("タイトルによる蔵書検索に失敗しました: %w", err)
	}
	return s.withAvailabilityAll(ctx, books)
}

// SearchByAuthor は著者名の部分一致で蔵書を検索する。
func (s *Service) SearchByAuthor(ctx context.Context, author string) ([]*BookInfo, error) {
	books, err := s.bookRepo.SearchByAuthor(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("著者名による蔵書検索に失敗しました: %w", err)
	}
	return s.withAvailabilityAll(ctx, books)
}

// Update は蔵書情報を更新する。
func (s *Service) Update(ctx context.Context, id, isbn, title, author string) (*BookInfo, error) {
	if !isValidISBN(isbn) {
		return nil, model.NewInvalidISBNError(isbn)
	}

	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}

	book.ISBN = normalizeISBN(isbn)
	book.Title = title
	book.Author = author

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("蔵書の更新に失敗しました: %w", err)
	}

	return s.withAvailability(ctx, book)
}

// Delete は蔵書を削除する。関連する貸出記録はストレージ層でCASCADE削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	exists, err := s.bookRepo.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("蔵書の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewBookNotFoundError(id)
	}

	if err := s.bookRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("蔵書の削除に失敗しました: %w", err)
	}

	slog.Info("book deleted", slog.String("book_id", id))
	return nil
}

// withAvailability は蔵書に貸出可否を結合する。
func (s *Service) withAvailability(ctx context.Context, book *model.Book) (*BookInfo, error) {
	open, err := s.loanRepo.FindOpenByBookID(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("貸出状況の確認に失敗しました: %w", err)
	}
	return &BookInfo{Book: *book, Available: open == nil}, nil
}

// withAvailabilityAll は複数の蔵書に貸出可否を結合する。
func (s *Service) withAvailabilityAll(ctx context.Context, books []*model.Book) ([]*BookInfo, error) {
	infos := make([]*BookInfo, len(books))
	for i, book := range books {
		info, err := s.withAvailability(ctx, book)
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}
	return infos, nil
}

// normalizeISBN はISBNからハイフンと空白を除去する。
func normalizeISBN(isbn string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, isbn)
}

// isValidISBN はISBN-10またはISBN-13のチェックディジットを検証する。
func isValidISBN(isbn string) bool {
	normalized := normalizeISBN(isbn)
	switch len(normalized) {
	case 10:
		return isValidISBN10(normalized)
	case 13:
		return isValidISBN13(normalized)
	default:
		return false
	}
}

// isValidISBN10 はISBN-10のチェックディジットを検証する。
// 末尾の桁のみ'X'（値10）を許容する。
func isValidISBN10(isbn string) bool {
	sum := 0
	for i, r := range isbn {
		var digit int
		switch {
		case r >= '0' && r <= '9':
			digit = int(r - '0')
		case (r == 'X' || r == 'x') && i == 9:
			digit = 10
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// isValidISBN13 はISBN-13のチェックディジットを検証する。
func isValidISBN13(isbn string) bool {
	sum := 0
	for i, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
		digit := int(r - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	return sum%10 == 0
}
