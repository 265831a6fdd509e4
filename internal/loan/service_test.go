package loan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// --- モック ---

type mockLoanRepo struct {
	insertFn               func(ctx context.Context, record *model.LoanRecord) error
	updateFn               func(ctx context.Context, record *model.LoanRecord) error
	findOpenByBookIDFn     func(ctx context.Context, bookID string) (*model.LoanRecord, error)
	findAllFn              func(ctx context.Context) ([]*model.LoanRecord, error)
	findAllOpenFn          func(ctx context.Context) ([]*model.LoanRecord, error)
	findByBorrowerIDFn     func(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error)
	findOpenByBorrowerIDFn func(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error)
	findByBookIDFn         func(ctx context.Context, bookID string) ([]*model.LoanRecord, error)
	findOverdueFn          func(ctx context.Context, now time.Time) ([]*model.LoanRecord, error)
}

func (m *mockLoanRepo) Insert(ctx context.Context, record *model.LoanRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, record)
	}
	return nil
}
func (m *mockLoanRepo) Update(ctx context.Context, record *model.LoanRecord) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, record)
	}
	return nil
}
func (m *mockLoanRepo) FindOpenByBookID(ctx context.Context, bookID string) (*model.LoanRecord, error) {
	if m.findOpenByBookIDFn != nil {
		return m.findOpenByBookIDFn(ctx, bookID)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindAll(ctx context.Context) ([]*model.LoanRecord, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindAllOpen(ctx context.Context) ([]*model.LoanRecord, error) {
	if m.findAllOpenFn != nil {
		return m.findAllOpenFn(ctx)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error) {
	if m.findByBorrowerIDFn != nil {
		return m.findByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindOpenByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error) {
	if m.findOpenByBorrowerIDFn != nil {
		return m.findOpenByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindByBookID(ctx context.Context, bookID string) ([]*model.LoanRecord, error) {
	if m.findByBookIDFn != nil {
		return m.findByBookIDFn(ctx, bookID)
	}
	return nil, nil
}
func (m *mockLoanRepo) FindOverdue(ctx context.Context, now time.Time) ([]*model.LoanRecord, error) {
	if m.findOverdueFn != nil {
		return m.findOverdueFn(ctx, now)
	}
	return nil, nil
}
func (m *mockLoanRepo) CountOpen(ctx context.Context) (int, error) {
	return 0, nil
}
func (m *mockLoanRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type mockBookRepo struct {
	existsByIDFn func(ctx context.Context, id string) (bool, error)
	findByIDFn   func(ctx context.Context, id string) (*model.Book, error)
}

func (m *mockBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockBookRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	if m.existsByIDFn != nil {
		return m.existsByIDFn(ctx, id)
	}
	return true, nil
}
func (m *mockBookRepo) Create(ctx context.Context, book *model.Book) error { return nil }
func (m *mockBookRepo) Update(ctx context.Context, book *model.Book) error { return nil }
func (m *mockBookRepo) ListAll(ctx context.Context) ([]*model.Book, error) { return nil, nil }
func (m *mockBookRepo) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	return nil, nil
}
func (m *mockBookRepo) SearchByTitle(ctx context.Context, title string) ([]*model.Book, error) {
	return nil, nil
}
func (m *mockBookRepo) SearchByAuthor(ctx context.Context, author string) ([]*model.Book, error) {
	return nil, nil
}
func (m *mockBookRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockBorrowerRepo struct {
	existsByIDFn func(ctx context.Context, id string) (bool, error)
	findByIDFn   func(ctx context.Context, id string) (*model.Borrower, error)
}

func (m *mockBorrowerRepo) FindByID(ctx context.Context, id string) (*model.Borrower, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockBorrowerRepo) FindByEmail(ctx context.Context, email string) (*model.Borrower, error) {
	return nil, nil
}
func (m *mockBorrowerRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	if m.existsByIDFn != nil {
		return m.existsByIDFn(ctx, id)
	}
	return true, nil
}
func (m *mockBorrowerRepo) Create(ctx context.Context, borrower *model.Borrower) error { return nil }
func (m *mockBorrowerRepo) Update(ctx context.Context, borrower *model.Borrower) error { return nil }
func (m *mockBorrowerRepo) ListAll(ctx context.Context) ([]*model.Borrower, error)     { return nil, nil }
func (m *mockBorrowerRepo) DeleteByID(ctx context.Context, id string) error            { return nil }

// newTestService は固定時刻のServiceとモックを生成する。
func newTestService(loanRepo *mockLoanRepo, bookRepo *mockBookRepo, borrowerRepo *mockBorrowerRepo, now time.Time) *Service {
	s := NewService(loanRepo, bookRepo, borrowerRepo, nil)
	s.nowFn = func() time.Time { return now }
	return s
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

// --- Borrow テスト ---

// Borrow成功時にreturned_atがnil、due_dateがborrowed_at+14日の記録が返ることを検証
func TestService_Borrow_Success(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var inserted *model.LoanRecord

	loanRepo := &mockLoanRepo{
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			inserted = record
			return nil
		},
	}
	bookRepo := &mockBookRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Book, error) {
			return &model.Book{ID: id, Title: "Go言語による並行処理", Author: "Katherine Cox-Buday", ISBN: "9784873118468"}, nil
		},
	}
	borrowerRepo := &mockBorrowerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Borrower, error) {
			return &model.Borrower{ID: id, Name: "山田太郎", Email: "taro@example.com"}, nil
		},
	}

	s := newTestService(loanRepo, bookRepo, borrowerRepo, now)

	detail, err := s.Borrow(context.Background(), "borrower-1", "book-1")
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	if inserted == nil {
		t.Fatal("expected Insert to be called")
	}
	if detail.ReturnedAt != nil {
		t.Errorf("ReturnedAt = %v, want nil", detail.ReturnedAt)
	}
	if !detail.BorrowedAt.Equal(now) {
		t.Errorf("BorrowedAt = %v, want %v", detail.BorrowedAt, now)
	}
	wantDue := now.AddDate(0, 0, 14)
	if !detail.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", detail.DueDate, wantDue)
	}
	if detail.ID == "" {
		t.Error("expected non-empty record ID")
	}
	if detail.BorrowerName != "山田太郎" {
		t.Errorf("BorrowerName = %q, want %q", detail.BorrowerName, "山田太郎")
	}
	if detail.BookTitle != "Go言語による並行処理" {
		t.Errorf("BookTitle = %q, want %q", detail.BookTitle, "Go言語による並行処理")
	}
}

// 未登録の利用者によるBorrowがBORROWER_NOT_FOUNDで失敗することを検証
func TestService_Borrow_BorrowerNotFound(t *testing.T) {
	insertCalled := false
	loanRepo := &mockLoanRepo{
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			insertCalled = true
			return nil
		},
	}
	borrowerRepo := &mockBorrowerRepo{
		existsByIDFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, borrowerRepo, time.Now())

	_, err := s.Borrow(context.Background(), "missing", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeBorrowerNotFound)
	if insertCalled {
		t.Error("expected no record to be created")
	}
}

// 未登録の蔵書へのBorrowがBOOK_NOT_FOUNDで失敗し、記録が作成されないことを検証
func TestService_Borrow_BookNotFound(t *testing.T) {
	insertCalled := false
	loanRepo := &mockLoanRepo{
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			insertCalled = true
			return nil
		},
	}
	bookRepo := &mockBookRepo{
		existsByIDFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}

	s := newTestService(loanRepo, bookRepo, &mockBorrowerRepo{}, time.Now())

	_, err := s.Borrow(context.Background(), "borrower-1", "missing")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
	if insertCalled {
		t.Error("expected no record to be created")
	}
}

// 貸出中の蔵書へのBorrowが楽観チェックでBOOK_ALREADY_BORROWEDとなることを検証
func TestService_Borrow_AlreadyBorrowed_FastPath(t *testing.T) {
	loanRepo := &mockLoanRepo{
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			return &model.LoanRecord{ID: "record-1", BorrowerID: "borrower-1", BookID: bookID}, nil
		},
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			t.Error("Insert should not be called when the fast path rejects")
			return nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	_, err := s.Borrow(context.Background(), "borrower-2", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeBookAlreadyBorrowed)
}

// 楽観チェックの後に挿入がストレージ制約に拒否された場合も
// 同一のBOOK_ALREADY_BORROWEDとなることを検証
func TestService_Borrow_AlreadyBorrowed_ConstraintViolation(t *testing.T) {
	loanRepo := &mockLoanRepo{
		// 楽観チェックはすり抜ける（直後に別のBorrowが勝った状況）
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			return nil, nil
		},
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			return repository.ErrActiveLoanExists
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	_, err := s.Borrow(context.Background(), "borrower-2", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeBookAlreadyBorrowed)
}

// ストレージ障害がAPIErrorに変換されず、そのまま伝播することを検証
func TestService_Borrow_StorageFailure_Propagates(t *testing.T) {
	storageErr := errors.New("connection reset")
	loanRepo := &mockLoanRepo{
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			return storageErr
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	_, err := s.Borrow(context.Background(), "borrower-1", "book-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("storage failure should not be an APIError, got %v", apiErr)
	}
	if !errors.Is(err, storageErr) {
		t.Errorf("expected wrapped storage error, got %v", err)
	}
}

// 同一の未貸出蔵書へのN件の同時Borrowで、ちょうど1件が成功し
// 残りすべてがBOOK_ALREADY_BORROWEDで失敗することを検証。
// ストレージ制約を模したモックが挿入の原子性を提供する。
func TestService_Borrow_ConcurrentRequests_ExactlyOneWins(t *testing.T) {
	const concurrency = 50

	var mu sync.Mutex
	openLoans := make(map[string]bool)

	loanRepo := &mockLoanRepo{
		// 楽観チェックは常に素通しにして、全goroutineを挿入まで到達させる
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			return nil, nil
		},
		insertFn: func(ctx context.Context, record *model.LoanRecord) error {
			mu.Lock()
			defer mu.Unlock()
			if openLoans[record.BookID] {
				return repository.ErrActiveLoanExists
			}
			openLoans[record.BookID] = true
			return nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	var wg sync.WaitGroup
	successes := make(chan struct{}, concurrency)
	conflicts := make(chan struct{}, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Borrow(context.Background(), "borrower-1", "book-1")
			if err == nil {
				successes <- struct{}{}
				return
			}
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeBookAlreadyBorrowed {
				conflicts <- struct{}{}
				return
			}
			t.Errorf("unexpected error: %v", err)
		}()
	}
	wg.Wait()
	close(successes)
	close(conflicts)

	if got := len(successes); got != 1 {
		t.Errorf("successes = %d, want exactly 1", got)
	}
	if got := len(conflicts); got != concurrency-1 {
		t.Errorf("conflicts = %d, want %d", got, concurrency-1)
	}
}

// --- Return テスト ---

// Return成功時にreturned_atが設定され、同じ蔵書を再度Borrowできることを検証
func TestService_Return_Success_ThenBorrowSucceeds(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	open := &model.LoanRecord{
		ID:         "record-1",
		BorrowerID: "borrower-1",
		BookID:     "book-1",
		BorrowedAt: now.AddDate(0, 0, -3),
		DueDate:    now.AddDate(0, 0, 11),
	}

	loanRepo := &mockLoanRepo{
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			if open != nil && open.BookID == bookID {
				copied := *open
				return &copied, nil
			}
			return nil, nil
		},
		updateFn: func(ctx context.Context, record *model.LoanRecord) error {
			mu.Lock()
			defer mu.Unlock()
			if record.ReturnedAt != nil {
				open = nil
			}
			return nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, now)

	detail, err := s.Return(context.Background(), "borrower-1", "book-1")
	if err != nil {
		t.Fatalf("Return() error = %v", err)
	}
	if detail.ReturnedAt == nil {
		t.Fatal("ReturnedAt should be set after Return")
	}
	if !detail.ReturnedAt.Equal(now) {
		t.Errorf("ReturnedAt = %v, want %v", *detail.ReturnedAt, now)
	}

	// 返却後は別の利用者がBorrowできる
	if _, err := s.Borrow(context.Background(), "borrower-2", "book-1"); err != nil {
		t.Errorf("Borrow() after Return error = %v", err)
	}
}

// 未貸出の蔵書へのReturnがBOOK_NOT_BORROWEDで失敗することを検証
func TestService_Return_NotBorrowed(t *testing.T) {
	s := newTestService(&mockLoanRepo{}, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	_, err := s.Return(context.Background(), "borrower-1", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotBorrowed)
}

// 2回連続のReturnで2回目がBOOK_NOT_BORROWEDとなることを検証（冪等にしない）
func TestService_Return_Twice_SecondFails(t *testing.T) {
	var mu sync.Mutex
	open := &model.LoanRecord{ID: "record-1", BorrowerID: "borrower-1", BookID: "book-1"}

	loanRepo := &mockLoanRepo{
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			if open != nil {
				copied := *open
				return &copied, nil
			}
			return nil, nil
		},
		updateFn: func(ctx context.Context, record *model.LoanRecord) error {
			mu.Lock()
			defer mu.Unlock()
			open = nil
			return nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	if _, err := s.Return(context.Background(), "borrower-1", "book-1"); err != nil {
		t.Fatalf("first Return() error = %v", err)
	}

	_, err := s.Return(context.Background(), "borrower-1", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotBorrowed)
}

// 貸出者本人以外によるReturnがUNAUTHORIZED_BORROWERで失敗し、
// 記録が変更されないことを検証
func TestService_Return_UnauthorizedBorrower(t *testing.T) {
	updateCalled := false
	loanRepo := &mockLoanRepo{
		findOpenByBookIDFn: func(ctx context.Context, bookID string) (*model.LoanRecord, error) {
			return &model.LoanRecord{ID: "record-1", BorrowerID: "borrower-1", BookID: bookID}, nil
		},
		updateFn: func(ctx context.Context, record *model.LoanRecord) error {
			updateCalled = true
			return nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, time.Now())

	_, err := s.Return(context.Background(), "borrower-2", "book-1")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorizedBorrower)
	if updateCalled {
		t.Error("expected record to be left unmodified")
	}
}

// --- 照会テスト ---

// ListOverdueが評価時刻をリポジトリに引き渡すことを検証
func TestService_ListOverdue_PassesEvaluationTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	var gotNow time.Time

	loanRepo := &mockLoanRepo{
		findOverdueFn: func(ctx context.Context, n time.Time) ([]*model.LoanRecord, error) {
			gotNow = n
			due := now.AddDate(0, 0, -6)
			return []*model.LoanRecord{
				{ID: "record-1", BorrowerID: "borrower-1", BookID: "book-1",
					BorrowedAt: now.AddDate(0, 0, -20), DueDate: due},
			}, nil
		},
	}

	s := newTestService(loanRepo, &mockBookRepo{}, &mockBorrowerRepo{}, now)

	details, err := s.ListOverdue(context.Background(), now)
	if err != nil {
		t.Fatalf("ListOverdue() error = %v", err)
	}
	if !gotNow.Equal(now) {
		t.Errorf("evaluation time = %v, want %v", gotNow, now)
	}
	if len(details) != 1 {
		t.Fatalf("len(details) = %d, want 1", len(details))
	}
	if !details[0].IsOverdue(now) {
		t.Error("returned record should satisfy the overdue predicate")
	}
}

// ListByBorrowerが未登録の利用者に対してBORROWER_NOT_FOUNDを返すことを検証
func TestService_ListByBorrower_BorrowerNotFound(t *testing.T) {
	borrowerRepo := &mockBorrowerRepo{
		existsByIDFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}

	s := newTestService(&mockLoanRepo{}, &mockBookRepo{}, borrowerRepo, time.Now())

	_, err := s.ListByBorrower(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeBorrowerNotFound)

	_, err = s.ListActiveByBorrower(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeBorrowerNotFound)
}

// ListByBookが未登録の蔵書に対してBOOK_NOT_FOUNDを返すことを検証
func TestService_ListByBook_BookNotFound(t *testing.T) {
	bookRepo := &mockBookRepo{
		existsByIDFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}

	s := newTestService(&mockLoanRepo{}, bookRepo, &mockBorrowerRepo{}, time.Now())

	_, err := s.ListByBook(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
}

// --- 付帯情報テスト ---

// 参照先の利用者・蔵書が削除済みでも貸出記録本体は取得でき、
// 付帯情報が"Unknown"に退避することを検証
func TestService_Enrichment_DegradesToUnknown(t *testing.T) {
	loanRepo := &mockLoanRepo{
		findAllFn: func(ctx context.Context) ([]*model.LoanRecord, error) {
			return []*model.LoanRecord{
				{ID: "record-1", BorrowerID: "gone-borrower", BookID: "gone-book"},
			}, nil
		},
	}
	bookRepo := &mockBookRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Book, error) {
			return nil, nil
		},
	}
	borrowerRepo := &mockBorrowerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Borrower, error) {
			return nil, nil
		},
	}

	s := newTestService(loanRepo, bookRepo, borrowerRepo, time.Now())

	details, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("len(details) = %d, want 1", len(details))
	}

	d := details[0]
	if d.ID != "record-1" {
		t.Errorf("ID = %q, want %q", d.ID, "record-1")
	}
	for name, got := range map[string]string{
		"BorrowerName":  d.BorrowerName,
		"BorrowerEmail": d.BorrowerEmail,
		"BookTitle":     d.BookTitle,
		"BookAuthor":    d.BookAuthor,
		"BookISBN":      d.BookISBN,
	} {
		if got != unknownPlaceholder {
			t.Errorf("%s = %q, want %q", name, got, unknownPlaceholder)
		}
	}
}

// 付帯情報の取得エラーが操作全体を失敗させないことを検証
func TestService_Enrichment_LookupErrorDoesNotFailRead(t *testing.T) {
	loanRepo := &mockLoanRepo{
		findAllOpenFn: func(ctx context.Context) ([]*model.LoanRecord, error) {
			return []*model.LoanRecord{
				{ID: "record-1", BorrowerID: "borrower-1", BookID: "book-1"},
			}, nil
		},
	}
	bookRepo := &mockBookRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Book, error) {
			return nil, errors.New("lookup failed")
		},
	}
	borrowerRepo := &mockBorrowerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Borrower, error) {
			return nil, errors.New("lookup failed")
		},
	}

	s := newTestService(loanRepo, bookRepo, borrowerRepo, time.Now())

	details, err := s.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("len(details) = %d, want 1", len(details))
	}
	if details[0].BookTitle != unknownPlaceholder {
		t.Errorf("BookTitle = %q, want %q", details[0].BookTitle, unknownPlaceholder)
	}
}
