// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// ErrActiveLoanExists は同一蔵書に対するオープンな貸出が既に存在するため
// Insertがストレージ制約に拒否されたことを表す。
// 部分一意インデックスunique_active_book_loanの違反から変換される。
var ErrActiveLoanExists = errors.New("an active loan already exists for this book")

// ErrDuplicateEmail は利用者のemail一意制約違反を表す。
var ErrDuplicateEmail = errors.New("a borrower with this email already exists")

// LoanRepository は貸出記録の永続化インターフェース。
// オープンな貸出の一意性はストレージ層の制約によって原子的に保証される。
type LoanRepository interface {
	// Insert は貸出記録を制約チェック付きで追加する。
	// 同一蔵書のオープンな貸出が既に存在する場合はErrActiveLoanExistsを返す。
	// この判定は挿入と同一の原子的操作で行われ、事前の読み取りには依存しない。
	Insert(ctx context.Context, record *model.LoanRecord) error

	// Update は貸出記録の変更を永続化する。returned_atの設定にのみ使用される。
	Update(ctx context.Context, record *model.LoanRecord) error

	// FindOpenByBookID は指定蔵書のオープンな貸出記録を取得する。存在しない場合はnilを返す。
	FindOpenByBookID(ctx context.Context, bookID string) (*model.LoanRecord, error)

	// FindAll は全貸出記録を返す。
	FindAll(ctx context.Context) ([]*model.LoanRecord, error)

	// FindAllOpen はオープンな貸出記録をすべて返す。
	FindAllOpen(ctx context.Context) ([]*model.LoanRecord, error)

	// FindByBorrowerID は指定利用者の全貸出記録を返す。
	FindByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error)

	// FindOpenByBorrowerID は指定利用者のオープンな貸出記録を返す。
	FindOpenByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error)

	// FindByBookID は指定蔵書の全貸出記録を返す。
	FindByBookID(ctx context.Context, bookID string) ([]*model.LoanRecord, error)

	// FindOverdue はreturned_at IS NULLかつdue_date < nowの貸出記録を返す。
	FindOverdue(ctx context.Context, now time.Time) ([]*model.LoanRecord, error)

	// CountOpen はオープンな貸出記録の件数を返す。
	CountOpen(ctx context.Context) (int, error)

	// CountOverdue は評価時刻nowに対する延滞中の貸出記録の件数を返す。
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// ExistsByID は指定IDの蔵書が存在するかどうかを返す。
	ExistsByID(ctx context.Context, id string) (bool, error)

	// Create は蔵書を作成する。
	Create(ctx context.Context, book *model.Book) error

	// Update は蔵書情報を更新する。
	Update(ctx context.Context, book *model.Book) error

	// ListAll は全蔵書を返す。
	ListAll(ctx context.Context) ([]*model.Book, error)

	// ListAvailable はオープンな貸出が存在しない蔵書を返す。
	ListAvailable(ctx context.Context) ([]*model.Book, error)

	// SearchByTitle はタイトルの部分一致（大文字小文字無視）で蔵書を検索する。
	SearchByTitle(ctx context.Context, title string) ([]*model.Book, error)

	// SearchByAuthor は著者名の部分一致（大文字小文字無視）で蔵書を検索する。
	SearchByAuthor(ctx context.Context, author string) ([]*model.Book, error)

	// DeleteByID は指定IDの蔵書を削除する。関連する貸出記録はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// BorrowerRepository は利用者データの永続化インターフェース。
type BorrowerRepository interface {
	// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Borrower, error)

	// FindByEmail は指定メールアドレスの利用者を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Borrower, error)

	// ExistsByID は指定IDの利用者が存在するかどうかを返す。
	ExistsByID(ctx context.Context, id string) (bool, error)

	// Create は利用者を作成する。emailが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, borrower *model.Borrower) error

	// Update は利用者情報を更新する。
	Update(ctx context.Context, borrower *model.Borrower) error

	// ListAll は全利用者を返す。
	ListAll(ctx context.Context) ([]*model.Borrower, error)

	// DeleteByID は指定IDの利用者を削除する。関連する貸出記録はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}
