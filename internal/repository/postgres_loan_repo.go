package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/lendman/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反を示すSQLSTATE。
const uniqueViolation = "23505"

// activeLoanIndexName はオープンな貸出の一意性を保証する部分一意インデックス名。
const activeLoanIndexName = "unique_active_book_loan"

const loanColumns = `id, borrower_id, book_id, borrowed_at, due_date, returned_at, created_at, updated_at`

// PostgresLoanRepo はPostgreSQLを使用した貸出記録リポジトリ。
type PostgresLoanRepo struct {
	db *sql.DB
}

// NewPostgresLoanRepo はPostgresLoanRepoを生成する。
func NewPostgresLoanRepo(db *sql.DB) *PostgresLoanRepo {
	return &PostgresLoanRepo{db: db}
}

// Insert は貸出記録を制約チェック付きで追加する。
// 同一蔵書のオープンな貸出が既に存在する場合、部分一意インデックスが
// 挿入を原子的に拒否し、ErrActiveLoanExistsを返す。
// 事前読み取りとの間に他の書き込みが割り込んでも正しさは保たれる。
func (r *PostgresLoanRepo) Insert(ctx context.Context, record *model.LoanRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (id, borrower_id, book_id, borrowed_at, due_date, returned_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.BorrowerID, record.BookID,
		record.BorrowedAt, record.DueDate, record.ReturnedAt,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == activeLoanIndexName {
			return ErrActiveLoanExists
		}
		return fmt.Errorf("貸出記録の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は貸出記録の変更を永続化する。returned_atの設定にのみ使用される。
func (r *PostgresLoanRepo) Update(ctx context.Context, record *model.LoanRecord) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE loans SET returned_at = $2, updated_at = NOW() WHERE id = $1`,
		record.ID, record.ReturnedAt,
	)
	if err != nil {
		return fmt.Errorf("貸出記録の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("貸出記録が見つかりません: %s", record.ID)
	}
	return nil
}

// FindOpenByBookID は指定蔵書のオープンな貸出記録を取得する。存在しない場合はnilを返す。
func (r *PostgresLoanRepo) FindOpenByBookID(ctx context.Context, bookID string) (*model.LoanRecord, error) {
	record := &model.LoanRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE book_id = $1 AND returned_at IS NULL`,
		bookID,
	).Scan(
		&record.ID, &record.BorrowerID, &record.BookID,
		&record.BorrowedAt, &record.DueDate, &record.ReturnedAt,
		&record.CreatedAt, &record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("オープンな貸出記録の取得に失敗しました: %w", err)
	}

	return record, nil
}

// FindAll は全貸出記録をborrowed_at降順で返す。
func (r *PostgresLoanRepo) FindAll(ctx context.Context) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans ORDER BY borrowed_at DESC`)
}

// FindAllOpen はオープンな貸出記録をすべて返す。
func (r *PostgresLoanRepo) FindAllOpen(ctx context.Context) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE returned_at IS NULL ORDER BY borrowed_at DESC`)
}

// FindByBorrowerID は指定利用者の全貸出記録を返す。
func (r *PostgresLoanRepo) FindByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id = $1 ORDER BY borrowed_at DESC`,
		borrowerID)
}

// FindOpenByBorrowerID は指定利用者のオープンな貸出記録を返す。
func (r *PostgresLoanRepo) FindOpenByBorrowerID(ctx context.Context, borrowerID string) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id = $1 AND returned_at IS NULL ORDER BY borrowed_at DESC`,
		borrowerID)
}

// FindByBookID は指定蔵書の全貸出記録を返す。
func (r *PostgresLoanRepo) FindByBookID(ctx context.Context, bookID string) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE book_id = $1 ORDER BY borrowed_at DESC`,
		bookID)
}

// FindOverdue はreturned_at IS NULLかつdue_date < nowの貸出記録を返す。
// 延滞は保存されず、この述語でのみ導出される。
func (r *PostgresLoanRepo) FindOverdue(ctx context.Context, now time.Time) ([]*model.LoanRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE returned_at IS NULL AND due_date < $1 ORDER BY due_date ASC`,
		now)
}

// CountOpen はオープンな貸出記録の件数を返す。
func (r *PostgresLoanRepo) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE returned_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("オープンな貸出件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountOverdue は評価時刻nowに対する延滞中の貸出記録の件数を返す。
func (r *PostgresLoanRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE returned_at IS NULL AND due_date < $1`,
		now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("延滞中の貸出件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// queryRecords は貸出記録の複数行クエリを実行して結果を読み取る。
func (r *PostgresLoanRepo) queryRecords(ctx context.Context, query string, args ...any) ([]*model.LoanRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("貸出記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []*model.LoanRecord
	for rows.Next() {
		record := &model.LoanRecord{}
		if err := rows.Scan(
			&record.ID, &record.BorrowerID, &record.BookID,
			&record.BorrowedAt, &record.DueDate, &record.ReturnedAt,
			&record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("貸出記録行の読み取りに失敗しました: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("貸出記録一覧の走査に失敗しました: %w", err)
	}
	return records, nil
}

// compile-time interface check
var _ LoanRepository = (*PostgresLoanRepo)(nil)
