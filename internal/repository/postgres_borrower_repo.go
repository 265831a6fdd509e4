package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/lendman/internal/model"
)

// borrowerEmailConstraintName は利用者emailの一意制約名。
const borrowerEmailConstraintName = "unique_borrower_email"

const borrowerColumns = `id, name, email, created_at, updated_at`

// PostgresBorrowerRepo はPostgreSQLを使用した利用者リポジトリ。
type PostgresBorrowerRepo struct {
	db *sql.DB
}

// NewPostgresBorrowerRepo はPostgresBorrowerRepoを生成する。
func NewPostgresBorrowerRepo(db *sql.DB) *PostgresBorrowerRepo {
	return &PostgresBorrowerRepo{db: db}
}

// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
func (r *PostgresBorrowerRepo) FindByID(ctx context.Context, id string) (*model.Borrower, error) {
	borrower := &model.Borrower{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+borrowerColumns+` FROM borrowers WHERE id = $1`,
		id,
	).Scan(&borrower.ID, &borrower.Name, &borrower.Email, &borrower.CreatedAt, &borrower.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("利用者の取得に失敗しました: %w", err)
	}

	return borrower, nil
}

// FindByEmail は指定メールアドレスの利用者を取得する。見つからない場合はnilを返す。
func (r *PostgresBorrowerRepo) FindByEmail(ctx context.Context, email string) (*model.Borrower, error) {
	borrower := &model.Borrower{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+borrowerColumns+` FROM borrowers WHERE email = $1`,
		email,
	).Scan(&borrower.ID, &borrower.Name, &borrower.Email, &borrower.CreatedAt, &borrower.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによる利用者の検索に失敗しました: %w", err)
	}

	return borrower, nil
}

// ExistsByID は指定IDの利用者が存在するかどうかを返す。
func (r *PostgresBorrowerRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrowers WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("利用者の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は利用者を作成する。
// email一意制約の違反はErrDuplicateEmailに変換する。
func (r *PostgresBorrowerRepo) Create(ctx context.Context, borrower *model.Borrower) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO borrowers (id, name, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		borrower.ID, borrower.Name, borrower.Email, borrower.CreatedAt, borrower.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == borrowerEmailConstraintName {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("利用者の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は利用者情報を更新する。
func (r *PostgresBorrowerRepo) Update(ctx context.Context, borrower *model.Borrower) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE borrowers SET name = $2, email = $3, updated_at = NOW() WHERE id = $1`,
		borrower.ID, borrower.Name, borrower.Email,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == borrowerEmailConstraintName {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("利用者の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("利用者が見つかりません: %s", borrower.ID)
	}
	return nil
}

// ListAll は全利用者を名前昇順で返す。
func (r *PostgresBorrowerRepo) ListAll(ctx context.Context) ([]*model.Borrower, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+borrowerColumns+` FROM borrowers ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("利用者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var borrowers []*model.Borrower
	for rows.Next() {
		borrower := &model.Borrower{}
		if err := rows.Scan(&borrower.ID, &borrower.Name, &borrower.Email, &borrower.CreatedAt, &borrower.UpdatedAt); err != nil {
			return nil, fmt.Errorf("利用者行の読み取りに失敗しました: %w", err)
		}
		borrowers = append(borrowers, borrower)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("利用者一覧の走査に失敗しました: %w", err)
	}
	return borrowers, nil
}

// DeleteByID は指定IDの利用者を削除する。関連する貸出記録はCASCADE削除される。
func (r *PostgresBorrowerRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM borrowers WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("利用者の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("利用者が見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ BorrowerRepository = (*PostgresBorrowerRepo)(nil)
