package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendman/internal/model"
)

const bookColumns = `id, isbn, title, author, created_at, updated_at`

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`,
		id,
	).Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.CreatedAt, &book.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}

	return book, nil
}

// ExistsByID は指定IDの蔵書が存在するかどうかを返す。
func (r *PostgresBookRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("蔵書の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は蔵書を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, isbn, title, author, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		book.ID, book.ISBN, book.Title, book.Author, book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("蔵書の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は蔵書情報を更新する。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET isbn = $2, title = $3, author = $4, updated_at = NOW() WHERE id = $1`,
		book.ID, book.ISBN, book.Title, book.Author,
	)
	if err != nil {
		return fmt.Errorf("蔵書の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("蔵書が見つかりません: %s", book.ID)
	}
	return nil
}

// ListAll は全蔵書をタイトル昇順で返す。
func (r *PostgresBookRepo) ListAll(ctx context.Context) ([]*model.Book, error) {
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title ASC`)
}

// ListAvailable はオープンな貸出が存在しない蔵書を返す。
// 貸出可否は保存された状態ではなく、loansのオープン記録の不在から導出する。
func (r *PostgresBookRepo) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b
		 WHERE NOT EXISTS (
		     SELECT 1 FROM loans l WHERE l.book_id = b.id AND l.returned_at IS NULL
		 )
		 ORDER BY title ASC`)
}

// SearchByTitle はタイトルの部分一致（大文字小文字無視）で蔵書を検索する。
func (r *PostgresBookRepo) SearchByTitle(ctx context.Context, title string) ([]*model.Book, error) {
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title ILIKE '%' || $1 || '%' ORDER BY title ASC`,
		title)
}

// SearchByAuthor は著者名の部分一致（大文字小文字無視）で蔵書を検索する。
func (r *PostgresBookRepo) SearchByAuthor(ctx context.Context, author string) ([]*model.Book, error) {
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE author ILIKE '%' || $1 || '%' ORDER BY title ASC`,
		author)
}

// DeleteByID は指定IDの蔵書を削除する。関連する貸出記録はCASCADE削除される。
func (r *PostgresBookRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("蔵書の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("蔵書が見つかりません: %s", id)
	}
	return nil
}

// queryBooks は蔵書の複数行クエリを実行して結果を読み取る。
func (r *PostgresBookRepo) queryBooks(ctx context.Context, query string, args ...any) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("蔵書一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		if err := rows.Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, fmt.Errorf("蔵書行の読み取りに失敗しました: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("蔵書一覧の走査に失敗しました: %w", err)
	}
	return books, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
