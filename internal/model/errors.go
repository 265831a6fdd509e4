// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: loan, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBorrowerNotFound     = "BORROWER_NOT_FOUND"
	ErrCodeBookNotFound         = "BOOK_NOT_FOUND"
	ErrCodeBookAlreadyBorrowed  = "BOOK_ALREADY_BORROWED"
	ErrCodeBookNotBorrowed      = "BOOK_NOT_BORROWED"
	ErrCodeUnauthorizedBorrower = "UNAUTHORIZED_BORROWER"
	ErrCodeEmailAlreadyExists   = "EMAIL_ALREADY_EXISTS"
	ErrCodeInvalidISBN          = "INVALID_ISBN"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// NewBorrowerNotFoundError は利用者未登録エラーを生成する。
func NewBorrowerNotFoundError(borrowerID string) *APIError {
	return &APIError{
		Code:     ErrCodeBorrowerNotFound,
		Message:  fmt.Sprintf("指定された利用者が見つかりません: %s", borrowerID),
		Category: "loan",
		Action:   "利用者IDを確認してください。",
	}
}

// NewBookNotFoundError は蔵書未登録エラーを生成する。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された蔵書が見つかりません: %s", bookID),
		Category: "loan",
		Action:   "蔵書IDを確認してください。",
	}
}

// NewBookAlreadyBorrowedError は貸出中の本への貸出要求エラーを生成する。
// 楽観チェックとストレージ制約違反のどちらで検出しても同一のエラーを返す。
func NewBookAlreadyBorrowedError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookAlreadyBorrowed,
		Message:  fmt.Sprintf("この蔵書は現在貸出中です: %s", bookID),
		Category: "loan",
		Action:   "返却されるまでお待ちください。",
	}
}

// NewBookNotBorrowedError は未貸出の本への返却要求エラーを生成する。
func NewBookNotBorrowedError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotBorrowed,
		Message:  fmt.Sprintf("この蔵書は現在貸出されていません: %s", bookID),
		Category: "loan",
		Action:   "蔵書IDと貸出状況を確認してください。",
	}
}

// NewUnauthorizedBorrowerError は貸出者本人以外による返却要求エラーを生成する。
func NewUnauthorizedBorrowerError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorizedBorrower,
		Message:  "この蔵書は指定された利用者には貸出されていません。",
		Category: "loan",
		Action:   "貸出を行った利用者のIDで返却してください。",
	}
}

// NewEmailAlreadyExistsError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyExists,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、既存の利用者情報を確認してください。",
	}
}

// NewInvalidISBNError はISBN形式エラーを生成する。
func NewInvalidISBNError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidISBN,
		Message:  fmt.Sprintf("無効なISBNです: %s", isbn),
		Category: "validation",
		Action:   "ISBN-10またはISBN-13形式で入力してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
