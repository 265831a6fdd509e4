// Package model はドメインモデルを定義する。
package model

import "time"

// LoanRecord は1冊の本の貸出記録を表す。
// ReturnedAtがnilの間は貸出中（オープン）、設定された時点で返却済み（クローズ）となる。
// クローズされた記録は終端状態であり、再貸出は新しいLoanRecordとして作成される。
type LoanRecord struct {
	ID         string
	BorrowerID string
	BookID     string
	BorrowedAt time.Time
	DueDate    time.Time
	ReturnedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen は貸出が未返却かどうかを返す。
func (r *LoanRecord) IsOpen() bool {
	return r.ReturnedAt == nil
}

// IsOverdue は評価時刻nowに対して貸出が延滞中かどうかを返す。
// 返却済みの記録は延滞とみなさない。延滞は導出値であり、保存しない。
func (r *LoanRecord) IsOverdue(now time.Time) bool {
	return r.ReturnedAt == nil && r.DueDate.Before(now)
}
