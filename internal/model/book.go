// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書を表す。
// 貸出可否は保存せず、オープンな貸出記録の有無から都度導出する。
type Book struct {
	ID        string
	ISBN      string
	Title     string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Borrower は登録済みの利用者を表す。
// Emailはシステム全体で一意。
type Borrower struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
