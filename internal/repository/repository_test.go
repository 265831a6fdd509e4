package repository

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_Distinct(t *testing.T) {
	if errors.Is(ErrActiveLoanExists, ErrDuplicateEmail) {
		t.Error("ErrActiveLoanExists and ErrDuplicateEmail must be distinct sentinels")
	}
}

// ラップされたセンチネルがerrors.Isで検出できることを検証
func TestSentinelErrors_WrappedDetection(t *testing.T) {
	wrapped := fmt.Errorf("貸出記録の作成に失敗しました: %w", ErrActiveLoanExists)
	if !errors.Is(wrapped, ErrActiveLoanExists) {
		t.Error("wrapped ErrActiveLoanExists should be detected with errors.Is")
	}

	wrapped = fmt.Errorf("利用者の登録に失敗しました: %w", ErrDuplicateEmail)
	if !errors.Is(wrapped, ErrDuplicateEmail) {
		t.Error("wrapped ErrDuplicateEmail should be detected with errors.Is")
	}
}

func TestNewPostgresRepos(t *testing.T) {
	if NewPostgresLoanRepo(nil) == nil {
		t.Error("NewPostgresLoanRepo returned nil")
	}
	if NewPostgresBookRepo(nil) == nil {
		t.Error("NewPostgresBookRepo returned nil")
	}
	if NewPostgresBorrowerRepo(nil) == nil {
		t.Error("NewPostgresBorrowerRepo returned nil")
	}
}
