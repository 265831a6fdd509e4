// Package borrower は利用者管理のドメインロジックを提供する。
package borrower

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// Service は利用者管理のサービス層。
type Service struct {
	borrowerRepo repository.BorrowerRepository
	nowFn        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(borrowerRepo repository.BorrowerRepository) *Service {
	return &Service{
		borrowerRepo: borrowerRepo,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// Create は利用者を登録する。
// emailの重複は事前チェックとDB一意制約の両方で検出し、
// どちらで検出してもEMAIL_ALREADY_EXISTSを返す。
func (s *Service) Create(ctx context.Context, name, email string) (*model.Borrower, error) {
	if !isValidEmail(email) {
		return nil, model.NewInvalidRequestError("メールアドレスの形式が正しくありません")
	}

	existing, err := s.borrowerRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailAlreadyExistsError(email)
	}

	now := s.nowFn()
	borrower := &model.Borrower{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.borrowerRepo.Create(ctx, borrower); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// 事前チェック後に同時実行の登録が勝った場合
			return nil, model.NewEmailAlreadyExistsError(email)
		}
		return nil, fmt.Errorf("利用者の登録に失敗しました: %w", err)
	}

	slog.Info("borrower created", slog.String("borrower_id", borrower.ID))
	return borrower, nil
}

// Get は指定IDの利用者を取得する。
// 利用者が存在しない場合はBORROWER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Borrower, error) {
	borrower, err := s.borrowerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("利用者の取得に失敗しました: %w", err)
	}
	if borrower == nil {
		return nil, model.NewBorrowerNotFoundError(id)
	}
	return borrower, nil
}

// GetByEmail は指定メールアドレスの利用者を取得する。
func (s *Service) GetByEmail(ctx context.Context, email string) (*model.Borrower, error) {
	borrower, err := s.borrowerRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによる利用者の検索に失敗しました: %w", err)
	}
	if borrower == nil {
		return nil, model.NewBorrowerNotFoundError(email)
	}
	return borrower, nil
}

// List は全利用者を返す。
func (s *Service) List(ctx context.Context) ([]*model.Borrower, error) {
	borrowers, err := s.borrowerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("利用者一覧の取得に失敗しました: %w", err)
	}
	return borrowers, nil
}

// Update は利用者情報を更新する。
func (s *Service) Update(ctx context.Context, id, name, email string) (*model.Borrower, error) {
	if !isValidEmail(email) {
		return nil, model.NewInvalidRequestError("メールアドレスの形式が正しくありません")
	}

	borrower, err := s.borrowerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("利用者の取得に失敗しました: %w", err)
	}
	if borrower == nil {
		return nil, model.NewBorrowerNotFoundError(id)
	}

	borrower.Name = name
	borrower.Email = email

	if err := s.borrowerRepo.Update(ctx, borrower); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailAlreadyExistsError(email)
		}
		return nil, fmt.Errorf("利用者の更新に失敗しました: %w", err)
	}

	return borrower, nil
}

// Delete は利用者を削除する。関連する貸出記録はストレージ層でCASCADE削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	exists, err := s.borrowerRepo.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("利用者の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewBorrowerNotFoundError(id)
	}

	if err := s.borrowerRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("利用者の削除に失敗しました: %w", err)
	}

	slog.Info("borrower deleted", slog.String("borrower_id", id))
	return nil
}

// isValidEmail はメールアドレスの基本形式を検証する。
// 厳密なRFC準拠ではなく、@と非空のローカル部・ドメイン部の存在を確認する。
func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
