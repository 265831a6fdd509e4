package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// BorrowerServiceInterface は利用者ハンドラーが必要とするサービスインターフェース。
type BorrowerServiceInterface interface {
	Create(ctx context.Context, name, email string) (*model.Borrower, error)
	Get(ctx context.Context, id string) (*model.Borrower, error)
	GetByEmail(ctx context.Context, email string) (*model.Borrower, error)
	List(ctx context.Context) ([]*model.Borrower, error)
	Update(ctx context.Context, id, name, email string) (*model.Borrower, error)
	Delete(ctx context.Context, id string) error
}

// BorrowerHandler は利用者管理のHTTPハンドラー。
type BorrowerHandler struct {
	service BorrowerServiceInterface
}

// NewBorrowerHandler はBorrowerHandlerを生成する。
func NewBorrowerHandler(service BorrowerServiceInterface) *BorrowerHandler {
	return &BorrowerHandler{
		service: service,
	}
}

// borrowerRequest は利用者登録・更新リクエストのボディ。
type borrowerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// borrowerResponse は利用者のAPIレスポンス。
type borrowerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// toBorrowerResponse はBorrowerをAPIレスポンスに変換する。
func toBorrowerResponse(b *model.Borrower) borrowerResponse {
	return borrowerResponse{
		ID:        b.ID,
		Name:      b.Name,
		Email:     b.Email,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// Create は利用者を登録する。
// POST /api/borrowers
func (h *BorrowerHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBorrowerRequest(w, r)
	if !ok {
		return
	}

	borrower, err := h.service.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBorrowerResponse(borrower))
}

// Get は指定IDの利用者を取得する。
// GET /api/borrowers/{id}
func (h *BorrowerHandler) Get(w http.ResponseWriter, r *http.Request) {
	borrower, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBorrowerResponse(borrower))
}

// List は利用者一覧を取得する。
// クエリパラメータemailが指定された場合は完全一致で1件を返す。
// GET /api/borrowers
func (h *BorrowerHandler) List(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		borrower, err := h.service.GetByEmail(r.Context(), email)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBorrowerResponse(borrower))
		return
	}

	borrowers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]borrowerResponse, len(borrowers))
	for i, b := range borrowers {
		responses[i] = toBorrowerResponse(b)
	}
	writeJSON(w, http.StatusOK, responses)
}

// Update は利用者情報を更新する。
// PUT /api/borrowers/{id}
func (h *BorrowerHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBorrowerRequest(w, r)
	if !ok {
		return
	}

	borrower, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBorrowerResponse(borrower))
}

// Delete は利用者を削除する。
// DELETE /api/borrowers/{id}
func (h *BorrowerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBorrowerRequest は利用者リクエストのボディを解析して検証する。
func decodeBorrowerRequest(w http.ResponseWriter, r *http.Request) (borrowerRequest, bool) {
	var req borrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return req, false
	}
	if req.Name == "" || req.Email == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("nameとemailは必須です"))
		return req, false
	}
	return req, true
}
