// Package handler はREST APIのHTTPハンドラーを提供する。
// ドメインエラーからHTTPステータスへのマッピングはこの層でのみ行う。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/loan"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// LoanServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	// Borrow は指定利用者への指定蔵書の貸出を行う。
	Borrow(ctx context.Context, borrowerID, bookID string) (*loan.LoanDetail, error)
	// Return は貸出中の蔵書の返却を行う。
	Return(ctx context.Context, borrowerID, bookID string) (*loan.LoanDetail, error)
	// ListAll は全貸出記録を返す。
	ListAll(ctx context.Context) ([]*loan.LoanDetail, error)
	// ListActive はオープンな貸出記録を返す。
	ListActive(ctx context.Context) ([]*loan.LoanDetail, error)
	// ListOverdue は評価時刻nowに対する延滞中の貸出記録を返す。
	ListOverdue(ctx context.Context, now time.Time) ([]*loan.LoanDetail, error)
	// ListByBorrower は指定利用者の全貸出記録を返す。
	ListByBorrower(ctx context.Context, borrowerID string) ([]*loan.LoanDetail, error)
	// ListActiveByBorrower は指定利用者のオープンな貸出記録を返す。
	ListActiveByBorrower(ctx context.Context, borrowerID string) ([]*loan.LoanDetail, error)
	// ListByBook は指定蔵書の全貸出記録を返す。
	ListByBook(ctx context.Context, bookID string) ([]*loan.LoanDetail, error)
}

// LoanHandler は貸出ライフサイクルのHTTPハンドラー。
type LoanHandler struct {
	service LoanServiceInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface) *LoanHandler {
	return &LoanHandler{
		service: service,
	}
}

// loanRequest は貸出・返却リクエストのボディ。
type loanRequest struct {
	BorrowerID string `json:"borrower_id"`
	BookID     string `json:"book_id"`
}

// loanResponse は貸出記録のAPIレスポンス。
// 利用者・蔵書の付帯情報は取得できない場合"Unknown"となる。
type loanResponse struct {
	ID            string     `json:"id"`
	BorrowerID    string     `json:"borrower_id"`
	BookID        string     `json:"book_id"`
	BorrowedAt    time.Time  `json:"borrowed_at"`
	DueDate       time.Time  `json:"due_date"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	BorrowerName  string     `json:"borrower_name"`
	BorrowerEmail string     `json:"borrower_email"`
	BookTitle     string     `json:"book_title"`
	BookAuthor    string     `json:"book_author"`
	BookISBN      string     `json:"book_isbn"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// toLoanResponse はLoanDetailをAPIレスポンスに変換する。
func toLoanResponse(detail *loan.LoanDetail) loanResponse {
	return loanResponse{
		ID:            detail.ID,
		BorrowerID:    detail.BorrowerID,
		BookID:        detail.BookID,
		BorrowedAt:    detail.BorrowedAt,
		DueDate:       detail.DueDate,
		ReturnedAt:    detail.ReturnedAt,
		BorrowerName:  detail.BorrowerName,
		BorrowerEmail: detail.BorrowerEmail,
		BookTitle:     detail.BookTitle,
		BookAuthor:    detail.BookAuthor,
		BookISBN:      detail.BookISBN,
		CreatedAt:     detail.CreatedAt,
		UpdatedAt:     detail.UpdatedAt,
	}
}

// toLoanResponses はLoanDetailのスライスをAPIレスポンスに変換する。
// 結果が空でもnullではなく[]を返す。
func toLoanResponses(details []*loan.LoanDetail) []loanResponse {
	responses := make([]loanResponse, len(details))
	for i, detail := range details {
		responses[i] = toLoanResponse(detail)
	}
	return responses
}

// Borrow は蔵書の貸出を行う。
// POST /api/loans/borrow
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Borrow(r.Context(), req.BorrowerID, req.BookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLoanResponse(detail))
}

// Return は蔵書の返却を行う。
// POST /api/loans/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Return(r.Context(), req.BorrowerID, req.BookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLoanResponse(detail))
}

// ListAll は全貸出記録を取得する。
// GET /api/loans
func (h *LoanHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// ListActive はオープンな貸出記録を取得する。
// GET /api/loans/active
func (h *LoanHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// ListOverdue は延滞中の貸出記録を取得する。評価時刻は常に現在時刻。
// GET /api/loans/overdue
func (h *LoanHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// ListByBorrower は指定利用者の全貸出記録を取得する。
// GET /api/borrowers/{id}/loans
func (h *LoanHandler) ListByBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "id")

	details, err := h.service.ListByBorrower(r.Context(), borrowerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// ListActiveByBorrower は指定利用者のオープンな貸出記録を取得する。
// GET /api/borrowers/{id}/loans/active
func (h *LoanHandler) ListActiveByBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "id")

	details, err := h.service.ListActiveByBorrower(r.Context(), borrowerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// ListByBook は指定蔵書の全貸出記録を取得する。
// GET /api/books/{id}/loans
func (h *LoanHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	details, err := h.service.ListByBook(r.Context(), bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponses(details))
}

// decodeLoanRequest は貸出・返却リクエストのボディを解析して検証する。
// 不正な場合はエラーレスポンスを書き込み、okにfalseを返す。
func decodeLoanRequest(w http.ResponseWriter, r *http.Request) (loanRequest, bool) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return req, false
	}
	if req.BorrowerID == "" || req.BookID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("borrower_idとbook_idは必須です"))
		return req, false
	}
	return req, true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラー（ストレージ障害など）は詳細をログに残し500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeBorrowerNotFound, model.ErrCodeBookNotFound:
		return http.StatusNotFound
	case model.ErrCodeBookAlreadyBorrowed, model.ErrCodeEmailAlreadyExists:
		return http.StatusConflict
	case model.ErrCodeBookNotBorrowed:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorizedBorrower:
		return http.StatusForbidden
	case model.ErrCodeInvalidISBN, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
