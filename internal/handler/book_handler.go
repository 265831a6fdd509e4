package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/book"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// BookServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	Create(ctx context.Context, isbn, title, author string) (*book.BookInfo, error)
	Get(ctx context.Context, id string) (*book.BookInfo, error)
	List(ctx context.Context) ([]*book.BookInfo, error)
	ListAvailable(ctx context.Context) ([]*book.BookInfo, error)
	SearchByTitle(ctx context.Context, title string) ([]*book.BookInfo, error)
	SearchByAuthor(ctx context.Context, author string) ([]*book.BookInfo, error)
	Update(ctx context.Context, id, isbn, title, author string) (*book.BookInfo, error)
	Delete(ctx context.Context, id string) error
}

// BookHandler は蔵書管理のHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{
		service: service,
	}
}

// bookRequest は蔵書登録・更新リクエストのボディ。
type bookRequest struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// bookResponse は蔵書のAPIレスポンス。
type bookResponse struct {
	ID        string    `json:"id"`
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// toBookResponse はBookInfoをAPIレスポンスに変換する。
func toBookResponse(info *book.BookInfo) bookResponse {
	return bookResponse{
		ID:        info.ID,
		ISBN:      info.ISBN,
		Title:     info.Title,
		Author:    info.Author,
		Available: info.Available,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
}

// toBookResponses はBookInfoのスライスをAPIレスポンスに変換する。
func toBookResponses(infos []*book.BookInfo) []bookResponse {
	responses := make([]bookResponse, len(infos))
	for i, info := range infos {
		responses[i] = toBookResponse(info)
	}
	return responses
}

// Create は蔵書を登録する。
// POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}

	info, err := h.service.Create(r.Context(), req.ISBN, req.Title, req.Author)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookResponse(info))
}

// Get は指定IDの蔵書を取得する。
// GET /api/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(info))
}

// List は蔵書一覧を取得する。
// クエリパラメータtitle/authorが指定された場合は部分一致検索、
// available=trueの場合は貸出可能な蔵書のみを返す。
// GET /api/books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		infos []*book.BookInfo
		err   error
	)

	query := r.URL.Query()
	switch {
	case query.Get("title") != "":
		infos, err = h.service.SearchByTitle(r.Context(), query.Get("title"))
	case query.Get("author") != "":
		infos, err = h.service.SearchByAuthor(r.Context(), query.Get("author"))
	case query.Get("available") == "true":
		infos, err = h.service.ListAvailable(r.Context())
	default:
		infos, err = h.service.List(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponses(infos))
}

// Update は蔵書情報を更新する。
// PUT /api/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}

	info, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.ISBN, req.Title, req.Author)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(info))
}

// Delete は蔵書を削除する。
// DELETE /api/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBookRequest は蔵書リクエストのボディを解析して検証する。
func decodeBookRequest(w http.ResponseWriter, r *http.Request) (bookRequest, bool) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return req, false
	}
	if req.ISBN == "" || req.Title == "" || req.Author == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("isbn、title、authorは必須です"))
		return req, false
	}
	return req, true
}
