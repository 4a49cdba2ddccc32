package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 40
)

type BookCatalog interface {
	Search(ctx context.Context, query string, limit int) []domain.Book
	Featured(ctx context.Context) []domain.Book
	Get(ctx context.Context, bookID string) (*domain.Book, error)
}

type BookHandler struct {
	catalog BookCatalog
	timeout time.Duration
	logger  *zap.Logger
}

func NewBookHandler(catalog BookCatalog, timeout time.Duration, l *zap.Logger) *BookHandler {
	return &BookHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  l,
	}
}

type BookListResponse struct {
	Query string        `json:"query,omitempty"`
	Books []domain.Book `json:"books"`
}

// ListBooks searches the catalog by ?q=. Without a query it returns the featured selection.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSearchLimit {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 40")
			return
		}
		limit = n
	}

	var books []domain.Book
	if query == "" {
		books = h.catalog.Featured(ctx)
	} else {
		books = h.catalog.Search(ctx, query, limit)
	}
	if books == nil {
		books = []domain.Book{}
	}

	respondJSON(w, http.StatusOK, BookListResponse{Query: query, Books: books})
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	bookID := strings.TrimSpace(chi.URLParam(r, "book_id"))
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book_id is required")
		return
	}

	book, err := h.catalog.Get(ctx, bookID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}
