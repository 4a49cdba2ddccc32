package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartManager interface {
	Add(ctx context.Context, userID string, req service.AddItemRequest) (*domain.CartItem, error)
	Increment(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error)
	Decrement(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error)
	Remove(ctx context.Context, userID string, lineID int64) error
	Clear(ctx context.Context, userID string) error
	View(ctx context.Context, userID string) (*domain.CartView, error)
}

type CartHandler struct {
	cart    CartManager
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(cart CartManager, timeout time.Duration, l *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		logger:  l,
	}
}

type AddItemRequestDTO struct {
	BookID    string `json:"book_id" validate:"required,max=64"`
	Title     string `json:"title" validate:"required,max=255"`
	Thumbnail string `json:"thumbnail" validate:"omitempty,url,max=500"`
	// Price is advisory. Values that are not a usable price are replaced server side.
	Price string `json:"price" validate:"max=32"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.respondCart(ctx, w, r, user.ID, http.StatusOK)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	_, err := h.cart.Add(ctx, user.ID, service.AddItemRequest{
		BookID:    req.BookID,
		Title:     req.Title,
		Thumbnail: req.Thumbnail,
		PriceHint: req.Price,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.respondCart(ctx, w, r, user.ID, http.StatusCreated)
}

func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, func(ctx context.Context, userID string, lineID int64) error {
		_, err := h.cart.Increment(ctx, userID, lineID)
		return err
	})
}

func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, func(ctx context.Context, userID string, lineID int64) error {
		_, err := h.cart.Decrement(ctx, userID, lineID)
		return err
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, h.cart.Remove)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.cart.Clear(ctx, user.ID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.respondCart(ctx, w, r, user.ID, http.StatusOK)
}

// updateLine applies op to the line named in the path and responds with the updated cart.
func (h *CartHandler) updateLine(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string, lineID int64) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, err := strconv.ParseInt(chi.URLParam(r, "line_id"), 10, 64)
	if err != nil || lineID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be a positive integer")
		return
	}

	if err := op(ctx, user.ID, lineID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.respondCart(ctx, w, r, user.ID, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string, status int) {
	view, err := h.cart.View(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, status, view)
}
