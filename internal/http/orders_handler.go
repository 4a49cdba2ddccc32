package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderReader interface {
	ListForUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetForUser(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderReader
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(orders OrderReader, timeout time.Duration, l *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		logger:  l,
	}
}

type OrderListResponse struct {
	Orders []*domain.Order `json:"orders"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListForUser(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, OrderListResponse{Orders: orders})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.orders.GetForUser(ctx, user.ID, orderID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
