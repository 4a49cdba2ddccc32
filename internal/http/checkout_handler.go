package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"go.uber.org/zap"
)

type CheckoutProcessor interface {
	StartCheckout(ctx context.Context, userID, email string) (*service.CheckoutStart, error)
	CompleteCheckout(ctx context.Context, userID, sessionID string) (*domain.Order, error)
	CompleteReturnedSession(ctx context.Context, sessionID string) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutProcessor
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(checkout CheckoutProcessor, timeout time.Duration, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
		logger:   l,
	}
}

// StartCheckout opens a payment session and redirects the client to the processor.
// The URL is also returned in the body for clients that do not follow redirects.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	start, err := h.checkout.StartCheckout(ctx, user.ID, user.Email)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", start.CheckoutURL)
	respondJSON(w, http.StatusSeeOther, start)
}

// CheckoutSuccess records the order for a paid session named by ?session_id=.
func (h *CheckoutHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session_id is required")
		return
	}

	order, err := h.checkout.CompleteCheckout(ctx, user.ID, sessionID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// CheckoutReturn is the processor's success redirect target. The browser arriving here
// carries no bearer token, so the user is taken from the stored session instead.
func (h *CheckoutHandler) CheckoutReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session_id is required")
		return
	}

	order, err := h.checkout.CompleteReturnedSession(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// CheckoutCancel is the processor's cancel redirect target. The cart is left as it was.
func (h *CheckoutHandler) CheckoutCancel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
