package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_bookshop/internal/catalog"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/fjod/go_bookshop/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const cartPath = "/api/v1/cart"

var validate = validator.New(validator.WithRequiredStructEnabled())

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads the body into dst and runs struct validation on it.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// handleServiceError converts service errors into HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, l *zap.Logger, err error) {
	var status int
	var code, message string

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		http.Redirect(w, r, cartPath, http.StatusSeeOther)
		return
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidProfile):
		status, code, message = http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, service.ErrItemNotFound):
		status, code, message = http.StatusNotFound, "item_not_found", "cart item not found"
	case errors.Is(err, service.ErrOrderNotFound):
		status, code, message = http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, catalog.ErrBookNotFound):
		status, code, message = http.StatusNotFound, "book_not_found", "book not found"
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		status, code, message = http.StatusPaymentRequired, "payment_not_confirmed", "payment was not confirmed"
	case errors.Is(err, service.ErrDuplicateCheckout):
		status, code, message = http.StatusConflict, "duplicate_checkout", "checkout already completed"
	case errors.Is(err, service.ErrIllegalTransition):
		status, code, message = http.StatusConflict, "illegal_transition", "checkout is in a state that cannot be completed"
	case errors.Is(err, service.ErrPaymentProcessor):
		status, code, message = http.StatusBadGateway, "payment_processor_error", "payment processor unavailable"
	case errors.Is(err, service.ErrCatalogUnavailable), errors.Is(err, catalog.ErrUnavailable):
		status, code, message = http.StatusBadGateway, "catalog_unavailable", "book catalog unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusGatewayTimeout, "timeout", "request timed out"
	case errors.Is(err, service.ErrCheckoutFailed):
		status, code, message = http.StatusInternalServerError, "checkout_failed", "checkout could not be completed"
	default:
		status, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context(), l).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	respondError(w, status, code, message)
}
