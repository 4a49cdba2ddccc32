package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCheckoutHandler(m *mockCheckout) *CheckoutHandler {
	return NewCheckoutHandler(m, 5*time.Second, zap.NewNop())
}

func TestStartCheckout_RedirectsToProcessor(t *testing.T) {
	m := &mockCheckout{start: &service.CheckoutStart{
		SessionID:   "cs_test_1",
		CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}}
	handler := newTestCheckoutHandler(m)

	rec := httptest.NewRecorder()
	req := withTestUser(httptest.NewRequest(http.MethodPost, "/checkout", nil), "u1")

	handler.StartCheckout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", rec.Header().Get("Location"))
	assert.Equal(t, "u1@example.com", m.lastEmail)

	var start service.CheckoutStart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&start))
	assert.Equal(t, "cs_test_1", start.SessionID)
}

func TestStartCheckout_EmptyCartRedirectsToCart(t *testing.T) {
	handler := newTestCheckoutHandler(&mockCheckout{err: service.ErrEmptyCart})

	rec := httptest.NewRecorder()
	req := withTestUser(httptest.NewRequest(http.MethodPost, "/checkout", nil), "u1")

	handler.StartCheckout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, cartPath, rec.Header().Get("Location"))
}

func TestStartCheckout_ProcessorFailure(t *testing.T) {
	handler := newTestCheckoutHandler(&mockCheckout{err: fmt.Errorf("%w: %w", service.ErrPaymentProcessor, errBoom)})

	rec := httptest.NewRecorder()
	req := withTestUser(httptest.NewRequest(http.MethodPost, "/checkout", nil), "u1")

	handler.StartCheckout(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestCheckoutSuccess_RecordsOrder(t *testing.T) {
	order := &domain.Order{
		ID:         uuid.New(),
		UserID:     "u1",
		CheckoutID: "cs_test_1",
		TotalPrice: decimal.RequireFromString("250.00"),
		Currency:   "inr",
	}
	m := &mockCheckout{order: order}
	handler := newTestCheckoutHandler(m)

	rec := httptest.NewRecorder()
	req := withTestUser(httptest.NewRequest(http.MethodGet, "/checkout/success?session_id=cs_test_1", nil), "u1")

	handler.CheckoutSuccess(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cs_test_1", m.lastSession)
	var got domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, got.TotalPrice.Equal(order.TotalPrice))
}

func TestCheckoutSuccess_MissingSessionID(t *testing.T) {
	m := &mockCheckout{}
	handler := newTestCheckoutHandler(m)

	rec := httptest.NewRecorder()
	req := withTestUser(httptest.NewRequest(http.MethodGet, "/checkout/success", nil), "u1")

	handler.CheckoutSuccess(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, m.lastSession)
}

func TestCheckoutSuccess_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not paid", fmt.Errorf("%w: session is not paid", service.ErrPaymentNotConfirmed), http.StatusPaymentRequired, "payment_not_confirmed"},
		{"duplicate", service.ErrDuplicateCheckout, http.StatusConflict, "duplicate_checkout"},
		{"processor down", fmt.Errorf("%w: %w", service.ErrPaymentProcessor, errBoom), http.StatusBadGateway, "payment_processor_error"},
		{"integrity", fmt.Errorf("%w: %w", service.ErrCheckoutFailed, errBoom), http.StatusInternalServerError, "checkout_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestCheckoutHandler(&mockCheckout{err: tt.err})

			rec := httptest.NewRecorder()
			req := withTestUser(httptest.NewRequest(http.MethodGet, "/checkout/success?session_id=cs_1", nil), "u1")

			handler.CheckoutSuccess(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Error, "boom")
		})
	}
}

func TestCheckoutReturn_WithoutUser(t *testing.T) {
	m := &mockCheckout{order: &domain.Order{ID: uuid.New(), UserID: "u1", CheckoutID: "cs_test_1"}}
	handler := newTestCheckoutHandler(m)

	rec := httptest.NewRecorder()
	handler.CheckoutReturn(rec, httptest.NewRequest(http.MethodGet, "/checkout/return?session_id=cs_test_1", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cs_test_1", m.lastSession)
	assert.Equal(t, 1, m.returnVisits)
}

func TestCheckoutReturn_MissingSessionID(t *testing.T) {
	m := &mockCheckout{}
	handler := newTestCheckoutHandler(m)

	rec := httptest.NewRecorder()
	handler.CheckoutReturn(rec, httptest.NewRequest(http.MethodGet, "/checkout/return", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, m.returnVisits)
}
