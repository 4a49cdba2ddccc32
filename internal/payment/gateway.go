// Package payment creates and verifies hosted checkout sessions with Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// SessionIDPlaceholder is substituted by Stripe with the real session id in the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

var ErrSessionNotFound = errors.New("payment session not found")

type LineItem struct {
	Name       string
	UnitAmount int64 // minor currency units
	Quantity   int64
}

type CreateSessionRequest struct {
	UserID     string
	Email      string
	Currency   string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID          string
	URL         string
	AmountTotal int64
}

// Confirmation is the processor's view of a session at verification time.
type Confirmation struct {
	SessionID         string
	ClientReferenceID string
	Paid              bool
	Expired           bool
	AmountTotal       int64
	Currency          string
}

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// NewStripeGatewayWithBackend points the gateway at a custom API backend.
func NewStripeGatewayWithBackend(secretKey string, backend stripe.Backend) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Currency:          stripe.String(req.Currency),
		LineItems:         lineItems,
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL, AmountTotal: s.AmountTotal}, nil
}

func (g *StripeGateway) VerifySession(ctx context.Context, sessionID string) (*Confirmation, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	return &Confirmation{
		SessionID:         s.ID,
		ClientReferenceID: s.ClientReferenceID,
		Paid:              s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Expired:           s.Status == stripe.CheckoutSessionStatusExpired,
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
	}, nil
}
