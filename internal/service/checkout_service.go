package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/payment"
	"github.com/fjod/go_bookshop/internal/pricing"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/fjod/go_bookshop/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutConfig struct {
	Currency string
	// SuccessURL must contain payment.SessionIDPlaceholder.
	SuccessURL       string
	CancelURL        string
	ProcessorTimeout time.Duration
}

type CheckoutStart struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type CheckoutService struct {
	carts    CartRepository
	sessions CheckoutRepository
	gateway  PaymentGateway
	cart     *CartService
	cfg      CheckoutConfig
	logger   *zap.Logger
}

func NewCheckoutService(
	carts CartRepository,
	sessions CheckoutRepository,
	gateway PaymentGateway,
	cart *CartService,
	cfg CheckoutConfig,
	l *zap.Logger,
) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	if cfg.ProcessorTimeout <= 0 {
		cfg.ProcessorTimeout = 10 * time.Second
	}
	return &CheckoutService{
		carts:    carts,
		sessions: sessions,
		gateway:  gateway,
		cart:     cart,
		cfg:      cfg,
		logger:   l,
	}
}

// StartCheckout opens a payment session for the user's current cart and returns the
// processor's redirect URL. An empty cart or a processor failure leaves no local state.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID, email string) (*CheckoutStart, error) {
	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", userID))

	items, err := s.carts.ListCartItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lineItems := make([]payment.LineItem, 0, len(items))
	var amountMinor int64
	for _, item := range items {
		unit := pricing.MinorUnits(item.Price)
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.Title,
			UnitAmount: unit,
			Quantity:   int64(item.Quantity),
		})
		amountMinor += unit * int64(item.Quantity)
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessorTimeout)
	defer cancel()
	session, err := s.gateway.CreateSession(pctx, payment.CreateSessionRequest{
		UserID:     userID,
		Email:      email,
		Currency:   s.cfg.Currency,
		Items:      lineItems,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		log.Error("create payment session failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProcessor, err)
	}

	record := &domain.CheckoutSession{
		ID:          session.ID,
		UserID:      userID,
		AmountMinor: amountMinor,
		Currency:    s.cfg.Currency,
	}
	if err := s.sessions.CreateCheckoutSession(ctx, record); err != nil {
		log.Error("persist checkout session failed", zap.String("session_id", session.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int("lines", len(items)),
		zap.Int64("amount_minor", amountMinor))
	return &CheckoutStart{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// CompleteCheckout confirms the payment with the processor and then records the order
// and clears the cart as one unit. The order is built from the cart as it is now.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, userID, sessionID string) (*domain.Order, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		logger.WithContext(ctx, s.logger).Warn("checkout session belongs to another user",
			zap.String("user_id", userID), zap.String("session_id", sessionID))
		return nil, fmt.Errorf("%w: unknown session", ErrPaymentNotConfirmed)
	}
	return s.complete(ctx, session)
}

// CompleteReturnedSession handles the processor's redirect back after payment, which
// carries no user credentials. The order is recorded for the user who opened the
// session, and only if the processor reports that same user as the payer.
func (s *CheckoutService) CompleteReturnedSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, session)
}

// ReconcileStaleSession settles a session whose user never came back. A session the
// processor reports as paid gets its order recorded, an expired one is marked FAILED,
// and one still open is left alone. It returns the session's resulting status.
func (s *CheckoutService) ReconcileStaleSession(ctx context.Context, session *domain.CheckoutSession) (domain.CheckoutStatus, error) {
	confirmation, err := s.verify(ctx, session.ID)
	if err != nil {
		return session.Status, err
	}

	switch {
	case confirmation.Paid && confirmation.ClientReferenceID == session.UserID:
		if _, err := s.settle(ctx, session, confirmation); err != nil {
			return session.Status, err
		}
		return domain.CheckoutStatusCartCleared, nil
	case confirmation.Expired:
		if s.markFailed(ctx, session) {
			return domain.CheckoutStatusFailed, nil
		}
	}
	return session.Status, nil
}

func (s *CheckoutService) loadSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrPaymentNotConfirmed)
	}
	session, err := s.sessions.GetCheckoutSession(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: unknown session", ErrPaymentNotConfirmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	return session, nil
}

func (s *CheckoutService) complete(ctx context.Context, session *domain.CheckoutSession) (*domain.Order, error) {
	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", session.UserID), zap.String("session_id", session.ID))

	// FAILED is only reached once the processor reported the session expired.
	if session.Status.IsTerminal() {
		if session.Status == domain.CheckoutStatusCartCleared {
			return nil, ErrDuplicateCheckout
		}
		return nil, fmt.Errorf("%w: session is %s", ErrPaymentNotConfirmed, session.Status)
	}

	confirmation, err := s.verify(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if confirmation.ClientReferenceID != session.UserID || !confirmation.Paid {
		if confirmation.Expired {
			s.markFailed(ctx, session)
		}
		log.Warn("payment not confirmed",
			zap.Bool("paid", confirmation.Paid),
			zap.Bool("expired", confirmation.Expired))
		return nil, fmt.Errorf("%w: session is not paid", ErrPaymentNotConfirmed)
	}

	return s.settle(ctx, session, confirmation)
}

// settle records the order for a session the processor confirmed as paid.
func (s *CheckoutService) settle(ctx context.Context, session *domain.CheckoutSession, confirmation *payment.Confirmation) (*domain.Order, error) {
	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", session.UserID), zap.String("session_id", session.ID))
	userID := session.UserID

	status := session.Status
	if status == domain.CheckoutStatusSessionCreated {
		if !domain.CanTransitionTo(status, domain.CheckoutStatusConfirmed) {
			return nil, ErrIllegalTransition
		}
		if err := s.sessions.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusConfirmed); err != nil {
			log.Error("mark session confirmed failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
		status = domain.CheckoutStatusConfirmed
	}
	if !domain.CanTransitionTo(status, domain.CheckoutStatusOrderRecorded) {
		return nil, ErrIllegalTransition
	}

	order, err := s.sessions.CompleteCheckout(ctx, userID, session.ID, s.orderBuilder(userID, session, confirmation))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrEmptyCart):
		return nil, ErrEmptyCart
	case errors.Is(err, repository.ErrDuplicateCheckout):
		return nil, ErrDuplicateCheckout
	case errors.Is(err, repository.ErrSessionNotFound):
		return nil, fmt.Errorf("%w: unknown session", ErrPaymentNotConfirmed)
	case errors.Is(err, ErrPaymentNotConfirmed):
		log.Warn("paid amount does not match cart", zap.Error(err))
		return nil, err
	default:
		log.Error("record order failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	s.cart.invalidateCache(userID)
	log.Info("order recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Int("lines", len(order.Items)))
	return order, nil
}

func (s *CheckoutService) verify(ctx context.Context, sessionID string) (*payment.Confirmation, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessorTimeout)
	defer cancel()

	confirmation, err := s.gateway.VerifySession(pctx, sessionID)
	if errors.Is(err, payment.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: unknown session", ErrPaymentNotConfirmed)
	}
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("verify payment session failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProcessor, err)
	}
	return confirmation, nil
}

// orderBuilder snapshots the locked cart lines. It rejects the cart when the amount the
// processor collected differs from what the cart costs now.
func (s *CheckoutService) orderBuilder(userID string, session *domain.CheckoutSession, c *payment.Confirmation) repository.OrderBuilder {
	return func(items []domain.CartItem) (*domain.Order, error) {
		var amountMinor int64
		for _, item := range items {
			amountMinor += pricing.MinorUnits(item.Price) * int64(item.Quantity)
		}
		if c.AmountTotal > 0 && amountMinor != c.AmountTotal {
			return nil, fmt.Errorf("%w: paid %d, cart costs %d", ErrPaymentNotConfirmed, c.AmountTotal, amountMinor)
		}

		order := &domain.Order{
			ID:         uuid.New(),
			UserID:     userID,
			CheckoutID: session.ID,
			TotalPrice: pricing.Total(items),
			Currency:   session.Currency,
			Items:      make([]domain.OrderItem, 0, len(items)),
		}
		for _, item := range items {
			order.Items = append(order.Items, domain.OrderItem{
				Title:     item.Title,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Thumbnail: item.Thumbnail,
			})
		}
		return order, nil
	}
}

func (s *CheckoutService) markFailed(ctx context.Context, session *domain.CheckoutSession) bool {
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusFailed) {
		return false
	}
	if err := s.sessions.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusFailed); err != nil {
		logger.WithContext(ctx, s.logger).Warn("mark session failed error",
			zap.String("session_id", session.ID), zap.Error(err))
		return false
	}
	return true
}
