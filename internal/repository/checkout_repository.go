package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
)

const EventTypeOrderCompleted = "order.completed"

// OrderBuilder turns the locked cart lines into the order to record.
// Returning an error aborts the checkout transaction.
type OrderBuilder func(items []domain.CartItem) (*domain.Order, error)

// OrderCompletedEvent is the outbox payload written when a checkout completes.
type OrderCompletedEvent struct {
	OrderID     string    `json:"order_id"`
	CheckoutID  string    `json:"checkout_id"`
	UserID      string    `json:"user_id"`
	TotalPrice  string    `json:"total_price"`
	Currency    string    `json:"currency"`
	ItemCount   int       `json:"item_count"`
	CompletedAt time.Time `json:"completed_at"`
}

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error {
	query := `INSERT INTO checkout_sessions (id, user_id, status, amount_minor, currency, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          RETURNING created_at, updated_at`

	session.Status = domain.CheckoutStatusSessionCreated
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.UserID,
		session.Status,
		session.AmountMinor,
		session.Currency).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `SELECT id, user_id, status, amount_minor, currency, created_at, updated_at
	          FROM checkout_sessions WHERE id = $1`

	var s domain.CheckoutSession
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Status,
		&s.AmountMinor,
		&s.Currency,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return &s, nil
}

func (r *Repository) UpdateCheckoutSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update checkout session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListStaleSessions returns up to limit sessions that are still open and were created
// before cutoff, oldest first.
func (r *Repository) ListStaleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*domain.CheckoutSession, error) {
	query := `SELECT id, user_id, status, amount_minor, currency, created_at, updated_at
	          FROM checkout_sessions
	          WHERE status IN ($1, $2) AND created_at < $3
	          ORDER BY created_at ASC
	          LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query,
		domain.CheckoutStatusSessionCreated,
		domain.CheckoutStatusConfirmed,
		cutoff,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.CheckoutSession
	for rows.Next() {
		var s domain.CheckoutSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.AmountMinor, &s.Currency, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stale session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale sessions: %w", err)
	}
	return sessions, nil
}

// CompleteCheckout records the order for a confirmed session in one transaction:
// the cart lines are locked, snapshotted into the order built by build, deleted,
// the session is marked CART_CLEARED and an order.completed outbox event is queued.
// Nothing is written unless every step succeeds.
func (r *Repository) CompleteCheckout(ctx context.Context, userID, sessionID string, build OrderBuilder) (*domain.Order, error) {
	var order *domain.Order
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var status domain.CheckoutStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM checkout_sessions WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			sessionID, userID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("lock checkout session: %w", err)
		}
		if status == domain.CheckoutStatusCartCleared {
			return ErrDuplicateCheckout
		}

		items, err := lockCartItems(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		built, err := build(items)
		if err != nil {
			return err
		}
		if err := insertOrder(ctx, tx, built); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2`,
			domain.CheckoutStatusCartCleared, sessionID); err != nil {
			return fmt.Errorf("update checkout session status: %w", err)
		}

		payload, err := json.Marshal(OrderCompletedEvent{
			OrderID:     built.ID.String(),
			CheckoutID:  built.CheckoutID,
			UserID:      built.UserID,
			TotalPrice:  built.TotalPrice.StringFixed(2),
			Currency:    built.Currency,
			ItemCount:   len(built.Items),
			CompletedAt: built.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order event: %w", err)
		}
		if err := insertOutboxEvent(ctx, tx, built.ID.String(), EventTypeOrderCompleted, payload); err != nil {
			return err
		}

		order = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
