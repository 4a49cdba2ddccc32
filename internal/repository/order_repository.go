package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (id, checkout_id, user_id, total_price, currency, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW())
	          RETURNING created_at`

	err := tx.QueryRowContext(ctx, query,
		order.ID,
		order.CheckoutID,
		order.UserID,
		order.TotalPrice,
		order.Currency).Scan(&order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, title, price, quantity, thumbnail)
	              VALUES ($1, $2, $3, $4, $5)
	              RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRowContext(ctx, itemQuery,
			order.ID,
			item.Title,
			item.Price,
			item.Quantity,
			item.Thumbnail).Scan(&item.ID); err != nil {
			return fmt.Errorf("insert order item %q: %w", item.Title, err)
		}
	}
	return nil
}

// ListOrdersByUserID returns the user's orders newest first, each with its items.
func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT id, checkout_id, user_id, total_price, currency, created_at
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	byID := make(map[uuid.UUID]*domain.Order)
	ids := make([]string, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.CheckoutID,
			&order.UserID,
			&order.TotalPrice,
			&order.Currency,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Items = make([]domain.OrderItem, 0)
		orders = append(orders, &order)
		byID[order.ID] = &order
		ids = append(ids, order.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return orders, nil
}

func (r *Repository) GetOrderForUser(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, checkout_id, user_id, total_price, currency, created_at
	          FROM orders WHERE id = $1 AND user_id = $2`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, orderID, userID).Scan(
		&order.ID,
		&order.CheckoutID,
		&order.UserID,
		&order.TotalPrice,
		&order.Currency,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	items, err := r.orderItems(ctx, []string{order.ID.String()})
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *Repository) orderItems(ctx context.Context, orderIDs []string) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, title, price, quantity, thumbnail
	          FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Title,
			&item.Price,
			&item.Quantity,
			&item.Thumbnail,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
