package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_bookshop/internal/domain"
)

const cartItemColumns = `id, user_id, book_id, title, thumbnail, price, quantity, added_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	var thumbnail sql.NullString
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.BookID,
		&item.Title,
		&thumbnail,
		&item.Price,
		&item.Quantity,
		&item.AddedAt,
	); err != nil {
		return nil, err
	}
	item.Thumbnail = thumbnail.String
	return &item, nil
}

// AddCartItem inserts a line with quantity 1, or bumps the quantity of the existing
// (user, book) line. The stored price of an existing line is never changed.
func (r *Repository) AddCartItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	query := `INSERT INTO cart_items (user_id, book_id, title, thumbnail, price, quantity, added_at)
	          VALUES ($1, $2, $3, $4, $5, 1, NOW())
	          ON CONFLICT (user_id, book_id) DO UPDATE SET quantity = cart_items.quantity + 1
	          RETURNING ` + cartItemColumns

	saved, err := scanCartItem(r.db.QueryRowContext(ctx, query,
		item.UserID,
		item.BookID,
		item.Title,
		nullString(item.Thumbnail),
		item.Price))
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return saved, nil
}

func (r *Repository) IncrementCartItem(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	query := `UPDATE cart_items SET quantity = quantity + 1
	          WHERE id = $1 AND user_id = $2
	          RETURNING ` + cartItemColumns

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, lineID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment cart item: %w", err)
	}
	return item, nil
}

// DecrementCartItem lowers the quantity by one. A line at quantity 1 is deleted,
// in which case the returned item is nil.
func (r *Repository) DecrementCartItem(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	var updated *domain.CartItem
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var quantity int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM cart_items WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			lineID, userID).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartItemNotFound
		}
		if err != nil {
			return fmt.Errorf("lock cart item: %w", err)
		}

		if quantity <= 1 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID); err != nil {
				return fmt.Errorf("delete cart item: %w", err)
			}
			return nil
		}

		item, err := scanCartItem(tx.QueryRowContext(ctx,
			`UPDATE cart_items SET quantity = quantity - 1 WHERE id = $1 RETURNING `+cartItemColumns,
			lineID))
		if err != nil {
			return fmt.Errorf("decrement cart item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveCartItem deletes the line if it belongs to the user. Missing lines are not an error.
func (r *Repository) RemoveCartItem(ctx context.Context, userID string, lineID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *Repository) ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) ClearCart(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func lockCartItems(ctx context.Context, tx *sql.Tx, userID string) ([]domain.CartItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE user_id = $1 ORDER BY id FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
