package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a snapshot of a cart line taken when the order was recorded.
// It does not reference the catalog or the cart afterwards.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail,omitempty"`
}

type Order struct {
	ID         uuid.UUID       `json:"id"`
	UserID     string          `json:"user_id"`
	CheckoutID string          `json:"checkout_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
}
