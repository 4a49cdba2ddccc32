package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's cart. There is at most one line per (UserID, BookID).
type CartItem struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	BookID    string          `json:"book_id"`
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// CartLineView is a cart line together with its computed subtotal.
type CartLineView struct {
	CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Items []CartLineView  `json:"items"`
	Total decimal.Decimal `json:"total"`
}
