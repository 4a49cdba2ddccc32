package domain

import "github.com/shopspring/decimal"

// Book is a catalog record returned by the external search API. It is never persisted.
type Book struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Authors     []string        `json:"authors"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}
