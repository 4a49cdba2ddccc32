// Package pricing holds the money arithmetic for carts and orders.
// All amounts are decimals with two fractional digits; nothing here touches storage.
package pricing

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	placeholderMin = 100
	placeholderMax = 500
)

// MaxLinePrice is the largest unit price a cart line can hold (NUMERIC(6,2)).
var MaxLinePrice = decimal.RequireFromString("9999.99")

var ErrInvalidPrice = errors.New("invalid price")

// Subtotal returns price * quantity for a single cart line.
func Subtotal(item domain.CartItem) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Total sums the line subtotals. An empty cart totals zero.
func Total(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(Subtotal(item))
	}
	return total
}

// MinorUnits converts a price to the smallest currency unit, rounding half away from zero.
func MinorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

// ParsePrice parses a client supplied price. The result is rounded to two places.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if p.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative", ErrInvalidPrice)
	}
	p = p.Round(2)
	if p.GreaterThan(MaxLinePrice) {
		return decimal.Zero, fmt.Errorf("%w: exceeds %s", ErrInvalidPrice, MaxLinePrice)
	}
	return p, nil
}

// ResolvePrice returns the parsed hint, or a placeholder price when the hint is unusable.
func ResolvePrice(hint string) decimal.Decimal {
	p, err := ParsePrice(hint)
	if err != nil {
		return PlaceholderPrice()
	}
	return p
}

// PlaceholderPrice is a whole-unit price in [100, 500].
func PlaceholderPrice() decimal.Decimal {
	return decimal.NewFromInt(int64(placeholderMin + rand.Intn(placeholderMax-placeholderMin+1)))
}

// DisplayPrice is the catalog's cosmetic price, in [100, 500] with two decimals.
func DisplayPrice() decimal.Decimal {
	cents := placeholderMin*100 + rand.Intn((placeholderMax-placeholderMin)*100+1)
	return decimal.New(int64(cents), -2)
}
