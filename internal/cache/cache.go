package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_bookshop/internal/domain"
)

// CartCache holds a user's cart lines between mutations.
type CartCache interface {
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Set(ctx context.Context, userID string, items []domain.CartItem) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is used when no Redis is configured. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]domain.CartItem, error) { return nil, ErrCacheMiss }

func (Noop) Set(context.Context, string, []domain.CartItem) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }
