package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fjod/go_bookshop/internal/cache"
	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/pricing"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/fjod/go_bookshop/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	cacheOpTimeout   = time.Second
	// cacheGenerations stripes the per-user invalidation counters.
	cacheGenerations = 256
)

type AddItemRequest struct {
	BookID    string
	Title     string
	Thumbnail string
	// PriceHint is the client supplied price. Unusable values fall back to a placeholder.
	PriceHint string
}

type CartService struct {
	repo   CartRepository
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group
	gens   [cacheGenerations]atomic.Uint64
}

func NewCartService(repo CartRepository, c cache.CartCache, l *zap.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  c,
		logger: l,
	}
}

// Add puts one copy of the book into the user's cart. Adding a book already in the
// cart increments its quantity and keeps the original price.
func (s *CartService) Add(ctx context.Context, userID string, req AddItemRequest) (*domain.CartItem, error) {
	req.BookID = strings.TrimSpace(req.BookID)
	req.Title = strings.TrimSpace(req.Title)
	if req.BookID == "" || req.Title == "" {
		return nil, fmt.Errorf("%w: book id and title are required", ErrInvalidRequest)
	}

	item, err := s.repo.AddCartItem(ctx, &domain.CartItem{
		UserID:    userID,
		BookID:    req.BookID,
		Title:     req.Title,
		Thumbnail: req.Thumbnail,
		Price:     pricing.ResolvePrice(req.PriceHint),
	})
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("repo add item error",
			zap.String("user_id", userID), zap.String("book_id", req.BookID), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(userID)
	return item, nil
}

func (s *CartService) Increment(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	item, err := s.repo.IncrementCartItem(ctx, userID, lineID)
	if err != nil {
		return nil, s.mapLineError(ctx, "increment", userID, lineID, err)
	}

	s.invalidateCache(userID)
	return item, nil
}

// Decrement lowers the quantity by one, removing the line when it would reach zero.
// A nil item means the line was removed.
func (s *CartService) Decrement(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	item, err := s.repo.DecrementCartItem(ctx, userID, lineID)
	if err != nil {
		return nil, s.mapLineError(ctx, "decrement", userID, lineID, err)
	}

	s.invalidateCache(userID)
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID string, lineID int64) error {
	if err := s.repo.RemoveCartItem(ctx, userID, lineID); err != nil {
		logger.WithContext(ctx, s.logger).Error("repo remove item error",
			zap.String("user_id", userID), zap.Int64("line_id", lineID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		logger.WithContext(ctx, s.logger).Error("repo clear cart error",
			zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// List returns the user's cart lines, served from cache when possible.
// Concurrent misses for the same user share one database read.
func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		items, err := s.cache.Get(ctx, userID)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithContext(ctx, s.logger).Warn("cache get error", zap.String("user_id", userID), zap.Error(err))
		}

		gen := s.generation(userID)
		before := gen.Load()
		items, err = s.repo.ListCartItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		// A mutation committed during the read; its invalidation must win.
		if gen.Load() != before {
			return items, nil
		}

		setCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()
		if errSet := s.cache.Set(setCtx, userID, items); errSet != nil {
			logger.WithContext(ctx, s.logger).Warn("cache set error", zap.String("user_id", userID), zap.Error(errSet))
		}
		if gen.Load() != before {
			if errDel := s.cache.Delete(setCtx, userID); errDel != nil {
				logger.WithContext(ctx, s.logger).Warn("cache invalidate error", zap.String("user_id", userID), zap.Error(errDel))
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items := v.([]domain.CartItem)
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// View returns the cart lines with their subtotals and the cart total.
func (s *CartService) View(ctx context.Context, userID string) (*domain.CartView, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{
		Items: make([]domain.CartLineView, 0, len(items)),
		Total: pricing.Total(items),
	}
	for _, item := range items {
		view.Items = append(view.Items, domain.CartLineView{
			CartItem: item,
			Subtotal: pricing.Subtotal(item),
		})
	}
	return view, nil
}

func (s *CartService) mapLineError(ctx context.Context, op, userID string, lineID int64, err error) error {
	if errors.Is(err, repository.ErrCartItemNotFound) {
		return ErrItemNotFound
	}
	logger.WithContext(ctx, s.logger).Error("repo "+op+" item error",
		zap.String("user_id", userID), zap.Int64("line_id", lineID), zap.Error(err))
	return err
}

func (s *CartService) generation(userID string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.gens[h.Sum32()%cacheGenerations]
}

// invalidateCache drops the cached cart. Reads already in flight will not repopulate
// it, and later reads do not join them.
func (s *CartService) invalidateCache(userID string) {
	s.generation(userID).Add(1)
	s.sfg.Forget(userID)

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("user_id", userID), zap.Error(err))
	}
}
