package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_bookshop/internal/catalog"
	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/pkg/logger"
	"go.uber.org/zap"
)

// FavoriteInput carries the book metadata shown in the favorites list.
// When Title is empty the metadata is looked up in the catalog.
type FavoriteInput struct {
	Title       string
	Thumbnail   string
	Authors     string
	Description string
}

type FavoriteService struct {
	store   FavoriteStore
	catalog BookLookup
	logger  *zap.Logger
}

func NewFavoriteService(store FavoriteStore, books BookLookup, l *zap.Logger) *FavoriteService {
	return &FavoriteService{store: store, catalog: books, logger: l}
}

// Add saves the book for the user. Adding an existing favorite returns it unchanged.
func (s *FavoriteService) Add(ctx context.Context, userID, bookID string, in FavoriteInput) (*domain.Favorite, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrInvalidRequest)
	}

	if strings.TrimSpace(in.Title) == "" {
		book, err := s.catalog.Get(ctx, bookID)
		if errors.Is(err, catalog.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		if errors.Is(err, catalog.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		if err != nil {
			return nil, err
		}
		in = FavoriteInput{
			Title:       book.Title,
			Thumbnail:   book.Thumbnail,
			Authors:     strings.Join(book.Authors, ", "),
			Description: book.Description,
		}
	}

	fav, err := s.store.Add(ctx, &domain.Favorite{
		UserID:      userID,
		BookID:      bookID,
		Title:       in.Title,
		Thumbnail:   in.Thumbnail,
		Authors:     in.Authors,
		Description: in.Description,
	})
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("add favorite failed",
			zap.String("user_id", userID), zap.String("book_id", bookID), zap.Error(err))
		return nil, err
	}
	return fav, nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, bookID string) error {
	return s.store.Remove(ctx, userID, bookID)
}

// ListForUser returns only the requesting user's favorites.
func (s *FavoriteService) ListForUser(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return s.store.ListForUser(ctx, userID)
}
