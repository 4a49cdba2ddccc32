package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FavoriteManager interface {
	Add(ctx context.Context, userID, bookID string, in service.FavoriteInput) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, bookID string) error
	ListForUser(ctx context.Context, userID string) ([]domain.Favorite, error)
}

type FavoritesHandler struct {
	favorites FavoriteManager
	timeout   time.Duration
	logger    *zap.Logger
}

func NewFavoritesHandler(favorites FavoriteManager, timeout time.Duration, l *zap.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: favorites,
		timeout:   timeout,
		logger:    l,
	}
}

// FavoriteRequestDTO is optional. Without it the book metadata comes from the catalog.
type FavoriteRequestDTO struct {
	Title       string `json:"title" validate:"max=255"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,url,max=500"`
	Authors     string `json:"authors" validate:"max=255"`
	Description string `json:"description" validate:"max=5000"`
}

type FavoriteListResponse struct {
	Favorites []domain.Favorite `json:"favorites"`
}

func (h *FavoritesHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	favs, err := h.favorites.ListForUser(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}

	respondJSON(w, http.StatusOK, FavoriteListResponse{Favorites: favs})
}

func (h *FavoritesHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	bookID := strings.TrimSpace(chi.URLParam(r, "book_id"))
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book_id is required")
		return
	}

	var req FavoriteRequestDTO
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	fav, err := h.favorites.Add(ctx, user.ID, bookID, service.FavoriteInput{
		Title:       req.Title,
		Thumbnail:   req.Thumbnail,
		Authors:     req.Authors,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, fav)
}

func (h *FavoritesHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	bookID := strings.TrimSpace(chi.URLParam(r, "book_id"))
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book_id is required")
		return
	}

	if err := h.favorites.Remove(ctx, user.ID, bookID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
