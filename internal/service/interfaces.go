package service

import (
	"context"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/payment"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/google/uuid"
)

type CartRepository interface {
	AddCartItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	IncrementCartItem(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error)
	DecrementCartItem(ctx context.Context, userID string, lineID int64) (*domain.CartItem, error)
	RemoveCartItem(ctx context.Context, userID string, lineID int64) error
	ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	ClearCart(ctx context.Context, userID string) error
}

type CheckoutRepository interface {
	CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error
	GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	UpdateCheckoutSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error
	CompleteCheckout(ctx context.Context, userID, sessionID string, build repository.OrderBuilder) (*domain.Order, error)
}

type OrderRepository interface {
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrderForUser(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error)
}

type ProfileRepository interface {
	GetOrCreateProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, p *domain.Profile) error
}

type FavoriteStore interface {
	Add(ctx context.Context, fav *domain.Favorite) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, bookID string) error
	ListForUser(ctx context.Context, userID string) ([]domain.Favorite, error)
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.CreateSessionRequest) (*payment.Session, error)
	VerifySession(ctx context.Context, sessionID string) (*payment.Confirmation, error)
}

type BookLookup interface {
	Get(ctx context.Context, bookID string) (*domain.Book, error)
}
