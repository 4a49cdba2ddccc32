package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errBoom = errors.New("boom")

func withTestUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(withUser(r.Context(), User{ID: userID, Email: userID + "@example.com"}))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type mockCatalog struct {
	books    []domain.Book
	featured []domain.Book
	book     *domain.Book
	err      error

	lastQuery string
	lastLimit int
}

func (m *mockCatalog) Search(_ context.Context, query string, limit int) []domain.Book {
	m.lastQuery, m.lastLimit = query, limit
	return m.books
}

func (m *mockCatalog) Featured(context.Context) []domain.Book {
	return m.featured
}

func (m *mockCatalog) Get(_ context.Context, _ string) (*domain.Book, error) {
	return m.book, m.err
}

type mockCart struct {
	view *domain.CartView
	err  error

	added    service.AddItemRequest
	lastLine int64
	lastUser string
	cleared  bool
}

func (m *mockCart) Add(_ context.Context, userID string, req service.AddItemRequest) (*domain.CartItem, error) {
	m.lastUser, m.added = userID, req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CartItem{UserID: userID, BookID: req.BookID, Title: req.Title, Quantity: 1}, nil
}

func (m *mockCart) Increment(_ context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	m.lastUser, m.lastLine = userID, lineID
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CartItem{ID: lineID, UserID: userID, Quantity: 2}, nil
}

func (m *mockCart) Decrement(_ context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	m.lastUser, m.lastLine = userID, lineID
	return nil, m.err
}

func (m *mockCart) Remove(_ context.Context, userID string, lineID int64) error {
	m.lastUser, m.lastLine = userID, lineID
	return m.err
}

func (m *mockCart) Clear(_ context.Context, userID string) error {
	m.lastUser = userID
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

func (m *mockCart) View(_ context.Context, userID string) (*domain.CartView, error) {
	m.lastUser = userID
	if m.view == nil {
		return &domain.CartView{Items: []domain.CartLineView{}}, nil
	}
	return m.view, nil
}

type mockCheckout struct {
	start *service.CheckoutStart
	order *domain.Order
	err   error

	lastEmail    string
	lastSession  string
	lastUser     string
	returnVisits int
}

func (m *mockCheckout) StartCheckout(_ context.Context, _, email string) (*service.CheckoutStart, error) {
	m.lastEmail = email
	return m.start, m.err
}

func (m *mockCheckout) CompleteCheckout(_ context.Context, userID, sessionID string) (*domain.Order, error) {
	m.lastUser, m.lastSession = userID, sessionID
	return m.order, m.err
}

func (m *mockCheckout) CompleteReturnedSession(_ context.Context, sessionID string) (*domain.Order, error) {
	m.lastSession = sessionID
	m.returnVisits++
	return m.order, m.err
}

type mockOrders struct {
	orders []*domain.Order
	err    error
}

func (m *mockOrders) ListForUser(context.Context, string) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *mockOrders) GetForUser(_ context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, service.ErrOrderNotFound
}

type mockFavorites struct {
	favs  []domain.Favorite
	err   error
	input service.FavoriteInput
}

func (m *mockFavorites) Add(_ context.Context, userID, bookID string, in service.FavoriteInput) (*domain.Favorite, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Favorite{UserID: userID, BookID: bookID, Title: in.Title}, nil
}

func (m *mockFavorites) Remove(context.Context, string, string) error {
	return m.err
}

func (m *mockFavorites) ListForUser(context.Context, string) ([]domain.Favorite, error) {
	return m.favs, m.err
}

type mockProfiles struct {
	err    error
	update service.ProfileUpdate
}

func (m *mockProfiles) Get(_ context.Context, userID string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{UserID: userID}, nil
}

func (m *mockProfiles) Update(_ context.Context, userID string, in service.ProfileUpdate) (*domain.Profile, error) {
	m.update = in
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{UserID: userID, Phone: in.Phone, Address: in.Address, PictureRef: in.PictureRef}, nil
}
