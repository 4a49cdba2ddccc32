package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fjod/go_bookshop/internal/cache"
	"github.com/fjod/go_bookshop/internal/catalog"
	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/payment"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the PostgreSQL repository.
type memStore struct {
	m          sync.Mutex
	nextID     int64
	items      map[string][]domain.CartItem
	sessions   map[string]*domain.CheckoutSession
	orders     []*domain.Order
	profiles   map[string]*domain.Profile
	writes     int
	listCalls  int
	recordErr  error
	sessionErr error
}

func newMemStore() *memStore {
	return &memStore{
		items:    make(map[string][]domain.CartItem),
		sessions: make(map[string]*domain.CheckoutSession),
		profiles: make(map[string]*domain.Profile),
	}
}

func (s *memStore) AddCartItem(_ context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.writes++
	lines := s.items[item.UserID]
	for i := range lines {
		if lines[i].BookID == item.BookID {
			lines[i].Quantity++
			out := lines[i]
			return &out, nil
		}
	}
	s.nextID++
	saved := *item
	saved.ID = s.nextID
	saved.Quantity = 1
	s.items[item.UserID] = append(lines, saved)
	return &saved, nil
}

func (s *memStore) find(userID string, lineID int64) int {
	for i, it := range s.items[userID] {
		if it.ID == lineID {
			return i
		}
	}
	return -1
}

func (s *memStore) IncrementCartItem(_ context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	s.m.Lock()
	defer s.m.Unlock()
	i := s.find(userID, lineID)
	if i < 0 {
		return nil, repository.ErrCartItemNotFound
	}
	s.writes++
	s.items[userID][i].Quantity++
	out := s.items[userID][i]
	return &out, nil
}

func (s *memStore) DecrementCartItem(_ context.Context, userID string, lineID int64) (*domain.CartItem, error) {
	s.m.Lock()
	defer s.m.Unlock()
	i := s.find(userID, lineID)
	if i < 0 {
		return nil, repository.ErrCartItemNotFound
	}
	s.writes++
	lines := s.items[userID]
	if lines[i].Quantity <= 1 {
		s.items[userID] = append(lines[:i], lines[i+1:]...)
		return nil, nil
	}
	lines[i].Quantity--
	out := lines[i]
	return &out, nil
}

func (s *memStore) RemoveCartItem(_ context.Context, userID string, lineID int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	if i := s.find(userID, lineID); i >= 0 {
		s.writes++
		lines := s.items[userID]
		s.items[userID] = append(lines[:i], lines[i+1:]...)
	}
	return nil
}

func (s *memStore) ListCartItems(_ context.Context, userID string) ([]domain.CartItem, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.listCalls++
	out := make([]domain.CartItem, len(s.items[userID]))
	copy(out, s.items[userID])
	return out, nil
}

func (s *memStore) ClearCart(_ context.Context, userID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.writes++
	delete(s.items, userID)
	return nil
}

func (s *memStore) CreateCheckoutSession(_ context.Context, session *domain.CheckoutSession) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.sessionErr != nil {
		return s.sessionErr
	}
	s.writes++
	session.Status = domain.CheckoutStatusSessionCreated
	saved := *session
	s.sessions[session.ID] = &saved
	return nil
}

func (s *memStore) GetCheckoutSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	s.m.Lock()
	defer s.m.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

func (s *memStore) UpdateCheckoutSessionStatus(_ context.Context, id string, status domain.CheckoutStatus) error {
	s.m.Lock()
	defer s.m.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

// CompleteCheckout applies all changes only after every step succeeded.
func (s *memStore) CompleteCheckout(_ context.Context, userID, sessionID string, build repository.OrderBuilder) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, repository.ErrSessionNotFound
	}
	if session.Status == domain.CheckoutStatusCartCleared {
		return nil, repository.ErrDuplicateCheckout
	}

	items := make([]domain.CartItem, len(s.items[userID]))
	copy(items, s.items[userID])
	if len(items) == 0 {
		return nil, repository.ErrEmptyCart
	}

	order, err := build(items)
	if err != nil {
		return nil, err
	}
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	for _, o := range s.orders {
		if o.CheckoutID == order.CheckoutID {
			return nil, repository.ErrDuplicateCheckout
		}
	}

	s.orders = append(s.orders, order)
	delete(s.items, userID)
	session.Status = domain.CheckoutStatusCartCleared
	return order, nil
}

func (s *memStore) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []*domain.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}

func (s *memStore) GetOrderForUser(_ context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *memStore) GetOrCreateProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.m.Lock()
	defer s.m.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		s.profiles[userID] = p
	}
	out := *p
	return &out, nil
}

func (s *memStore) UpsertProfile(_ context.Context, p *domain.Profile) error {
	s.m.Lock()
	defer s.m.Unlock()
	saved := *p
	s.profiles[p.UserID] = &saved
	return nil
}

type mockCache struct {
	m       sync.Mutex
	data    map[string][]domain.CartItem
	deletes int
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]domain.CartItem)}
}

func (c *mockCache) Get(_ context.Context, userID string) ([]domain.CartItem, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	items, ok := c.data[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return items, nil
}

func (c *mockCache) Set(_ context.Context, userID string, items []domain.CartItem) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.data[userID] = items
	return nil
}

func (c *mockCache) Delete(_ context.Context, userID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.deletes++
	delete(c.data, userID)
	return nil
}

func (c *mockCache) has(userID string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.data[userID]
	return ok
}

type mockGateway struct {
	createReq    *payment.CreateSessionRequest
	createErr    error
	confirmation *payment.Confirmation
	verifyErr    error
	verifyCalls  int
	sessions     int
}

func (g *mockGateway) CreateSession(_ context.Context, req payment.CreateSessionRequest) (*payment.Session, error) {
	g.createReq = &req
	if g.createErr != nil {
		return nil, g.createErr
	}
	var total int64
	for _, it := range req.Items {
		total += it.UnitAmount * it.Quantity
	}
	g.sessions++
	id := fmt.Sprintf("cs_test_%d", g.sessions)
	return &payment.Session{ID: id, URL: "https://pay.example/" + id, AmountTotal: total}, nil
}

func (g *mockGateway) VerifySession(_ context.Context, sessionID string) (*payment.Confirmation, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.confirmation == nil {
		return nil, payment.ErrSessionNotFound
	}
	c := *g.confirmation
	c.SessionID = sessionID
	return &c, nil
}

type mockFavorites struct {
	m    sync.Mutex
	favs map[string]map[string]domain.Favorite
	err  error
}

func newMockFavorites() *mockFavorites {
	return &mockFavorites{favs: make(map[string]map[string]domain.Favorite)}
}

func (f *mockFavorites) Add(_ context.Context, fav *domain.Favorite) (*domain.Favorite, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.favs[fav.UserID] == nil {
		f.favs[fav.UserID] = make(map[string]domain.Favorite)
	}
	if existing, ok := f.favs[fav.UserID][fav.BookID]; ok {
		return &existing, nil
	}
	f.favs[fav.UserID][fav.BookID] = *fav
	out := *fav
	return &out, nil
}

func (f *mockFavorites) Remove(_ context.Context, userID, bookID string) error {
	f.m.Lock()
	defer f.m.Unlock()
	delete(f.favs[userID], bookID)
	return nil
}

func (f *mockFavorites) ListForUser(_ context.Context, userID string) ([]domain.Favorite, error) {
	f.m.Lock()
	defer f.m.Unlock()
	out := make([]domain.Favorite, 0)
	for _, fav := range f.favs[userID] {
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

type mockBooks struct {
	books map[string]domain.Book
	calls int
	err   error
}

func (b *mockBooks) Get(_ context.Context, bookID string) (*domain.Book, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	book, ok := b.books[bookID]
	if !ok {
		return nil, catalog.ErrBookNotFound
	}
	return &book, nil
}

var errBoom = errors.New("boom")
