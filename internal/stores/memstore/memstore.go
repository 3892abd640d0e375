// Package memstore is a mutex-guarded in-memory implementation of the
// storage contracts. It mirrors the conditional-update semantics of the
// postgres store (check-and-decrement reserve, status-guarded transitions)
// and backs the service tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

type Store struct {
	mu       sync.Mutex
	products map[string]*models.Product
	carts    map[string]map[string]*models.CartItem // clientID -> productID -> item
	orders   map[string]*models.Order
	accounts map[string]*models.Account
}

func New() *Store {
	return &Store{
		products: make(map[string]*models.Product),
		carts:    make(map[string]map[string]*models.CartItem),
		orders:   make(map[string]*models.Order),
		accounts: make(map[string]*models.Account),
	}
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.Name == p.Name {
			return apperr.Newf(apperr.KindDuplicate, "product %q already exists", p.Name)
		}
	}

	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}

	if patch.Name != nil {
		for otherID, other := range s.products {
			if otherID != id && other.Name == *patch.Name {
				return nil, apperr.Newf(apperr.KindDuplicate, "product %q already exists", *patch.Name)
			}
		}
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		// Add-on-top admin update semantics.
		p.Quantity += *patch.Quantity
	}
	p.UpdatedAt = time.Now()

	cp := *p
	return &cp, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ReserveStock(_ context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	if p.Quantity < quantity {
		return apperr.Newf(apperr.KindInsufficientStock, "insufficient stock for %s", p.Name)
	}
	p.Quantity -= quantity
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ReleaseStock(_ context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	p.Quantity += quantity
	p.UpdatedAt = time.Now()
	return nil
}

// --- carts ---

func (s *Store) AddCartItem(_ context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientCart, ok := s.carts[item.ClientID]
	if !ok {
		clientCart = make(map[string]*models.CartItem)
		s.carts[item.ClientID] = clientCart
	}
	if _, exists := clientCart[item.ProductID]; exists {
		return apperr.New(apperr.KindDuplicate, "product already in cart")
	}

	cp := *item
	clientCart[item.ProductID] = &cp
	return nil
}

func (s *Store) RemoveCartItem(_ context.Context, clientID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientCart, ok := s.carts[clientID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "product not in cart")
	}
	if _, exists := clientCart[productID]; !exists {
		return apperr.New(apperr.KindNotFound, "product not in cart")
	}
	delete(clientCart, productID)
	return nil
}

func (s *Store) ListCartItems(_ context.Context, clientID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.CartItem{}
	for _, item := range s.carts[clientID] {
		out = append(out, *item)
	}
	return out, nil
}

// --- orders ---

func (s *Store) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return apperr.New(apperr.KindDuplicate, "order already exists")
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ListOrdersByClient(_ context.Context, clientID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Order{}
	for _, o := range s.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *Store) ListOrders(_ context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Order{}
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

// TransitionOrder applies change only when the order is still in the from
// status; a concurrent transition that got there first leaves the loser
// with InvalidState.
func (s *Store) TransitionOrder(_ context.Context, id, from string, change models.StatusChange) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if o.Status != from {
		return nil, apperr.Newf(apperr.KindInvalidState, "order is %s, expected %s", o.Status, from)
	}

	o.Status = change.To
	if change.DispatchedAt != nil {
		at := *change.DispatchedAt
		o.DispatchedAt = &at
	}
	if change.DispatchedByName != "" {
		o.DispatchedBy = change.DispatchedByName
	}

	cp := *o
	return &cp, nil
}

func (s *Store) MarkOrderReceived(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	if o.Status != models.OrderStatusAccepted {
		return apperr.Newf(apperr.KindInvalidState, "order is %s, expected accepted", o.Status)
	}
	o.Received = true
	return nil
}

// --- accounts ---

func (s *Store) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Role == a.Role && existing.Email == a.Email {
			return apperr.New(apperr.KindDuplicate, "email already registered")
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByEmail(_ context.Context, role, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Role == role && a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "account not found")
}

func (s *Store) UpdateAccount(_ context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	if patch.Username != nil {
		a.Username = *patch.Username
	}
	if patch.Phone != nil {
		a.Phone = *patch.Phone
	}
	if patch.Address != nil {
		a.Address = *patch.Address
	}
	if patch.Gender != nil {
		a.Gender = *patch.Gender
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (s *Store) SetAccountOTP(_ context.Context, id, otp string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	a.OTP = otp
	a.OTPExpiresAt = &expiresAt
	return nil
}

func (s *Store) ClearAccountOTP(_ context.Context, id string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	a.OTP = ""
	a.OTPExpiresAt = nil
	if verified {
		a.Verified = true
	}
	return nil
}

func (s *Store) SetAccountPassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SetAccountRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	a.RefreshToken = token
	return nil
}
