// Package cart stages intended purchases before an order is placed. Cart
// entries are convenience only: direct order placement does not require a
// prior cart step and never touches the cart.
package cart

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

// Store holds at most one entry per (client, product) pair.
type Store interface {
	AddCartItem(ctx context.Context, item *models.CartItem) error
	RemoveCartItem(ctx context.Context, clientID, productID string) error
	ListCartItems(ctx context.Context, clientID string) ([]models.CartItem, error)
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type Service struct {
	store   Store
	catalog Catalog
	logger  *logrus.Logger
}

func NewService(store Store, catalog Catalog, logger *logrus.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// Add snapshots the product's current name and price into the entry. Fails
// with Duplicate when the client already has the product in the cart.
func (s *Service) Add(ctx context.Context, clientID, productID string, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		ClientID:    clientID,
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		AddedAt:     time.Now(),
	}

	if err := s.store.AddCartItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  clientID,
		"product_id": productID,
		"quantity":   quantity,
	}).Info("Product added to cart")

	return item, nil
}

func (s *Service) Remove(ctx context.Context, clientID, productID string) error {
	if err := s.store.RemoveCartItem(ctx, clientID, productID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  clientID,
		"product_id": productID,
	}).Info("Product removed from cart")

	return nil
}

// List returns the client's cart entries. An empty cart yields an empty
// slice, not an error.
func (s *Service) List(ctx context.Context, clientID string) ([]models.CartItem, error) {
	return s.store.ListCartItems(ctx, clientID)
}
