// Package inventory owns per-product stock counts. Reserve and Release are
// the only sanctioned mutation paths for order traffic; admin updates go
// through the product CRUD operations with add-on-top quantity semantics.
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

// Store is the persistence contract for the ledger. ReserveStock must be an
// atomic check-and-decrement: two concurrent reservations on the same
// product must never drive the quantity negative.
type Store interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ReserveStock(ctx context.Context, id string, quantity int) error
	ReleaseStock(ctx context.Context, id string, quantity int) error
}

type Ledger struct {
	store  Store
	logger *logrus.Logger
}

func NewLedger(store Store, logger *logrus.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

func (l *Ledger) AddProduct(ctx context.Context, name string, price float64, quantity int, adminID string) (*models.Product, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "product name is required")
	}
	if price < 0 {
		return nil, apperr.New(apperr.KindValidation, "product price must not be negative")
	}
	if quantity < 0 {
		return nil, apperr.New(apperr.KindValidation, "product quantity must not be negative")
	}

	now := time.Now()
	product := &models.Product{
		ID:        uuid.New().String(),
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		AddedBy:   adminID,
		AddedAt:   now,
		UpdatedAt: now,
	}

	if err := l.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"quantity":   product.Quantity,
	}).Info("Product added")

	return product, nil
}

// UpdateProduct applies an admin patch. An incoming quantity is added on
// top of the existing stock, not substituted for it.
func (l *Ledger) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "product name must not be empty")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperr.New(apperr.KindValidation, "product price must not be negative")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity adjustment must not be negative")
	}

	product, err := l.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"quantity":   product.Quantity,
	}).Info("Product updated")

	return product, nil
}

func (l *Ledger) DeleteProduct(ctx context.Context, id string) error {
	if err := l.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	l.logger.WithField("product_id", id).Info("Product deleted")
	return nil
}

func (l *Ledger) Product(ctx context.Context, id string) (*models.Product, error) {
	return l.store.GetProduct(ctx, id)
}

func (l *Ledger) Products(ctx context.Context) ([]models.Product, error) {
	return l.store.ListProducts(ctx)
}

// Reserve decrements available stock by quantity, atomically with the
// availability check. Fails with InsufficientStock when the product has
// less than the requested amount.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return apperr.New(apperr.KindValidation, "reserve quantity must be positive")
	}

	if err := l.store.ReserveStock(ctx, productID, quantity); err != nil {
		return err
	}

	l.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"quantity":   quantity,
	}).Info("Stock reserved")

	return nil
}

// Release adds quantity back after a reject or cancel. No upper bound is
// enforced; the caller is trusted to release exactly what it reserved.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return apperr.New(apperr.KindValidation, "release quantity must be positive")
	}

	if err := l.store.ReleaseStock(ctx, productID, quantity); err != nil {
		return err
	}

	l.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"quantity":   quantity,
	}).Info("Stock released")

	return nil
}
