// Package orders implements the order lifecycle state machine:
// pending -> accepted (-> received flag) or pending -> rejected/cancelled.
// No transition leaves accepted, rejected or cancelled.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

// Store persists orders. TransitionOrder must apply the change only when
// the order is still in the expected prior status, atomically with the
// status read, so racing transitions produce exactly one winner.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByClient(ctx context.Context, clientID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	TransitionOrder(ctx context.Context, id, from string, change models.StatusChange) (*models.Order, error)
	MarkOrderReceived(ctx context.Context, id string) error
}

// Inventory is the ledger the lifecycle coordinates with.
type Inventory interface {
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// Directory resolves verified actor ids to accounts.
type Directory interface {
	Account(ctx context.Context, id string) (*models.Account, error)
}

// CartAccess is what the cart-mediated checkout needs from the cart store.
type CartAccess interface {
	ListCartItems(ctx context.Context, clientID string) ([]models.CartItem, error)
	RemoveCartItem(ctx context.Context, clientID, productID string) error
}

// Notifier delivers best-effort notices on state transitions. Failures are
// logged by the implementation and never surface here.
type Notifier interface {
	OrderPlaced(o *models.Order)
	OrderAccepted(o *models.Order)
	OrderRejected(o *models.Order)
	OrderCancelled(o *models.Order)
}

type Broadcaster interface {
	Broadcast(messageType string, data interface{}, source string)
}

type Service struct {
	store     Store
	inventory Inventory
	catalog   Catalog
	directory Directory
	carts     CartAccess
	notifier  Notifier
	hub       Broadcaster
	logger    *logrus.Logger
}

func NewService(store Store, inventory Inventory, catalog Catalog, directory Directory, carts CartAccess, logger *logrus.Logger) *Service {
	return &Service{
		store:     store,
		inventory: inventory,
		catalog:   catalog,
		directory: directory,
		carts:     carts,
		logger:    logger,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetBroadcaster(hub Broadcaster) {
	s.hub = hub
}

// Place reserves stock, then creates the order in pending state with
// client and product fields snapshotted. The total is computed once from
// the unit price at this instant and never recomputed. If order creation
// fails after the reservation succeeded, the reservation is released
// before the error returns so stock is not permanently lost.
func (s *Service) Place(ctx context.Context, clientID, productID string, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.KindValidation, "order quantity must be positive")
	}

	client, err := s.directory.Account(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != models.RoleClient {
		return nil, apperr.New(apperr.KindUnauthorized, "only clients can place orders")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, product.ID, quantity); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            uuid.New().String(),
		ClientID:      client.ID,
		ClientName:    client.Username,
		ClientEmail:   client.Email,
		ClientPhone:   client.Phone,
		ClientAddress: client.Address,
		ProductID:     product.ID,
		ProductName:   product.Name,
		UnitPrice:     product.Price,
		Quantity:      quantity,
		TotalAmount:   product.Price * float64(quantity),
		Status:        models.OrderStatusPending,
		OrderedAt:     time.Now(),
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		// Compensating release: the reservation must not outlive a failed
		// order creation.
		if relErr := s.inventory.Release(ctx, product.ID, quantity); relErr != nil {
			s.logger.WithError(relErr).WithFields(logrus.Fields{
				"product_id": product.ID,
				"quantity":   quantity,
			}).Error("Failed to release reservation after order creation failure")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"client_id":    order.ClientID,
		"product_id":   order.ProductID,
		"quantity":     order.Quantity,
		"total_amount": order.TotalAmount,
	}).Info("Order placed")

	if s.notifier != nil {
		s.notifier.OrderPlaced(order)
	}
	if s.hub != nil {
		s.hub.Broadcast("order_placed", order, "orders")
	}

	return order, nil
}

// PlaceFromCart places one order per cart entry and clears each entry once
// its order is placed. On the first failure it stops and returns the
// orders placed so far together with the error.
func (s *Service) PlaceFromCart(ctx context.Context, clientID string) ([]models.Order, error) {
	items, err := s.carts.ListCartItems(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "cart is empty")
	}

	placed := []models.Order{}
	for _, item := range items {
		order, err := s.Place(ctx, clientID, item.ProductID, item.Quantity)
		if err != nil {
			return placed, err
		}
		placed = append(placed, *order)

		if err := s.carts.RemoveCartItem(ctx, clientID, item.ProductID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"client_id":  clientID,
				"product_id": item.ProductID,
			}).Warn("Failed to clear cart entry after checkout")
		}
	}

	return placed, nil
}

// Accept transitions a pending order to accepted, recording the dispatch
// timestamp and the dispatching admin. No inventory change happens here;
// stock was decremented at placement.
func (s *Service) Accept(ctx context.Context, orderID, adminID string) (*models.Order, error) {
	admin, err := s.directory.Account(ctx, adminID)
	if err != nil || admin.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindUnauthorized, "admin identity required")
	}

	now := time.Now()
	order, err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusPending, models.StatusChange{
		To:               models.OrderStatusAccepted,
		DispatchedBy:     admin.ID,
		DispatchedByName: admin.Username,
		DispatchedAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": admin.ID,
	}).Info("Order accepted")

	if s.notifier != nil {
		s.notifier.OrderAccepted(order)
	}
	if s.hub != nil {
		s.hub.Broadcast("order_accepted", order, "orders")
	}

	return order, nil
}

// Reject transitions a pending order to rejected and restores exactly the
// reserved quantity. The order is retained with its terminal status; it
// simply stops appearing in pending listings.
func (s *Service) Reject(ctx context.Context, orderID, adminID string) (*models.Order, error) {
	admin, err := s.directory.Account(ctx, adminID)
	if err != nil || admin.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindUnauthorized, "admin identity required")
	}

	order, err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusPending, models.StatusChange{
		To: models.OrderStatusRejected,
	})
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Release(ctx, order.ProductID, order.Quantity); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":   order.ID,
			"product_id": order.ProductID,
			"quantity":   order.Quantity,
		}).Error("Failed to restore stock for rejected order")
		return nil, fmt.Errorf("release stock for rejected order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": admin.ID,
	}).Info("Order rejected")

	if s.notifier != nil {
		s.notifier.OrderRejected(order)
	}
	if s.hub != nil {
		s.hub.Broadcast("order_rejected", order, "orders")
	}

	return order, nil
}

// Cancel is the client-initiated counterpart of Reject, permitted only
// while the order is still pending and owned by the requesting client.
func (s *Service) Cancel(ctx context.Context, orderID, clientID string) (*models.Order, error) {
	existing, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.ClientID != clientID {
		return nil, apperr.New(apperr.KindUnauthorized, "order belongs to a different client")
	}

	order, err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusPending, models.StatusChange{
		To: models.OrderStatusCancelled,
	})
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Release(ctx, order.ProductID, order.Quantity); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":   order.ID,
			"product_id": order.ProductID,
			"quantity":   order.Quantity,
		}).Error("Failed to restore stock for cancelled order")
		return nil, fmt.Errorf("release stock for cancelled order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"client_id": clientID,
	}).Info("Order cancelled")

	if s.notifier != nil {
		s.notifier.OrderCancelled(order)
	}
	if s.hub != nil {
		s.hub.Broadcast("order_cancelled", order, "orders")
	}

	return order, nil
}

// ConfirmReceived marks an accepted order as received by the client. It is
// a terminal flag, not a transition: confirming an already-received order
// is a no-op success.
func (s *Service) ConfirmReceived(ctx context.Context, orderID, clientID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperr.New(apperr.KindUnauthorized, "order belongs to a different client")
	}
	if order.Status != models.OrderStatusAccepted {
		return nil, apperr.Newf(apperr.KindInvalidState, "order is %s, confirmation requires an accepted order", order.Status)
	}
	if order.Received {
		return order, nil
	}

	if err := s.store.MarkOrderReceived(ctx, orderID); err != nil {
		return nil, err
	}
	order.Received = true

	s.logger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"client_id": clientID,
	}).Info("Order receipt confirmed")

	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *Service) ListForClient(ctx context.Context, clientID string) ([]models.Order, error) {
	return s.store.ListOrdersByClient(ctx, clientID)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}
