// Package notify turns lifecycle transitions into fire-and-forget
// notification events. Dispatch never blocks the request path and never
// propagates failure to the caller; a failed publish is logged and the
// operation that triggered it still succeeds.
package notify

import (
	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/events"
	"github.com/ecomstack/storefront/pkg/models"
)

type Publisher interface {
	Publish(event events.NotificationEvent) error
}

type Dispatcher struct {
	publisher Publisher
	logger    *logrus.Logger
}

func NewDispatcher(publisher Publisher, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    logger,
	}
}

func (d *Dispatcher) OrderPlaced(o *models.Order) {
	d.dispatch(orderEvent(events.TypeOrderPlaced, o))
}

func (d *Dispatcher) OrderAccepted(o *models.Order) {
	d.dispatch(orderEvent(events.TypeOrderAccepted, o))
}

func (d *Dispatcher) OrderRejected(o *models.Order) {
	d.dispatch(orderEvent(events.TypeOrderRejected, o))
}

func (d *Dispatcher) OrderCancelled(o *models.Order) {
	d.dispatch(orderEvent(events.TypeOrderCancelled, o))
}

func (d *Dispatcher) OTPIssued(account *models.Account, code string) {
	d.dispatch(events.NotificationEvent{
		Type:        events.TypeAccountOTP,
		ClientID:    account.ID,
		ClientName:  account.Username,
		ClientEmail: account.Email,
		OTP:         code,
	})
}

func (d *Dispatcher) dispatch(event events.NotificationEvent) {
	go func() {
		if err := d.publisher.Publish(event); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"type":     event.Type,
				"order_id": event.OrderID,
			}).Warn("Failed to publish notification event")
		}
	}()
}

func orderEvent(eventType string, o *models.Order) events.NotificationEvent {
	return events.NotificationEvent{
		Type:        eventType,
		OrderID:     o.ID,
		ClientID:    o.ClientID,
		ClientName:  o.ClientName,
		ClientEmail: o.ClientEmail,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount,
	}
}
