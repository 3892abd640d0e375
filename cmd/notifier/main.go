// The notifier consumes notification events and turns them into mail via
// the external gateway. Deliveries run behind a circuit breaker; events
// that exhaust their retries land on the DLQ topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/internal/circuitbreaker"
	"github.com/ecomstack/storefront/internal/config"
	"github.com/ecomstack/storefront/internal/events"
	"github.com/ecomstack/storefront/internal/mailer"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	mailClient := mailer.NewClient(cfg.MailGatewayURL, logger)
	breaker := circuitbreaker.New("mail-gateway", 5, 30*time.Second, logger)

	handler := &mailHandler{
		mailer:  mailClient,
		breaker: breaker,
		logger:  logger,
	}

	consumer, err := events.NewKafkaConsumer(cfg.KafkaBrokers, "storefront-notifier", handler, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create notification consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Notification consumer stopped")
		}
	}()

	logger.Info("Notifier started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down notifier...")
	cancel()
}

type mailHandler struct {
	mailer  *mailer.Client
	breaker *circuitbreaker.Breaker
	logger  *logrus.Logger
}

func (h *mailHandler) HandleNotification(event events.NotificationEvent) error {
	msg, ok := composeMail(event)
	if !ok {
		h.logger.WithField("type", event.Type).Warn("Unknown notification type, skipping")
		return nil
	}

	return h.breaker.Execute(func() error {
		return h.mailer.Send(msg)
	})
}

// IsRetryable treats gateway outages and an open breaker as transient;
// anything the gateway rejected outright goes straight to the DLQ.
func (h *mailHandler) IsRetryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return true
	}
	return apperr.Is(err, apperr.KindUnavailable)
}

func composeMail(event events.NotificationEvent) (mailer.Message, bool) {
	switch event.Type {
	case events.TypeOrderPlaced:
		return mailer.Message{
			To:      event.ClientEmail,
			Subject: "Order received",
			Body: fmt.Sprintf("Hi %s, we received your order for %d x %s (total %.2f). We'll let you know once it ships.",
				event.ClientName, event.Quantity, event.ProductName, event.TotalAmount),
		}, true
	case events.TypeOrderAccepted:
		return mailer.Message{
			To:      event.ClientEmail,
			Subject: "Order dispatched",
			Body: fmt.Sprintf("Hi %s, your order for %d x %s has been dispatched.",
				event.ClientName, event.Quantity, event.ProductName),
		}, true
	case events.TypeOrderRejected:
		return mailer.Message{
			To:      event.ClientEmail,
			Subject: "Order rejected",
			Body: fmt.Sprintf("Hi %s, unfortunately your order for %d x %s could not be fulfilled.",
				event.ClientName, event.Quantity, event.ProductName),
		}, true
	case events.TypeOrderCancelled:
		return mailer.Message{
			To:      event.ClientEmail,
			Subject: "Order cancelled",
			Body: fmt.Sprintf("Hi %s, your order for %d x %s has been cancelled as requested.",
				event.ClientName, event.Quantity, event.ProductName),
		}, true
	case events.TypeAccountOTP:
		return mailer.Message{
			To:      event.ClientEmail,
			Subject: "Your verification code",
			Body:    fmt.Sprintf("Hi %s, your one-time code is %s.", event.ClientName, event.OTP),
		}, true
	default:
		return mailer.Message{}, false
	}
}
