// Package events carries notification traffic between the API binary and
// the notifier worker over Kafka.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	NotificationsTopic    = "storefront.notifications"
	NotificationsDLQTopic = "storefront.notifications.dlq"
)

// Notification event types.
const (
	TypeOrderPlaced    = "order_placed"
	TypeOrderAccepted  = "order_accepted"
	TypeOrderRejected  = "order_rejected"
	TypeOrderCancelled = "order_cancelled"
	TypeAccountOTP     = "account_otp"
)

type NotificationEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id,omitempty"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`
	OTP         string    `json:"otp,omitempty"`
	EventTime   time.Time `json:"event_time"`
}

// key groups events for the same recipient on one partition so a client's
// notifications keep their order.
func (e NotificationEvent) key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.ClientID
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 10 * time.Second
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) Publish(event NotificationEvent) error {
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: NotificationsTopic,
		Key:   sarama.StringEncoder(event.key()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send notification event to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     NotificationsTopic,
		"partition": partition,
		"offset":    offset,
		"type":      event.Type,
		"order_id":  event.OrderID,
	}).Info("Notification event published")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
