package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	MaxRetries        = 3
	InitialRetryDelay = 1 * time.Second
	MaxRetryDelay     = 30 * time.Second
)

// NotificationHandler processes one event. IsRetryable decides whether a
// failure should be retried with backoff or go straight to the DLQ.
type NotificationHandler interface {
	HandleNotification(event NotificationEvent) error
	IsRetryable(err error) bool
}

type ConsumerMetrics struct {
	ProcessedCount int64
	RetryCount     int64
	DLQCount       int64
	SuccessCount   int64
	FailureCount   int64
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	producer      sarama.SyncProducer
	handler       NotificationHandler
	logger        *logrus.Logger
	topics        []string
	metrics       *ConsumerMetrics
}

func NewKafkaConsumer(brokers, groupID string, handler NotificationHandler, logger *logrus.Logger) (*KafkaConsumer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	consumerConfig.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	// Producer for the DLQ.
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), producerConfig)
	if err != nil {
		consumerGroup.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		producer:      producer,
		handler:       handler,
		logger:        logger,
		topics:        []string{NotificationsTopic},
		metrics:       &ConsumerMetrics{},
	}, nil
}

func (c *KafkaConsumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		handler:  c.handler,
		producer: c.producer,
		logger:   c.logger,
		metrics:  c.metrics,
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Notification consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.WithError(err).Error("Error consuming notification events")
				return err
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if err := c.producer.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to close DLQ producer")
	}
	return c.consumerGroup.Close()
}

func (c *KafkaConsumer) Metrics() ConsumerMetrics {
	return *c.metrics
}

type groupHandler struct {
	handler  NotificationHandler
	producer sarama.SyncProducer
	logger   *logrus.Logger
	metrics  *ConsumerMetrics
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Notification consumer group session setup")
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Notification consumer group session cleanup")
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			h.metrics.ProcessedCount++

			if err := h.handleWithRetry(message); err != nil {
				h.logger.WithError(err).Error("Failed to process notification after retries")
				h.metrics.FailureCount++

				if dlqErr := h.sendToDLQ(message, err); dlqErr != nil {
					h.logger.WithError(dlqErr).Error("Failed to send notification to DLQ")
				} else {
					h.metrics.DLQCount++
				}
			} else {
				h.metrics.SuccessCount++
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) handleWithRetry(message *sarama.ConsumerMessage) error {
	var event NotificationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		h.logger.WithError(err).Error("Failed to unmarshal notification event")
		return err // malformed payload, no point retrying
	}

	h.logger.WithFields(logrus.Fields{
		"topic":     message.Topic,
		"partition": message.Partition,
		"offset":    message.Offset,
		"type":      event.Type,
	}).Info("Processing notification event")

	retryDelay := InitialRetryDelay

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			h.logger.WithFields(logrus.Fields{
				"type":    event.Type,
				"attempt": attempt,
				"delay":   retryDelay,
			}).Info("Retrying notification delivery")

			time.Sleep(retryDelay)
			h.metrics.RetryCount++

			retryDelay *= 2
			if retryDelay > MaxRetryDelay {
				retryDelay = MaxRetryDelay
			}
		}

		err := h.handler.HandleNotification(event)
		if err == nil {
			return nil
		}

		if !h.handler.IsRetryable(err) {
			h.logger.WithError(err).Error("Non-retryable notification failure")
			return err
		}

		h.logger.WithError(err).WithField("attempt", attempt+1).Warn("Retryable notification failure")
	}

	return fmt.Errorf("exhausted retries for %s event (order %s)", event.Type, event.OrderID)
}

func (h *groupHandler) sendToDLQ(message *sarama.ConsumerMessage, processingError error) error {
	dlqMessage := &sarama.ProducerMessage{
		Topic: NotificationsDLQTopic,
		Key:   sarama.ByteEncoder(message.Key),
		Value: sarama.ByteEncoder(message.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("error_message"), Value: []byte(processingError.Error())},
			{Key: []byte("original_topic"), Value: []byte(message.Topic)},
			{Key: []byte("original_partition"), Value: []byte(strconv.FormatInt(int64(message.Partition), 10))},
			{Key: []byte("original_offset"), Value: []byte(strconv.FormatInt(message.Offset, 10))},
			{Key: []byte("failure_time"), Value: []byte(time.Now().Format(time.RFC3339))},
		},
	}

	partition, offset, err := h.producer.SendMessage(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to send to DLQ: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"dlq_topic":     NotificationsDLQTopic,
		"dlq_partition": partition,
		"dlq_offset":    offset,
		"error":         processingError.Error(),
	}).Warn("Notification sent to dead letter queue")

	return nil
}
