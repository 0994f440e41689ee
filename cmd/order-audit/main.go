package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/internal/events"
)

// order-audit tails the order event topics and logs an audit trail of every
// mutation made through the orders service.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	groupID := getEnv("AUDIT_CONSUMER_GROUP", "order-audit-group")

	consumer, err := events.NewKafkaConsumer(kafkaBrokers, groupID, &auditHandler{logger: logger}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create audit consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Audit consumer stopped")
		}
	}()

	logger.WithField("brokers", kafkaBrokers).Info("Order audit consumer started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down audit consumer...")
}

type auditHandler struct {
	logger *logrus.Logger
}

func (h *auditHandler) HandleOrderCreated(event events.OrderCreatedEvent) error {
	h.logger.WithFields(logrus.Fields{
		"event_id":     event.EventID,
		"order_id":     event.OrderID,
		"customer_id":  event.CustomerID,
		"total_amount": event.TotalAmount,
		"status":       event.Status,
		"order_date":   event.OrderDate,
	}).Info("AUDIT order created")
	return nil
}

func (h *auditHandler) HandleOrderStatusChanged(event events.OrderStatusChangedEvent) error {
	h.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"order_id": event.OrderID,
		"from":     event.PreviousStatus,
		"to":       event.NewStatus,
	}).Info("AUDIT order status changed")
	return nil
}

func (h *auditHandler) HandleOrderDeleted(event events.OrderDeletedEvent) error {
	h.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"order_id": event.OrderID,
	}).Info("AUDIT order deleted")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
