package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/internal/circuitbreaker"
	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

const (
	OrderCreatedTopic       = "order.created"
	OrderStatusChangedTopic = "order.status-changed"
	OrderDeletedTopic       = "order.deleted"
)

type OrderCreatedEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     int       `json:"order_id"`
	CustomerID  int       `json:"customer_id"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	OrderDate   string    `json:"order_date"`
	EventTime   time.Time `json:"event_time"`
}

type OrderStatusChangedEvent struct {
	EventID        string    `json:"event_id"`
	OrderID        int       `json:"order_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	EventTime      time.Time `json:"event_time"`
}

type OrderDeletedEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   int       `json:"order_id"`
	EventTime time.Time `json:"event_time"`
}

// KafkaProducer publishes order mutation events. Sends go through a circuit
// breaker so a broker outage degrades to fast failures instead of stalling
// every request on producer timeouts.
type KafkaProducer struct {
	producer sarama.SyncProducer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "kafka-producer",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
	}, logger)

	return &KafkaProducer{
		producer: producer,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishOrderCreated(order *models.Order) error {
	event := OrderCreatedEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status.String(),
		OrderDate:   order.OrderDate.String(),
		EventTime:   time.Now(),
	}
	return p.publish(OrderCreatedTopic, order.ID, event)
}

func (p *KafkaProducer) PublishOrderStatusChanged(order *models.Order, previous models.OrderStatus) error {
	event := OrderStatusChangedEvent{
		EventID:        uuid.New().String(),
		OrderID:        order.ID,
		PreviousStatus: previous.String(),
		NewStatus:      order.Status.String(),
		EventTime:      time.Now(),
	}
	return p.publish(OrderStatusChangedTopic, order.ID, event)
}

func (p *KafkaProducer) PublishOrderDeleted(orderID int) error {
	event := OrderDeletedEvent{
		EventID:   uuid.New().String(),
		OrderID:   orderID,
		EventTime: time.Now(),
	}
	return p.publish(OrderDeletedTopic, orderID, event)
}

func (p *KafkaProducer) publish(topic string, orderID int, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(strconv.Itoa(orderID)),
		Value: sarama.ByteEncoder(data),
	}

	var partition int32
	var offset int64
	err = p.breaker.Execute(func() error {
		var sendErr error
		partition, offset, sendErr = p.producer.SendMessage(msg)
		return sendErr
	})
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"order_id":  orderID,
	}).Info("Event published to Kafka")
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
